package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cozyapp/cozyapp-api/internal/application"
	"github.com/cozyapp/cozyapp-api/internal/application/access"
	"github.com/cozyapp/cozyapp-api/internal/domain/entity"
	"github.com/cozyapp/cozyapp-api/pkg/response"
)

const (
	defaultSearchSize = 20
	maxSearchSize     = 50
)

// UserHandler serves the /users resource and admin statistics.
type UserHandler struct {
	Svc    *application.Service
	Logger logrus.FieldLogger
	Errors ErrorResponder
}

func NewUserHandler(svc *application.Service, logger logrus.FieldLogger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger, Errors: ErrorResponder{Logger: logger}}
}

type setRoleRequest struct {
	IsAdmin *bool `json:"isAdmin" binding:"required"`
}

type updateStatsRequest struct {
	TaskStats *entity.TaskStats `json:"taskStats" binding:"required"`
}

func (h *UserHandler) Create(c *gin.Context, _ access.Principal) {
	var req application.CreateUserInput
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Svc.CreateUser(c.Request.Context(), req)
	if err != nil {
		h.Errors.Respond(c, err)
		return
	}
	response.Success(c, http.StatusCreated, toUserResponse(u), "user created", nil)
}

func (h *UserHandler) List(c *gin.Context, _ access.Principal) {
	users, err := h.Svc.ListUsers(c.Request.Context(), c.Query("active"), c.Query("role"))
	if err != nil {
		h.Errors.Respond(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponses(users), "users", gin.H{"count": len(users)})
}

func (h *UserHandler) Search(c *gin.Context, _ access.Principal) {
	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(defaultSearchSize)))
	if err != nil || size <= 0 {
		size = defaultSearchSize
	}
	if size > maxSearchSize {
		size = maxSearchSize
	}
	q := c.Query("q")
	users, err := h.Svc.SearchUsers(c.Request.Context(), q, size)
	if err != nil {
		h.Errors.Respond(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponses(users), "search results", gin.H{"q": q, "size": size, "count": len(users)})
}

func (h *UserHandler) Get(c *gin.Context, _ access.Principal) {
	u, err := h.Svc.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Errors.Respond(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "user", nil)
}

func (h *UserHandler) ToggleStatus(c *gin.Context, _ access.Principal) {
	u, err := h.Svc.ToggleStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Errors.Respond(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "status updated", nil)
}

func (h *UserHandler) SetRole(c *gin.Context, _ access.Principal) {
	var req setRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Svc.SetAdmin(c.Request.Context(), c.Param("id"), *req.IsAdmin)
	if err != nil {
		h.Errors.Respond(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "role updated", nil)
}

func (h *UserHandler) Delete(c *gin.Context, _ access.Principal) {
	if err := h.Svc.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		h.Errors.Respond(c, err)
		return
	}
	msg := "user deleted"
	response.Success(c, http.StatusOK, messageResponse{Message: msg}, msg, nil)
}

// UpdateStats merges task counters into the target user's preferences.
func (h *UserHandler) UpdateStats(c *gin.Context, _ access.Principal) {
	var req updateStatsRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Svc.UpdateTaskStats(c.Request.Context(), c.Param("id"), *req.TaskStats)
	if err != nil {
		h.Errors.Respond(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "stats updated", nil)
}

func (h *UserHandler) Stats(c *gin.Context, _ access.Principal) {
	st, err := h.Svc.Stats(c.Request.Context())
	if err != nil {
		h.Errors.Respond(c, err)
		return
	}
	response.Success(c, http.StatusOK, st, "user stats", nil)
}
