package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cozyapp/cozyapp-api/internal/application"
	"github.com/cozyapp/cozyapp-api/internal/application/access"
	"github.com/cozyapp/cozyapp-api/internal/domain/entity"
	"github.com/cozyapp/cozyapp-api/pkg/response"
)

type AuthHandler struct {
	Svc    *application.Service
	Logger logrus.FieldLogger
	Errors ErrorResponder
}

func NewAuthHandler(svc *application.Service, logger logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Errors: ErrorResponder{Logger: logger}}
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req application.RegisterInput
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Svc.Register(c.Request.Context(), req)
	if err != nil {
		h.Errors.Respond(c, err)
		return
	}
	response.Success(c, http.StatusCreated, authResponse{User: toUserResponse(res.User), Token: res.Token}, "registration successful", gin.H{"expires_at": res.ExpiresAt})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req application.LoginInput
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Svc.Login(c.Request.Context(), req)
	if err != nil {
		h.Errors.Respond(c, err)
		return
	}
	response.Success(c, http.StatusOK, authResponse{User: toUserResponse(res.User), Token: res.Token}, "login successful", gin.H{"expires_at": res.ExpiresAt})
}

// ForgotPassword answers with the same message whether or not the email is
// registered, and for malformed bodies too.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Logger.WithField("request_id", c.GetString("request_id")).Debug("unreadable reset request")
	}
	msg := h.Svc.RequestReset(c.Request.Context(), req.Email)
	response.Success(c, http.StatusOK, messageResponse{Message: msg}, msg, nil)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req application.ResetPasswordInput
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Svc.ResetPassword(c.Request.Context(), req); err != nil {
		h.Errors.Respond(c, err)
		return
	}
	msg := "password has been reset"
	response.Success(c, http.StatusOK, messageResponse{Message: msg}, msg, nil)
}

func (h *AuthHandler) ChangePassword(c *gin.Context, p access.Principal) {
	var req application.ChangePasswordInput
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Svc.ChangePassword(c.Request.Context(), p.ID(), req); err != nil {
		h.Errors.Respond(c, err)
		return
	}
	msg := "password changed"
	response.Success(c, http.StatusOK, messageResponse{Message: msg}, msg, nil)
}

// CheckToken returns the authenticated user with a freshly issued token.
func (h *AuthHandler) CheckToken(c *gin.Context, p access.Principal) {
	res, err := h.Svc.RefreshToken(c.Request.Context(), p.User)
	if err != nil {
		h.Errors.Respond(c, err)
		return
	}
	response.Success(c, http.StatusOK, authResponse{User: toUserResponse(res.User), Token: res.Token}, "token valid", gin.H{"expires_at": res.ExpiresAt})
}

func (h *AuthHandler) UpdateProfile(c *gin.Context, p access.Principal) {
	var req application.UpdateProfileInput
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.Svc.UpdateProfile(c.Request.Context(), p.ID(), req)
	if err != nil {
		h.Errors.Respond(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "profile updated", nil)
}

func (h *AuthHandler) UpdatePreferences(c *gin.Context, p access.Principal) {
	var patch entity.Preferences
	if !bindJSON(c, &patch) {
		return
	}
	u, err := h.Svc.UpdatePreferences(c.Request.Context(), p.ID(), patch)
	if err != nil {
		h.Errors.Respond(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "preferences updated", nil)
}

func (h *AuthHandler) Dashboard(c *gin.Context, p access.Principal) {
	d := h.Svc.Dashboard(c.Request.Context(), p.User)
	roles := d.User.Roles
	if roles == nil {
		roles = entity.Roles{}
	}
	response.Success(c, http.StatusOK, dashboardResponse{
		User: dashboardUser{
			ID:          d.User.ID,
			Name:        d.User.Name,
			Email:       d.User.Email,
			Roles:       roles,
			LastLogin:   d.User.LastLogin,
			Preferences: d.User.Preferences,
		},
		DashboardID: d.DashboardID,
	}, "dashboard", nil)
}
