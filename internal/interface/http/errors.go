package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cozyapp/cozyapp-api/internal/domain"
	"github.com/cozyapp/cozyapp-api/pkg/helpers"
	"github.com/cozyapp/cozyapp-api/pkg/response"
	"github.com/cozyapp/cozyapp-api/pkg/validation"
)

// StatusFor maps a domain error kind to its HTTP status.
func StatusFor(k domain.Kind) int {
	switch k {
	case domain.KindValidation, domain.KindDuplicate:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponder writes domain errors as API error envelopes. Anything that is
// not a known domain error is logged with the request id and answered with a
// generic 500.
type ErrorResponder struct {
	Logger logrus.FieldLogger
}

func (e ErrorResponder) Respond(c *gin.Context, err error) {
	var de *domain.Error
	if !errors.As(err, &de) || de.Kind == domain.KindInternal {
		helpers.LogError(e.Logger, "request failed", err, logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
		})
		response.Error[any](c, http.StatusInternalServerError, "internal server error", nil)
		return
	}
	detail := gin.H{"code": de.Kind.String()}
	if de.Reason != "" {
		detail["reason"] = de.Reason
	}
	if de.Field != "" {
		detail["field"] = de.Field
	}
	msg := de.Message
	if msg == "" {
		msg = de.Kind.String()
	}
	response.Error[any](c, StatusFor(de.Kind), msg, detail)
}

// bindJSON binds the body into dst, answering 400 with field details on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return false
	}
	return true
}
