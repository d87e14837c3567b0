package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/retailpos/backoffice/internal/domain/shared"
	"github.com/retailpos/backoffice/internal/infrastructure/logger"
	"github.com/retailpos/backoffice/internal/interfaces/http/dto"
	"github.com/retailpos/backoffice/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

var errNoActor = errors.New("no authenticated actor in context")

// BaseHandler writes the response envelope shared by every endpoint
type BaseHandler struct{}

// getRequestID prefers the ID the RequestID middleware stored over the
// raw header
func getRequestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// getActor returns the caller and the store their token is scoped to
func getActor(c *gin.Context) (userID, storeID uuid.UUID, err error) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		return uuid.Nil, uuid.Nil, errNoActor
	}
	return claims.Actor()
}

func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error writes an error envelope and records code for the metrics and
// tracing middleware.
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	h.writeError(c, statusCode, code, message, nil)
}

func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// HandleError maps err onto the envelope. A DomainError keeps its message
// and details under its normalized code. Anything else is logged and
// answered with a generic 500 so internals do not leak.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		logger.GetGinLogger(c).Error("Unexpected error", zap.Error(err))
		h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
		return
	}

	code := dto.NormalizeErrorCode(domainErr.Code)
	status := dto.GetHTTPStatus(code)
	if status >= http.StatusInternalServerError {
		logger.GetGinLogger(c).Error("Request failed", zap.String("code", code), zap.Error(err))
	}
	h.writeError(c, status, code, domainErr.Message, domainErr.Details)
}

func (h *BaseHandler) writeError(c *gin.Context, status int, code, message string, details any) {
	c.Set(middleware.ErrorCodeKey, code)
	if details != nil {
		c.JSON(status, dto.NewErrorResponseWithDetails(code, message, getRequestID(c), details))
		return
	}
	c.JSON(status, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}
