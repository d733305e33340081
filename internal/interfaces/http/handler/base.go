// Package handler contains the gin handlers of the sales API.
package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/salesapi/backend/internal/domain/shared"
	"github.com/salesapi/backend/internal/infrastructure/logger"
	"github.com/salesapi/backend/internal/interfaces/http/dto"
	"github.com/salesapi/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	if id := middleware.GetRequestID(c); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response, deriving the status from the code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		getRequestID(c),
		details,
	))
}

// HandleError converts validation and domain errors to their HTTP response.
// Anything else is logged and answered with a generic 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var validationErr *shared.ValidationError
	if errors.As(err, &validationErr) {
		details := make([]dto.ValidationDetail, 0, len(validationErr.Fields))
		for _, f := range validationErr.Fields {
			details = append(details, dto.ValidationDetail{Field: f.Field, Message: f.Message, Code: f.Code})
		}
		h.ValidationError(c, details)
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		if status := dto.GetHTTPStatus(domainErr.Code); status != http.StatusInternalServerError {
			h.Error(c, domainErr.Code, domainErr.Message)
			return
		}
	}

	logger.L(c.Request.Context()).Error("Unhandled error", zap.Error(err))
	_ = c.Error(err)
	h.Error(c, dto.ErrCodeInternal, "An unexpected error occurred")
}

// BindError answers a failed gin binding. Binding tag violations are listed
// as validation details; anything else is an unreadable body.
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		h.BadRequest(c, dto.ErrCodeInvalidJSON, "Invalid request body")
		return
	}
	details := make([]dto.ValidationDetail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, dto.ValidationDetail{
			Field:   strings.ToLower(fe.Field()[:1]) + fe.Field()[1:],
			Message: fe.Field() + " is invalid",
			Code:    fe.Tag(),
		})
	}
	h.ValidationError(c, details)
}

// parseID reads the :id path parameter, answering 400 when it is not a UUID
func (h *BaseHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, dto.ErrCodeInvalidID, "Invalid sale ID format")
		return uuid.Nil, false
	}
	return id, true
}
