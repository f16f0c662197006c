package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/recibos/taxbot/internal/interfaces/http/dto"
	"github.com/recibos/taxbot/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(dto.ErrorInfo{
		Code:    dto.ErrCodeBadRequest,
		Message: message,
	}, middleware.GetRequestID(c)))
}

// HandleError sends the status and body derived from err
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, info := dto.FromError(err)
	c.JSON(status, dto.NewErrorResponseWithRequestID(info, middleware.GetRequestID(c)))
}
