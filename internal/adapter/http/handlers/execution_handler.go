package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"orderflow/internal/adapter/http/dto/response"
	"orderflow/internal/usecase"
	"orderflow/pkg"

	"github.com/gin-gonic/gin"
)

// ExecutionHandler serves the workflow status surface and the dead-letter peek.

type ExecutionHandler struct {
	usecase usecase.IExecutionUseCase
}

func NewExecutionHandler(uc usecase.IExecutionUseCase) *ExecutionHandler {
	return &ExecutionHandler{usecase: uc}
}

// GetExecution godoc
// @Summary      Get a workflow execution
// @Tags         executions
// @Produce      json
// @Param        id   path      string  true  "Execution id"
// @Success      200  {object}  response.ExecutionResponse
// @Failure      404  {object}  pkg.HTTPError
// @Router       /executions/{id} [get]
func (h *ExecutionHandler) GetExecution(c *gin.Context) {
	e, err := h.usecase.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		appErr := mapExecutionError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}
	c.JSON(http.StatusOK, response.FromExecution(e))
}

// GetOrderExecution godoc
// @Summary      Get the workflow execution of an order
// @Tags         executions
// @Produce      json
// @Param        user_id  path      string  true  "Owner id"
// @Param        id       path      string  true  "Order id"
// @Success      200      {object}  response.ExecutionResponse
// @Failure      404      {object}  pkg.HTTPError
// @Router       /orders/{user_id}/{id}/execution [get]
func (h *ExecutionHandler) GetOrderExecution(c *gin.Context) {
	e, err := h.usecase.GetByOrder(c.Request.Context(), c.Param("user_id"), c.Param("id"))
	if err != nil {
		appErr := mapExecutionError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}
	c.JSON(http.StatusOK, response.FromExecution(e))
}

// ListDeadLetters godoc
// @Summary      Peek at dead-lettered messages
// @Description  Read-only; messages are never replayed automatically.
// @Tags         dead-letters
// @Produce      json
// @Param        max  query     int  false  "Maximum messages (1-50)"
// @Success      200  {array}   response.DeadLetterResponse
// @Failure      400  {object}  pkg.HTTPError
// @Failure      503  {object}  pkg.HTTPError
// @Router       /dead-letters [get]
func (h *ExecutionHandler) ListDeadLetters(c *gin.Context) {
	max := 0
	if v := c.Query("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			appErr := pkg.NewDomainErrorSimple("INVALID_REQUEST", "max must be a non-negative integer", http.StatusBadRequest)
			c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
			return
		}
		max = n
	}

	msgs, err := h.usecase.ListDeadLetters(c.Request.Context(), max)
	if err != nil {
		appErr := mapExecutionError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}
	c.JSON(http.StatusOK, response.FromDeadLetters(msgs))
}

func mapExecutionError(err error) *pkg.AppError {
	switch {
	case errors.Is(err, usecase.ErrInvalidExecutionID), errors.Is(err, usecase.ErrInvalidOrderIdentity):
		return pkg.NewDomainError("INVALID_REQUEST", err.Error(), err, http.StatusBadRequest)
	case errors.Is(err, usecase.ErrExecutionNotFound):
		return pkg.NewDomainErrorSimple("EXECUTION_NOT_FOUND", "Execution not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrDeadLetterQueueNone):
		return pkg.NewDomainError("DEAD_LETTER_UNAVAILABLE", "Dead-letter queue not configured", err, http.StatusServiceUnavailable)
	default:
		return pkg.NewInternalError(err)
	}
}
