package handlers

import (
	"errors"
	"net/http"

	"orderflow/internal/adapter/http/dto/request"
	"orderflow/internal/adapter/http/dto/response"
	"orderflow/internal/domain/entities"
	"orderflow/internal/usecase"
	"orderflow/pkg"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// OrderHandler handles HTTP requests for orders.

type OrderHandler struct {
	usecase usecase.IOrderUseCase
}

func NewOrderHandler(uc usecase.IOrderUseCase) *OrderHandler {
	return &OrderHandler{usecase: uc}
}

// SubmitOrder godoc
// @Summary      Submit an order
// @Description  Validates {id, user_id} and pushes the order onto the ingestion queue. The workflow runs asynchronously.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        order  body      object  true  "Order submission ({id, user_id, amount, ...line items})"
// @Success      202    {object}  response.SubmitOrderResponse
// @Failure      400    {object}  pkg.HTTPError
// @Failure      503    {object}  pkg.HTTPError
// @Router       /orders [post]
func (h *OrderHandler) SubmitOrder(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		appErr := pkg.NewDomainErrorSimple("INVALID_REQUEST", "Invalid request", http.StatusBadRequest)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}

	messageID, sub, err := h.usecase.Submit(c.Request.Context(), raw)
	if err != nil {
		log.Printf("[order][handler] submit failed err=%v", err)
		appErr := mapOrderError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}
	log.Printf("[order][handler] submit accepted owner_id=%s order_id=%s message_id=%s", sub.OwnerID, sub.ID, messageID)

	c.JSON(http.StatusAccepted, response.FromSubmission(messageID, sub))
}

// GetOrder godoc
// @Summary      Get an order
// @Tags         orders
// @Produce      json
// @Param        user_id  path      string  true  "Owner id"
// @Param        id       path      string  true  "Order id"
// @Success      200      {object}  response.OrderResponse
// @Failure      404      {object}  pkg.HTTPError
// @Router       /orders/{user_id}/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	ownerID, orderID := c.Param("user_id"), c.Param("id")

	o, err := h.usecase.GetByID(c.Request.Context(), ownerID, orderID)
	if err != nil {
		appErr := mapOrderError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}
	c.JSON(http.StatusOK, response.FromOrder(o))
}

// UpdateOrder godoc
// @Summary      Replace an order's line-item payload
// @Description  Only allowed before the order reaches completed or cancelled.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        user_id  path      string                      true  "Owner id"
// @Param        id       path      string                      true  "Order id"
// @Param        body     body      request.UpdateOrderRequest  true  "New payload"
// @Success      200      {object}  response.OrderResponse
// @Failure      400      {object}  pkg.HTTPError
// @Failure      404      {object}  pkg.HTTPError
// @Failure      409      {object}  pkg.HTTPError
// @Router       /orders/{user_id}/{id} [patch]
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	ownerID, orderID := c.Param("user_id"), c.Param("id")

	var req request.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := pkg.NewDomainErrorSimple("INVALID_REQUEST", "Invalid request", http.StatusBadRequest)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}
	if err := req.Validate(); err != nil {
		appErr := pkg.NewDomainErrorSimple("INVALID_REQUEST", err.Error(), http.StatusBadRequest)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}

	updated, err := h.usecase.UpdatePayload(c.Request.Context(), ownerID, orderID, req.Payload)
	if err != nil {
		log.Printf("[order][handler] update failed owner_id=%s order_id=%s err=%v", ownerID, orderID, err)
		appErr := mapOrderError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}
	c.JSON(http.StatusOK, response.FromOrder(updated))
}

// DeleteOrder godoc
// @Summary      Delete an order
// @Tags         orders
// @Param        user_id  path  string  true  "Owner id"
// @Param        id       path  string  true  "Order id"
// @Success      204
// @Failure      404  {object}  pkg.HTTPError
// @Router       /orders/{user_id}/{id} [delete]
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	ownerID, orderID := c.Param("user_id"), c.Param("id")

	if err := h.usecase.Delete(c.Request.Context(), ownerID, orderID); err != nil {
		log.Printf("[order][handler] delete failed owner_id=%s order_id=%s err=%v", ownerID, orderID, err)
		appErr := mapOrderError(err)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}
	c.Status(http.StatusNoContent)
}

func mapOrderError(err error) *pkg.AppError {
	switch {
	case errors.Is(err, entities.ErrInvalidSubmission),
		errors.Is(err, entities.ErrSubmissionMissingID),
		errors.Is(err, entities.ErrSubmissionMissingOwnerID),
		errors.Is(err, usecase.ErrInvalidOrderPayload),
		errors.Is(err, usecase.ErrInvalidOrderIdentity):
		return pkg.NewDomainError("INVALID_REQUEST", err.Error(), err, http.StatusBadRequest)
	case errors.Is(err, usecase.ErrOrderNotFound):
		return pkg.NewDomainErrorSimple("ORDER_NOT_FOUND", "Order not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrOrderFinal):
		return pkg.NewDomainErrorSimple("ORDER_FINAL", "Order already reached a final status", http.StatusConflict)
	case errors.Is(err, usecase.ErrOrderStatusConflict):
		return pkg.NewDomainErrorSimple("ORDER_STATUS_CONFLICT", "Order status changed concurrently", http.StatusConflict)
	case errors.Is(err, usecase.ErrQueueNotSet):
		return pkg.NewDomainError("QUEUE_UNAVAILABLE", "Order queue not configured", err, http.StatusServiceUnavailable)
	default:
		return pkg.NewInternalError(err)
	}
}
