package orders

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/middleware"
	"github.com/richxcame/gigmarket/pkg/pagination"
	"github.com/richxcame/gigmarket/pkg/validation"
)

// Handler handles HTTP requests for orders
type Handler struct {
	service *Service
}

// NewHandler creates a new orders handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers order routes on an authenticated group
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	orders := api.Group("/orders")
	{
		orders.POST("", h.CreateOrder)
		orders.GET("/buying", h.ListBuying)
		orders.GET("/selling", h.ListSelling)
		orders.GET("/:id", h.GetOrder)
		orders.PUT("/:id/status", h.UpdateStatus)
		orders.POST("/:id/deliverables", h.AddDeliverable)
		orders.POST("/:id/revisions", h.RequestRevision)
		orders.PUT("/:id/revisions/:revisionId", h.RespondToRevision)
		orders.POST("/:id/review", h.AddReview)
		orders.POST("/:id/cancel", h.CancelOrder)
		orders.POST("/:id/payment", h.ConfirmPayment)
		orders.POST("/:id/messages", h.AddMessage)
		orders.GET("/:id/messages", h.ListMessages)
	}
}

// CreateOrder places an order
// POST /api/v1/orders
func (h *Handler) CreateOrder(c *gin.Context) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	order, err := h.service.CreateOrder(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err, "failed to create order")
		return
	}

	common.CreatedResponse(c, order)
}

// ListBuying lists the caller's purchases
// GET /api/v1/orders/buying
func (h *Handler) ListBuying(c *gin.Context) {
	h.list(c, h.service.ListBuying)
}

// ListSelling lists the caller's sales
// GET /api/v1/orders/selling
func (h *Handler) ListSelling(c *gin.Context) {
	h.list(c, h.service.ListSelling)
}

type listFunc func(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*Order, int64, error)

func (h *Handler) list(c *gin.Context, fn listFunc) {
	userID, ok := h.caller(c)
	if !ok {
		return
	}

	params := pagination.ParsePage(c, maxListLimit)
	filter := ListFilter{Limit: params.Limit, Offset: params.Offset}
	if s := c.Query("status"); s != "" {
		if err := validation.ValidateVar(s, "order_status"); err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "invalid status")
			return
		}
		status := Status(s)
		filter.Status = &status
	}

	orders, total, err := fn(c.Request.Context(), userID, filter)
	if err != nil {
		respondError(c, err, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []*Order{}
	}

	common.SuccessResponseWithMeta(c, orders, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// GetOrder returns one order to a participant
// GET /api/v1/orders/:id
func (h *Handler) GetOrder(c *gin.Context) {
	userID, orderID, ok := h.callerAndOrder(c)
	if !ok {
		return
	}

	order, err := h.service.GetOrder(c.Request.Context(), orderID, userID)
	if err != nil {
		respondError(c, err, "failed to get order")
		return
	}

	common.SuccessResponse(c, order)
}

// UpdateStatus applies a status transition
// PUT /api/v1/orders/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	userID, orderID, ok := h.callerAndOrder(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	order, err := h.service.UpdateStatus(c.Request.Context(), orderID, userID, req.Status)
	if err != nil {
		respondError(c, err, "failed to update order status")
		return
	}

	common.SuccessResponse(c, order)
}

// AddDeliverable hands over work
// POST /api/v1/orders/:id/deliverables
func (h *Handler) AddDeliverable(c *gin.Context) {
	userID, orderID, ok := h.callerAndOrder(c)
	if !ok {
		return
	}

	var req AddDeliverableRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	order, err := h.service.AddDeliverable(c.Request.Context(), orderID, userID, &req)
	if err != nil {
		respondError(c, err, "failed to add deliverable")
		return
	}

	common.SuccessResponse(c, order)
}

// RequestRevision asks the seller for rework
// POST /api/v1/orders/:id/revisions
func (h *Handler) RequestRevision(c *gin.Context) {
	userID, orderID, ok := h.callerAndOrder(c)
	if !ok {
		return
	}

	var req RequestRevisionRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	rev, err := h.service.RequestRevision(c.Request.Context(), orderID, userID, &req)
	if err != nil {
		respondError(c, err, "failed to request revision")
		return
	}

	common.CreatedResponse(c, rev)
}

// RespondToRevision approves or rejects a revision request
// PUT /api/v1/orders/:id/revisions/:revisionId
func (h *Handler) RespondToRevision(c *gin.Context) {
	userID, orderID, ok := h.callerAndOrder(c)
	if !ok {
		return
	}
	revisionID, err := uuid.Parse(c.Param("revisionId"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid revision ID")
		return
	}

	var req RespondRevisionRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	order, err := h.service.RespondToRevision(c.Request.Context(), orderID, revisionID, userID, req.Status)
	if err != nil {
		respondError(c, err, "failed to respond to revision")
		return
	}

	common.SuccessResponse(c, order)
}

// AddReview rates a completed order
// POST /api/v1/orders/:id/review
func (h *Handler) AddReview(c *gin.Context) {
	userID, orderID, ok := h.callerAndOrder(c)
	if !ok {
		return
	}

	var req AddReviewRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	review, err := h.service.AddReview(c.Request.Context(), orderID, userID, &req)
	if err != nil {
		respondError(c, err, "failed to add review")
		return
	}

	common.SuccessResponse(c, review)
}

// CancelOrder cancels an order
// POST /api/v1/orders/:id/cancel
func (h *Handler) CancelOrder(c *gin.Context) {
	userID, orderID, ok := h.callerAndOrder(c)
	if !ok {
		return
	}

	var req CancelOrderRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	order, err := h.service.CancelOrder(c.Request.Context(), orderID, userID, req.Reason)
	if err != nil {
		respondError(c, err, "failed to cancel order")
		return
	}

	common.SuccessResponse(c, order)
}

// ConfirmPayment records a verified card payment
// POST /api/v1/orders/:id/payment
func (h *Handler) ConfirmPayment(c *gin.Context) {
	userID, orderID, ok := h.callerAndOrder(c)
	if !ok {
		return
	}

	var req ConfirmPaymentRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	order, err := h.service.ConfirmPayment(c.Request.Context(), orderID, userID, req.PaymentIntentID)
	if err != nil {
		respondError(c, err, "failed to confirm payment")
		return
	}

	common.SuccessResponse(c, order)
}

// AddMessage posts to the order conversation
// POST /api/v1/orders/:id/messages
func (h *Handler) AddMessage(c *gin.Context) {
	userID, orderID, ok := h.callerAndOrder(c)
	if !ok {
		return
	}

	var req AddMessageRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	msg, err := h.service.AddMessage(c.Request.Context(), orderID, userID, &req)
	if err != nil {
		respondError(c, err, "failed to add message")
		return
	}

	common.CreatedResponse(c, msg)
}

// ListMessages pages through the order conversation
// GET /api/v1/orders/:id/messages
func (h *Handler) ListMessages(c *gin.Context) {
	userID, orderID, ok := h.callerAndOrder(c)
	if !ok {
		return
	}

	params := pagination.ParsePage(c, maxMessageLimit)
	msgs, total, err := h.service.ListMessages(c.Request.Context(), orderID, userID, params.Limit, params.Offset)
	if err != nil {
		respondError(c, err, "failed to list messages")
		return
	}
	if msgs == nil {
		msgs = []*Message{}
	}

	common.SuccessResponseWithMeta(c, msgs, pagination.BuildMeta(params.Limit, params.Offset, total))
}

func (h *Handler) caller(c *gin.Context) (uuid.UUID, bool) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, false
	}
	return userID, true
}

func (h *Handler) callerAndOrder(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := h.caller(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid order ID")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, orderID, true
}

func respondError(c *gin.Context, err error, fallback string) {
	if appErr, ok := common.AsAppError(err); ok {
		common.AppErrorResponse(c, appErr)
		return
	}
	common.ErrorResponse(c, http.StatusInternalServerError, fallback)
}
