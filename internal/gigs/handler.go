package gigs

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/middleware"
	"github.com/richxcame/gigmarket/pkg/models"
	"github.com/richxcame/gigmarket/pkg/pagination"
)

const defaultBrowseLimit = 12

// Handler handles HTTP requests for gig listings
type Handler struct {
	service *Service
}

// NewHandler creates a new gigs handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers gig routes on an authenticated group
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	gigs := api.Group("/gigs")
	{
		gigs.GET("", h.ListGigs)
		gigs.GET("/categories", h.Categories)
		gigs.GET("/:id", h.GetGig)
		gigs.POST("", middleware.RequireRole(models.RoleSeller), h.CreateGig)
		gigs.PUT("/:id", h.UpdateGig)
		gigs.PUT("/:id/status", h.SetActive)
		gigs.DELETE("/:id", h.Deactivate)
	}
	api.GET("/sellers/:sellerId/gigs", h.ListBySeller)
}

// ListGigs browses active gigs
// GET /api/v1/gigs
func (h *Handler) ListGigs(c *gin.Context) {
	params := pagination.ParsePage(c, maxBrowseLimit)
	if c.Query("limit") == "" {
		params = pageWithLimit(c, defaultBrowseLimit)
	}

	filter := ListFilter{
		Category:    c.Query("category"),
		Subcategory: c.Query("subcategory"),
		Search:      c.Query("search"),
		SortBy:      SortField(c.DefaultQuery("sort_by", string(SortNewest))),
		Ascending:   c.Query("sort_order") == "asc",
		Limit:       params.Limit,
		Offset:      params.Offset,
	}
	var ok bool
	if filter.MinPrice, ok = priceParam(c, "min_price"); !ok {
		return
	}
	if filter.MaxPrice, ok = priceParam(c, "max_price"); !ok {
		return
	}

	gigs, total, err := h.service.ListGigs(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "failed to list gigs")
		return
	}
	if gigs == nil {
		gigs = []*Gig{}
	}
	common.SuccessResponseWithMeta(c, gigs, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// Categories lists the gig categories
// GET /api/v1/gigs/categories
func (h *Handler) Categories(c *gin.Context) {
	common.SuccessResponse(c, Categories)
}

// GetGig returns one gig
// GET /api/v1/gigs/:id
func (h *Handler) GetGig(c *gin.Context) {
	gigID, ok := gigParam(c)
	if !ok {
		return
	}

	gig, err := h.service.GetGig(c.Request.Context(), gigID)
	if err != nil {
		respondError(c, err, "failed to get gig")
		return
	}
	common.SuccessResponse(c, gig)
}

// ListBySeller lists a seller's gigs, optionally by status
// GET /api/v1/sellers/:sellerId/gigs
func (h *Handler) ListBySeller(c *gin.Context) {
	sellerID, err := uuid.Parse(c.Param("sellerId"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid seller ID")
		return
	}

	params := pagination.ParsePage(c, maxSellerLimit)
	filter := SellerFilter{Limit: params.Limit, Offset: params.Offset}
	switch c.Query("status") {
	case "active":
		active := true
		filter.Active = &active
	case "inactive":
		active := false
		filter.Active = &active
	}

	gigs, total, err := h.service.ListBySeller(c.Request.Context(), sellerID, filter)
	if err != nil {
		respondError(c, err, "failed to list gigs")
		return
	}
	if gigs == nil {
		gigs = []*Gig{}
	}
	common.SuccessResponseWithMeta(c, gigs, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// CreateGig publishes a gig owned by the caller
// POST /api/v1/gigs
func (h *Handler) CreateGig(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	var req CreateGigRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	gig, err := h.service.CreateGig(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err, "failed to create gig")
		return
	}
	common.CreatedResponse(c, gig)
}

// UpdateGig edits a gig owned by the caller
// PUT /api/v1/gigs/:id
func (h *Handler) UpdateGig(c *gin.Context) {
	userID, gigID, ok := callerAndGig(c)
	if !ok {
		return
	}

	var req UpdateGigRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	gig, err := h.service.UpdateGig(c.Request.Context(), gigID, userID, &req)
	if err != nil {
		respondError(c, err, "failed to update gig")
		return
	}
	common.SuccessResponse(c, gig)
}

// SetActive lists or unlists a gig
// PUT /api/v1/gigs/:id/status
func (h *Handler) SetActive(c *gin.Context) {
	userID, gigID, ok := callerAndGig(c)
	if !ok {
		return
	}

	var req SetActiveRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}
	h.applyActive(c, gigID, userID, *req.IsActive)
}

// Deactivate unlists a gig. Gigs with orders are never removed.
// DELETE /api/v1/gigs/:id
func (h *Handler) Deactivate(c *gin.Context) {
	userID, gigID, ok := callerAndGig(c)
	if !ok {
		return
	}
	h.applyActive(c, gigID, userID, false)
}

func (h *Handler) applyActive(c *gin.Context, gigID, userID uuid.UUID, active bool) {
	gig, err := h.service.SetActive(c.Request.Context(), gigID, userID, active)
	if err != nil {
		respondError(c, err, "failed to update gig status")
		return
	}
	common.SuccessResponse(c, gig)
}

func pageWithLimit(c *gin.Context, limit int) pagination.Params {
	params := pagination.Params{Limit: limit}
	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 1 {
		params.Offset = (page - 1) * limit
	}
	return params
}

func priceParam(c *gin.Context, key string) (*float64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid "+key)
		return nil, false
	}
	return &v, true
}

func caller(c *gin.Context) (uuid.UUID, bool) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, false
	}
	return userID, true
}

func callerAndGig(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := caller(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	gigID, ok := gigParam(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return userID, gigID, true
}

func gigParam(c *gin.Context) (uuid.UUID, bool) {
	gigID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid gig ID")
		return uuid.Nil, false
	}
	return gigID, true
}

func respondError(c *gin.Context, err error, fallback string) {
	if appErr, ok := common.AsAppError(err); ok {
		common.AppErrorResponse(c, appErr)
		return
	}
	common.ErrorResponse(c, http.StatusInternalServerError, fallback)
}
