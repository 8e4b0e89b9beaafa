package fraud

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

// Handler handles HTTP requests for fraud case administration
type Handler struct {
	service *Service
}

// NewHandler creates a new fraud handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers fraud routes on an authenticated group
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	fraud := api.Group("/fraud", middleware.RequirePermission(models.PermissionManageFraud))
	{
		fraud.POST("/flag", h.FlagUser)
		fraud.GET("/check/:userId", h.CheckStatus)
		fraud.GET("/cases", h.ListCases)
		fraud.GET("/cases/:id", h.GetCase)
		fraud.PUT("/cases/:id/review", h.ReviewCase)
		fraud.PUT("/cases/:id/resolve", h.ResolveCase)
		fraud.POST("/cases/:id/notes", h.AddNote)
		fraud.GET("/statistics", h.Statistics)
		fraud.POST("/analyze-seller/:sellerId", h.AnalyzeSeller)
	}
}

// FlagUser flags a user manually
// POST /api/v1/fraud/flag
func (h *Handler) FlagUser(c *gin.Context) {
	var req FlagUserRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	fraudCase, merged, err := h.service.FlagUser(c.Request.Context(), FlagInput{
		UserID:             req.UserID,
		FraudScore:         req.FraudScore,
		Flags:              req.Flags,
		TriggeringEvent:    req.TriggeringEvent,
		SuspiciousPatterns: req.SuspiciousPatterns,
		RiskAssessment:     req.RiskAssessment,
	})
	if err != nil {
		respondError(c, err, "failed to flag user")
		return
	}

	if merged {
		common.SuccessResponse(c, fraudCase)
		return
	}
	common.CreatedResponse(c, fraudCase)
}

// CheckStatus reports whether a user is flagged
// GET /api/v1/fraud/check/:userId
func (h *Handler) CheckStatus(c *gin.Context) {
	userID, ok := parseID(c, "userId", "invalid user ID")
	if !ok {
		return
	}

	res, err := h.service.CheckStatus(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to check fraud status")
		return
	}
	common.SuccessResponse(c, res)
}

// ListCases lists fraud cases
// GET /api/v1/fraud/cases
func (h *Handler) ListCases(c *gin.Context) {
	params := pagination.ParseParamsWithMax(c, maxListLimit)
	filter := CaseFilter{Limit: params.Limit, Offset: params.Offset}

	if s := c.Query("status"); s != "" {
		status := CaseStatus(s)
		switch status {
		case StatusPendingReview, StatusConfirmedFraud, StatusFalsePositive, StatusMonitoring:
			filter.Status = &status
		default:
			common.ErrorResponse(c, http.StatusBadRequest, "invalid status")
			return
		}
	}

	var ok bool
	if filter.MinScore, ok = queryInt(c, "minScore"); !ok {
		return
	}
	if filter.MaxScore, ok = queryInt(c, "maxScore"); !ok {
		return
	}
	if filter.Resolved, ok = queryBool(c, "resolved"); !ok {
		return
	}
	if filter.ImmediateRisk, ok = queryBool(c, "immediateRisk"); !ok {
		return
	}

	cases, total, err := h.service.ListCases(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "failed to list fraud cases")
		return
	}
	common.SuccessResponseWithMeta(c, cases, pagination.BuildMeta(filter.Limit, filter.Offset, total))
}

// GetCase returns one fraud case
// GET /api/v1/fraud/cases/:id
func (h *Handler) GetCase(c *gin.Context) {
	caseID, ok := parseID(c, "id", "invalid case ID")
	if !ok {
		return
	}

	fraudCase, err := h.service.GetCase(c.Request.Context(), caseID)
	if err != nil {
		respondError(c, err, "failed to get fraud case")
		return
	}
	common.SuccessResponse(c, fraudCase)
}

// ReviewCase records an admin decision
// PUT /api/v1/fraud/cases/:id/review
func (h *Handler) ReviewCase(c *gin.Context) {
	adminID, caseID, ok := adminAndCase(c)
	if !ok {
		return
	}

	var req ReviewCaseRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	fraudCase, err := h.service.ReviewCase(c.Request.Context(), caseID, adminID, &req)
	if err != nil {
		respondError(c, err, "failed to review fraud case")
		return
	}
	common.SuccessResponse(c, fraudCase)
}

// ResolveCase closes a case
// PUT /api/v1/fraud/cases/:id/resolve
func (h *Handler) ResolveCase(c *gin.Context) {
	adminID, caseID, ok := adminAndCase(c)
	if !ok {
		return
	}

	var req ResolveCaseRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	fraudCase, err := h.service.ResolveCase(c.Request.Context(), caseID, adminID, &req)
	if err != nil {
		respondError(c, err, "failed to resolve fraud case")
		return
	}
	common.SuccessResponse(c, fraudCase)
}

// AddNote appends an investigator note
// POST /api/v1/fraud/cases/:id/notes
func (h *Handler) AddNote(c *gin.Context) {
	adminID, caseID, ok := adminAndCase(c)
	if !ok {
		return
	}

	var req AddNoteRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	fraudCase, err := h.service.AddNote(c.Request.Context(), caseID, adminID, req.Note)
	if err != nil {
		respondError(c, err, "failed to add note")
		return
	}
	common.SuccessResponse(c, fraudCase)
}

// Statistics returns the dashboard summary
// GET /api/v1/fraud/statistics
func (h *Handler) Statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to load fraud statistics")
		return
	}
	common.SuccessResponse(c, stats)
}

// AnalyzeSeller runs the seller analyzer on demand
// POST /api/v1/fraud/analyze-seller/:sellerId
func (h *Handler) AnalyzeSeller(c *gin.Context) {
	sellerID, ok := parseID(c, "sellerId", "invalid seller ID")
	if !ok {
		return
	}

	fraudCase, err := h.service.AnalyzeSeller(c.Request.Context(), sellerID, ReportContext{})
	if err != nil {
		respondError(c, err, "failed to analyze seller")
		return
	}

	common.SuccessResponse(c, gin.H{
		"flagged": fraudCase != nil,
		"case":    fraudCase,
	})
}

func parseID(c *gin.Context, param, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, message)
		return uuid.Nil, false
	}
	return id, true
}

func adminAndCase(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	adminID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, uuid.Nil, false
	}
	caseID, ok := parseID(c, "id", "invalid case ID")
	return adminID, caseID, ok
}

func queryInt(c *gin.Context, key string) (*int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 || v > 100 {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid "+key)
		return nil, false
	}
	return &v, true
}

func queryBool(c *gin.Context, key string) (*bool, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid "+key)
		return nil, false
	}
	return &v, true
}

func respondError(c *gin.Context, err error, fallback string) {
	if appErr, ok := common.AsAppError(err); ok {
		common.AppErrorResponse(c, appErr)
		return
	}
	common.ErrorResponse(c, http.StatusInternalServerError, fallback)
}
