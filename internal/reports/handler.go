package reports

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/middleware"
	"github.com/richxcame/gigmarket/pkg/models"
	"github.com/richxcame/gigmarket/pkg/pagination"
	"github.com/richxcame/gigmarket/pkg/ratelimit"
	"github.com/richxcame/gigmarket/pkg/storage"
	"github.com/richxcame/gigmarket/pkg/validation"
)

// maxMultipartMemory bounds the in-memory part of a multipart submission
const maxMultipartMemory = 8 << 20

// Handler handles HTTP requests for reports
type Handler struct {
	service *Service
	limiter *ratelimit.Limiter
}

// NewHandler creates a new reports handler. limiter may be nil.
func NewHandler(service *Service, limiter *ratelimit.Limiter) *Handler {
	return &Handler{service: service, limiter: limiter}
}

// RegisterRoutes registers report routes on an authenticated group
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	submit := []gin.HandlerFunc{h.SubmitReport}
	if h.limiter != nil {
		submit = append([]gin.HandlerFunc{
			ratelimit.Middleware(h.limiter, "reports", h.limiter.ReportSubmissionRule(), ratelimit.UserIdentity),
		}, submit...)
	}

	reports := api.Group("/reports")
	{
		reports.POST("", submit...)
		reports.GET("/mine", h.MyReports)
	}

	admin := api.Group("/admin/reports", middleware.RequirePermission(models.PermissionManageReports))
	{
		admin.GET("", h.ListReports)
		admin.GET("/seller/:sellerId", h.SellerHistory)
		admin.GET("/:id", h.GetReport)
		admin.PUT("/:id/review", h.ReviewReport)
		admin.PUT("/:id/resolve", h.ResolveReport)
	}
}

// SubmitReport files a report, as JSON or multipart with evidence files
// POST /api/v1/reports
func (h *Handler) SubmitReport(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	var req SubmitReportRequest
	var files []EvidenceFile
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		var err error
		if files, err = bindMultipart(c, &req); err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		if err := validation.ValidateStruct(&req); err != nil {
			middleware.RespondWithValidationError(c, err)
			return
		}
	} else if !middleware.ValidateAndBind(c, &req) {
		return
	}

	report, err := h.service.SubmitReport(c.Request.Context(), userID, &req, files)
	if err != nil {
		respondError(c, err, "failed to submit report")
		return
	}
	common.CreatedResponse(c, report)
}

func bindMultipart(c *gin.Context, req *SubmitReportRequest) ([]EvidenceFile, error) {
	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, errors.New("invalid multipart form")
	}

	var err error
	if req.ReportedUserID, err = uuid.Parse(c.PostForm("reportedUserId")); err != nil {
		return nil, errors.New("invalid reportedUserId")
	}
	if req.OrderID, err = uuid.Parse(c.PostForm("orderId")); err != nil {
		return nil, errors.New("invalid orderId")
	}
	req.Category = Category(c.PostForm("category"))
	req.Severity = Severity(c.PostForm("severity"))
	req.Description = c.PostForm("description")
	if raw := c.PostForm("evidence"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Evidence); err != nil {
			return nil, errors.New("invalid evidence")
		}
	}

	var files []EvidenceFile
	if c.Request.MultipartForm != nil {
		for _, fh := range c.Request.MultipartForm.File["files"] {
			files = append(files, fileFromHeader(fh))
		}
	}
	return files, nil
}

func fileFromHeader(fh *multipart.FileHeader) EvidenceFile {
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = storage.GetMimeTypeFromExtension(fh.Filename)
	}
	return EvidenceFile{
		Name:        fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		Open:        func() (io.ReadCloser, error) { return fh.Open() },
	}
}

// MyReports lists the caller's reports
// GET /api/v1/reports/mine
func (h *Handler) MyReports(c *gin.Context) {
	userID, ok := caller(c)
	if !ok {
		return
	}

	params := pagination.ParseParamsWithMax(c, maxListLimit)
	reports, total, err := h.service.MyReports(c.Request.Context(), userID, params.Limit, params.Offset)
	if err != nil {
		respondError(c, err, "failed to list reports")
		return
	}
	common.SuccessResponseWithMeta(c, reports, pagination.BuildMeta(params.Limit, params.Offset, total))
}

// ListReports lists reports for moderators
// GET /api/v1/admin/reports
func (h *Handler) ListReports(c *gin.Context) {
	params := pagination.ParseParamsWithMax(c, maxListLimit)
	filter := Filter{Limit: params.Limit, Offset: params.Offset}

	if s := c.Query("status"); s != "" {
		status := Status(s)
		switch status {
		case StatusPending, StatusUnderReview, StatusAccepted, StatusRejected, StatusResolved:
			filter.Status = &status
		default:
			common.ErrorResponse(c, http.StatusBadRequest, "invalid status")
			return
		}
	}
	if s := c.Query("priority"); s != "" {
		priority := Priority(s)
		switch priority {
		case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
			filter.Priority = &priority
		default:
			common.ErrorResponse(c, http.StatusBadRequest, "invalid priority")
			return
		}
	}
	if s := c.Query("category"); s != "" {
		if err := validation.ValidateVar(s, "report_category"); err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "invalid category")
			return
		}
		category := Category(s)
		filter.Category = &category
	}
	if s := c.Query("reportedUserId"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "invalid reportedUserId")
			return
		}
		filter.ReportedUserID = &id
	}
	if s := c.Query("minCredibility"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 || v > 100 {
			common.ErrorResponse(c, http.StatusBadRequest, "invalid minCredibility")
			return
		}
		filter.MinCredibility = &v
	}

	reports, total, err := h.service.ListReports(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "failed to list reports")
		return
	}
	common.SuccessResponseWithMeta(c, reports, pagination.BuildMeta(filter.Limit, filter.Offset, total))
}

// GetReport returns one report
// GET /api/v1/admin/reports/:id
func (h *Handler) GetReport(c *gin.Context) {
	reportID, ok := parseID(c, "id", "invalid report ID")
	if !ok {
		return
	}

	report, err := h.service.GetReport(c.Request.Context(), reportID)
	if err != nil {
		respondError(c, err, "failed to get report")
		return
	}
	common.SuccessResponse(c, report)
}

// ReviewReport records a moderator decision
// PUT /api/v1/admin/reports/:id/review
func (h *Handler) ReviewReport(c *gin.Context) {
	adminID, ok := caller(c)
	if !ok {
		return
	}
	reportID, ok := parseID(c, "id", "invalid report ID")
	if !ok {
		return
	}

	var req ReviewReportRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	report, err := h.service.ReviewReport(c.Request.Context(), reportID, adminID, &req)
	if err != nil {
		respondError(c, err, "failed to review report")
		return
	}
	common.SuccessResponse(c, report)
}

// ResolveReport closes a reviewed report
// PUT /api/v1/admin/reports/:id/resolve
func (h *Handler) ResolveReport(c *gin.Context) {
	adminID, ok := caller(c)
	if !ok {
		return
	}
	reportID, ok := parseID(c, "id", "invalid report ID")
	if !ok {
		return
	}

	var req ResolveReportRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	report, err := h.service.ResolveReport(c.Request.Context(), reportID, adminID, &req)
	if err != nil {
		respondError(c, err, "failed to resolve report")
		return
	}
	common.SuccessResponse(c, report)
}

// SellerHistory returns the report history of a seller
// GET /api/v1/admin/reports/seller/:sellerId
func (h *Handler) SellerHistory(c *gin.Context) {
	sellerID, ok := parseID(c, "sellerId", "invalid seller ID")
	if !ok {
		return
	}

	history, err := h.service.SellerHistory(c.Request.Context(), sellerID)
	if err != nil {
		respondError(c, err, "failed to load seller reports")
		return
	}
	common.SuccessResponse(c, history)
}

func caller(c *gin.Context) (uuid.UUID, bool) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, false
	}
	return userID, true
}

func parseID(c *gin.Context, param, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, message)
		return uuid.Nil, false
	}
	return id, true
}

func respondError(c *gin.Context, err error, fallback string) {
	if appErr, ok := common.AsAppError(err); ok {
		common.AppErrorResponse(c, appErr)
		return
	}
	common.ErrorResponse(c, http.StatusInternalServerError, fallback)
}
