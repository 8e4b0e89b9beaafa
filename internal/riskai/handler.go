package riskai

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/middleware"
	"github.com/richxcame/gigmarket/pkg/models"
)

// Handler exposes on-demand order analysis to fraud admins
type Handler struct {
	service *Service
}

// NewHandler creates a new risk handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the analysis route under /fraud
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	fraud := api.Group("/fraud", middleware.RequirePermission(models.PermissionManageFraud))
	fraud.POST("/analyze-order/:orderId", h.AnalyzeOrder)
}

// AnalyzeOrder runs the AI risk signal for an order
// POST /api/v1/fraud/analyze-order/:orderId
func (h *Handler) AnalyzeOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid order ID")
		return
	}

	analysis, err := h.service.AnalyzeOrder(c.Request.Context(), orderID)
	if err != nil {
		if appErr, ok := common.AsAppError(err); ok {
			common.AppErrorResponse(c, appErr)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to analyze order")
		return
	}

	common.SuccessResponse(c, analysis)
}
