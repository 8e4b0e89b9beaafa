package accounts

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/middleware"
	"github.com/richxcame/gigmarket/pkg/models"
)

// Handler handles account administration requests
type Handler struct {
	service *Service
}

// NewHandler creates a new accounts handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers admin user routes on an authenticated group
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	users := api.Group("/admin/users", middleware.RequirePermission(models.PermissionManageUsers))
	users.GET("/:id", h.GetUser)
	users.PUT("/:id/status", h.UpdateStatus)
}

// GetUser returns an account
// GET /api/v1/admin/users/:id
func (h *Handler) GetUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid user ID")
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to get user")
		return
	}
	common.SuccessResponse(c, user)
}

// UpdateStatus suspends or reactivates an account
// PUT /api/v1/admin/users/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	adminID, err := middleware.GetUserID(c)
	if err != nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid user ID")
		return
	}

	var req UpdateStatusRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	user, err := h.service.UpdateStatus(c.Request.Context(), adminID, userID, &req)
	if err != nil {
		respondError(c, err, "failed to update user status")
		return
	}
	common.SuccessResponse(c, user)
}

func respondError(c *gin.Context, err error, fallback string) {
	if appErr, ok := common.AsAppError(err); ok {
		common.AppErrorResponse(c, appErr)
		return
	}
	common.ErrorResponse(c, http.StatusInternalServerError, fallback)
}
