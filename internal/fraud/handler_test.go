package fraud

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/gigmarket/pkg/common"
	"github.com/richxcame/gigmarket/pkg/models"
	"github.com/richxcame/gigmarket/test/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupRouter(f *fixture, role models.UserRole, perms ...models.Permission) (*gin.Engine, uuid.UUID) {
	gin.SetMode(gin.TestMode)
	adminID := uuid.New()
	r := gin.New()
	api := r.Group("/api/v1", helpers.AuthAs(adminID, role, perms...))
	NewHandler(f.service).RegisterRoutes(api)
	return r, adminID
}

func adminRouter(f *fixture) (*gin.Engine, uuid.UUID) {
	return setupRouter(f, models.RoleAdmin, models.PermissionManageFraud)
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_RequiresFraudPermission(t *testing.T) {
	f := newFixture(false)

	t.Run("non admin", func(t *testing.T) {
		r, _ := setupRouter(f, models.RoleBuyer)
		w := doJSON(r, http.MethodGet, "/api/v1/fraud/statistics", nil)
		helpers.AssertErrorResponse(t, w, http.StatusForbidden, "insufficient permissions")
	})

	t.Run("admin without permission", func(t *testing.T) {
		r, _ := setupRouter(f, models.RoleAdmin, models.PermissionManageReports)
		w := doJSON(r, http.MethodGet, "/api/v1/fraud/statistics", nil)
		helpers.AssertErrorResponse(t, w, http.StatusForbidden, "insufficient permissions")
	})
}

func TestHandler_FlagUser(t *testing.T) {
	userID := uuid.New()
	body := map[string]interface{}{
		"userId":     userID,
		"fraudScore": 70,
		"flags": []map[string]interface{}{
			{"category": "payment", "severity": "high", "description": "card testing"},
		},
		"triggeringEvent": map[string]interface{}{"type": "payment"},
	}

	t.Run("created", func(t *testing.T) {
		f := newFixture(false)
		f.repo.On("UserSnapshot", mock.Anything, userID).Return(&UserSnapshot{}, nil).Once()
		f.repo.On("ListUserCases", mock.Anything, userID).Return(nil, nil).Once()
		echoUpsert(f, false)

		r, _ := adminRouter(f)
		w := doJSON(r, http.MethodPost, "/api/v1/fraud/flag", body)
		require.Equal(t, http.StatusCreated, w.Code)

		var got Case
		helpers.DecodeData(t, w, &got)
		assert.Equal(t, userID, got.UserID)
		assert.Equal(t, StatusPendingReview, got.Status)
	})

	t.Run("merged", func(t *testing.T) {
		f := newFixture(false)
		f.repo.On("UserSnapshot", mock.Anything, userID).Return(&UserSnapshot{}, nil).Once()
		f.repo.On("ListUserCases", mock.Anything, userID).Return(nil, nil).Once()
		echoUpsert(f, true)

		r, _ := adminRouter(f)
		w := doJSON(r, http.MethodPost, "/api/v1/fraud/flag", body)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid flag category", func(t *testing.T) {
		f := newFixture(false)
		r, _ := adminRouter(f)
		bad := map[string]interface{}{
			"userId":          userID,
			"fraudScore":      70,
			"flags":           []map[string]interface{}{{"category": "vibes", "severity": "high", "description": "x"}},
			"triggeringEvent": map[string]interface{}{"type": "payment"},
		}
		w := doJSON(r, http.MethodPost, "/api/v1/fraud/flag", bad)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_CheckStatus(t *testing.T) {
	f := newFixture(false)
	userID := uuid.New()
	f.cache.On("Get", mock.Anything, userID).Return(&StatusResult{UserID: userID, RecommendedAction: ActionNone}, true)

	r, _ := adminRouter(f)
	w := doJSON(r, http.MethodGet, "/api/v1/fraud/check/"+userID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got StatusResult
	helpers.DecodeData(t, w, &got)
	assert.False(t, got.IsFlagged)
	assert.Equal(t, ActionNone, got.RecommendedAction)

	w = doJSON(r, http.MethodGet, "/api/v1/fraud/check/nope", nil)
	helpers.AssertErrorResponse(t, w, http.StatusBadRequest, "invalid user ID")
}

func TestHandler_ListCases(t *testing.T) {
	t.Run("filters", func(t *testing.T) {
		f := newFixture(false)
		status := StatusPendingReview
		minScore := 60
		resolved := false
		f.repo.On("ListCases", mock.Anything, CaseFilter{
			Status:   &status,
			MinScore: &minScore,
			Resolved: &resolved,
			Limit:    10,
			Offset:   20,
		}).Return([]*Case{{ID: uuid.New()}}, int64(21), nil).Once()

		r, _ := adminRouter(f)
		w := doJSON(r, http.MethodGet, "/api/v1/fraud/cases?status=pending_review&minScore=60&resolved=false&limit=10&offset=20", nil)
		require.Equal(t, http.StatusOK, w.Code)

		env := helpers.DecodeEnvelope(t, w)
		require.NotNil(t, env.Meta)
		assert.Equal(t, int64(21), env.Meta.Total)
	})

	t.Run("bad status", func(t *testing.T) {
		r, _ := adminRouter(newFixture(false))
		w := doJSON(r, http.MethodGet, "/api/v1/fraud/cases?status=open", nil)
		helpers.AssertErrorResponse(t, w, http.StatusBadRequest, "invalid status")
	})

	t.Run("bad score", func(t *testing.T) {
		r, _ := adminRouter(newFixture(false))
		w := doJSON(r, http.MethodGet, "/api/v1/fraud/cases?maxScore=500", nil)
		helpers.AssertErrorResponse(t, w, http.StatusBadRequest, "invalid maxScore")
	})
}

func TestHandler_ReviewCase(t *testing.T) {
	caseID := uuid.New()

	t.Run("conflict on resolved case", func(t *testing.T) {
		f := newFixture(false)
		f.repo.On("ApplyReview", mock.Anything, caseID, StatusFalsePositive, mock.Anything, mock.Anything).
			Return(nil, common.NewConflictError("fraud case already resolved")).Once()

		r, _ := adminRouter(f)
		w := doJSON(r, http.MethodPut, "/api/v1/fraud/cases/"+caseID.String()+"/review", map[string]string{"decision": "dismissed"})
		helpers.AssertErrorResponse(t, w, http.StatusConflict, "fraud case already resolved")
	})

	t.Run("reviewer is the caller", func(t *testing.T) {
		f := newFixture(false)
		r, adminID := adminRouter(f)
		f.repo.On("ApplyReview", mock.Anything, caseID, StatusMonitoring,
			mock.MatchedBy(func(rv *Review) bool { return rv.ReviewedBy == adminID }), (*Resolution)(nil)).
			Return(&Case{ID: caseID, Status: StatusMonitoring}, nil).Once()

		w := doJSON(r, http.MethodPut, "/api/v1/fraud/cases/"+caseID.String()+"/review", map[string]string{"decision": "needs_more_info"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid decision", func(t *testing.T) {
		r, _ := adminRouter(newFixture(false))
		w := doJSON(r, http.MethodPut, "/api/v1/fraud/cases/"+caseID.String()+"/review", map[string]string{"decision": "maybe"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_AddNote(t *testing.T) {
	f := newFixture(false)
	caseID := uuid.New()
	f.repo.On("AppendNote", mock.Anything, caseID, mock.AnythingOfType("string")).
		Return(nil, common.NewNotFoundError("fraud case not found", nil)).Once()

	r, _ := adminRouter(f)
	w := doJSON(r, http.MethodPost, "/api/v1/fraud/cases/"+caseID.String()+"/notes", map[string]string{"note": "hello"})
	helpers.AssertErrorResponse(t, w, http.StatusNotFound, "fraud case not found")
}

func TestHandler_AnalyzeSeller(t *testing.T) {
	f := newFixture(false)
	sellerID := uuid.New()
	f.repo.On("SellerReports", mock.Anything, sellerID).Return(nil, nil).Once()
	f.repo.On("SellerOrderStats", mock.Anything, sellerID).Return(&OrderStats{}, nil).Once()

	r, _ := adminRouter(f)
	w := doJSON(r, http.MethodPost, "/api/v1/fraud/analyze-seller/"+sellerID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Flagged bool `json:"flagged"`
	}
	helpers.DecodeData(t, w, &got)
	assert.False(t, got.Flagged)
}
