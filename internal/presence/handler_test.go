package presence

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/richxcame/gigmarket/pkg/middleware"
	"github.com/richxcame/gigmarket/pkg/models"
	ws "github.com/richxcame/gigmarket/pkg/websocket"
	"github.com/richxcame/gigmarket/test/helpers"
)

const testSecret = "presence-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func startServer(t *testing.T, origins []string) (*ws.Hub, *httptest.Server) {
	t.Helper()
	hub := ws.NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	router := gin.New()
	api := router.Group("/api/v1", middleware.AuthMiddleware(testSecret))
	NewHandler(hub, origins, zap.NewNop()).RegisterRoutes(api)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, token string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws?token=" + token
	return websocket.DefaultDialer.Dial(url, header)
}

func TestHandleWebSocket_RegistersClient(t *testing.T) {
	hub, server := startServer(t, nil)
	userID := uuid.New()

	conn, _, err := dial(t, server, helpers.SignToken(t, testSecret, userID, models.RoleBuyer, ""), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.IsOnline(userID.String()) }, time.Second, 5*time.Millisecond)
}

func TestHandleWebSocket_PresenceBroadcast(t *testing.T) {
	_, server := startServer(t, nil)
	first, second := uuid.New(), uuid.New()

	conn1, _, err := dial(t, server, helpers.SignToken(t, testSecret, first, models.RoleBuyer, ""), nil)
	require.NoError(t, err)
	defer conn1.Close()
	time.Sleep(50 * time.Millisecond)

	conn2, _, err := dial(t, server, helpers.SignToken(t, testSecret, second, models.RoleSeller, ""), nil)
	require.NoError(t, err)
	defer conn2.Close()

	_ = conn1.SetReadDeadline(time.Now().Add(time.Second))
	var msg ws.Message
	require.NoError(t, conn1.ReadJSON(&msg))
	assert.Equal(t, ws.TypeUserOnline, msg.Type)
	assert.Equal(t, second.String(), msg.UserID)
}

func TestHandleWebSocket_RejectsMissingToken(t *testing.T) {
	_, server := startServer(t, nil)

	_, resp, err := dial(t, server, "", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandleWebSocket_RejectsForeignOrigin(t *testing.T) {
	_, server := startServer(t, []string{"https://app.gigmarket.test"})
	token := helpers.SignToken(t, testSecret, uuid.New(), models.RoleBuyer, "")

	_, resp, err := dial(t, server, token, http.Header{"Origin": []string{"https://evil.test"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dial(t, server, token, http.Header{"Origin": []string{"https://app.gigmarket.test"}})
	require.NoError(t, err)
	conn.Close()
}

func TestGetPresence(t *testing.T) {
	hub := ws.NewHub(zap.NewNop())
	router := gin.New()
	api := router.Group("/api/v1", helpers.AuthAs(uuid.New(), models.RoleBuyer))
	NewHandler(hub, nil, nil).RegisterRoutes(api)

	userID := uuid.New()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/presence/"+userID.String(), nil))

	require.Equal(t, http.StatusOK, w.Code)
	var out map[string]interface{}
	helpers.DecodeData(t, w, &out)
	assert.Equal(t, false, out["online"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/presence/bogus", nil))
	helpers.AssertErrorResponse(t, w, http.StatusBadRequest, "invalid user ID")
}

func TestGetStats_RequiresAdmin(t *testing.T) {
	hub := ws.NewHub(zap.NewNop())

	router := gin.New()
	api := router.Group("/api/v1", helpers.AuthAs(uuid.New(), models.RoleSeller))
	NewHandler(hub, nil, nil).RegisterRoutes(api)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/presence/stats", nil))
	helpers.AssertErrorResponse(t, w, http.StatusForbidden, "insufficient permissions")

	router = gin.New()
	api = router.Group("/api/v1", helpers.AuthAs(uuid.New(), models.RoleAdmin))
	NewHandler(hub, nil, nil).RegisterRoutes(api)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/presence/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var out map[string]interface{}
	helpers.DecodeData(t, w, &out)
	assert.EqualValues(t, 0, out["connected_clients"])
}
