package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"linguaread/internal/config"
	"linguaread/internal/models"
	"linguaread/internal/observability"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// mockProgressService is a hand-written mock for ProgressServiceInterface
type mockProgressService struct {
	applyRecord  *models.ProgressRecord
	applyErr     error
	batchResult  map[string]*models.ProgressRecord
	batchErr     error
	itemsResult  map[models.ItemKey]*models.ProgressRecord
	itemsErr     error
	userRecords  []*models.ProgressRecord
	userErr      error
	resetDeleted int64
	resetErr     error

	lastUserID  string
	lastKey     models.ItemKey
	lastCorrect bool
	lastEvents  []models.Observation
}

func (m *mockProgressService) ApplyObservation(_ context.Context, userID string, key models.ItemKey, correct bool) (*models.ProgressRecord, error) {
	m.lastUserID = userID
	m.lastKey = key
	m.lastCorrect = correct
	return m.applyRecord, m.applyErr
}

func (m *mockProgressService) ApplyObservations(_ context.Context, userID string, events []models.Observation) (map[string]*models.ProgressRecord, error) {
	m.lastUserID = userID
	m.lastEvents = events
	return m.batchResult, m.batchErr
}

func (m *mockProgressService) GetProgressForItems(_ context.Context, userID string, _ []models.ItemKey) (map[models.ItemKey]*models.ProgressRecord, error) {
	m.lastUserID = userID
	return m.itemsResult, m.itemsErr
}

func (m *mockProgressService) GetUserProgress(_ context.Context, userID string) ([]*models.ProgressRecord, error) {
	m.lastUserID = userID
	return m.userRecords, m.userErr
}

func (m *mockProgressService) ResetUserProgress(_ context.Context, userID string) (int64, error) {
	m.lastUserID = userID
	return m.resetDeleted, m.resetErr
}

// mockCatalogService is a hand-written mock for CatalogServiceInterface
type mockCatalogService struct {
	paragraphs  []*models.Paragraph
	listErr     error
	paragraph   *models.Paragraph
	getErr      error
	itemExists  bool
	existsErr   error
	lastUserID  string
	lastLimit   int
	lastOffset  int
	lastItemKey models.ItemKey
}

func (m *mockCatalogService) ListParagraphs(_ context.Context, userID string, limit, offset int) ([]*models.Paragraph, error) {
	m.lastUserID = userID
	m.lastLimit = limit
	m.lastOffset = offset
	return m.paragraphs, m.listErr
}

func (m *mockCatalogService) GetParagraph(_ context.Context, userID, _ string) (*models.Paragraph, error) {
	m.lastUserID = userID
	return m.paragraph, m.getErr
}

func (m *mockCatalogService) ItemExists(_ context.Context, key models.ItemKey) (bool, error) {
	m.lastItemKey = key
	return m.itemExists, m.existsErr
}

func testLogger() *observability.Logger {
	return observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
}

func newHandlerTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	store := cookie.NewStore([]byte("test-secret"))
	router.Use(sessions.Sessions("test-session", store))
	return router
}

func authSessionCookie(t *testing.T, router *gin.Engine, userID string) *http.Cookie {
	t.Helper()
	setupPath := "/setup-session-" + strings.ReplaceAll(t.Name(), "/", "-")
	router.GET(setupPath, func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set("user_id", userID)
		require.NoError(t, session.Save())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("GET", setupPath, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func performJSON(router *gin.Engine, method, path, body string, sessionCookie *http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if sessionCookie != nil {
		req.AddCookie(sessionCookie)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
