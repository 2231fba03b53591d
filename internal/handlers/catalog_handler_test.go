package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"linguaread/internal/config"
	"linguaread/internal/middleware"
	"linguaread/internal/models"
	contextutils "linguaread/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCatalogRouter(catalogSvc *mockCatalogService, pageSize int) *gin.Engine {
	cfg := &config.Config{}
	cfg.Server.ParagraphPageSize = pageSize
	handler := NewCatalogHandler(catalogSvc, cfg, testLogger())

	router := newHandlerTestRouter()
	public := router.Group("", middleware.OptionalAuth())
	public.GET("/v1/paragraphs", handler.ListParagraphs)
	public.GET("/v1/paragraphs/:id", handler.GetParagraph)
	return router
}

func testParagraph() *models.Paragraph {
	return &models.Paragraph{
		ID:        "para-1",
		Theme:     "travel",
		Content:   "A short passage about travel.",
		CreatedAt: time.Now().UTC(),
		Questions: []models.ParagraphQuestion{
			{
				ID:          "q1",
				ParagraphID: "para-1",
				Prompt:      "What is the passage about?",
				Options:     []string{"travel", "food", "music", "sports"},
				AnswerIndex: 0,
				Progress:    models.DefaultProgress(models.ItemKey{Type: models.ItemTypeQuestion, ID: "q1"}),
			},
		},
		Words: []models.ImportantWord{
			{
				ID:          "w1",
				ParagraphID: "para-1",
				Word:        "journey",
				Meaning:     "an act of travelling",
				Progress:    models.DefaultProgress(models.ItemKey{Type: models.ItemTypeWord, ID: "w1"}),
			},
		},
	}
}

func TestListParagraphs_Success(t *testing.T) {
	catalogSvc := &mockCatalogService{paragraphs: []*models.Paragraph{testParagraph()}}
	router := setupCatalogRouter(catalogSvc, 20)
	cookie := authSessionCookie(t, router, "user-1")

	w := performJSON(router, "GET", "/v1/paragraphs", "", cookie)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Paragraphs []*models.Paragraph `json:"paragraphs"`
		Limit      int                 `json:"limit"`
		Offset     int                 `json:"offset"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Paragraphs, 1)
	assert.Equal(t, "para-1", response.Paragraphs[0].ID)
	require.Len(t, response.Paragraphs[0].Questions, 1)
	require.NotNil(t, response.Paragraphs[0].Questions[0].Progress)
	assert.Equal(t, 20, response.Limit)
	assert.Equal(t, 0, response.Offset)

	assert.Equal(t, "user-1", catalogSvc.lastUserID)
	assert.Equal(t, 20, catalogSvc.lastLimit)
	assert.Equal(t, 0, catalogSvc.lastOffset)
}

func TestListParagraphs_Anonymous(t *testing.T) {
	catalogSvc := &mockCatalogService{paragraphs: []*models.Paragraph{}}
	router := setupCatalogRouter(catalogSvc, 20)

	w := performJSON(router, "GET", "/v1/paragraphs", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, catalogSvc.lastUserID)
}

func TestListParagraphs_Pagination(t *testing.T) {
	catalogSvc := &mockCatalogService{paragraphs: []*models.Paragraph{}}
	router := setupCatalogRouter(catalogSvc, 20)

	w := performJSON(router, "GET", "/v1/paragraphs?limit=5&offset=10", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, catalogSvc.lastLimit)
	assert.Equal(t, 10, catalogSvc.lastOffset)
}

func TestListParagraphs_DefaultPageSize(t *testing.T) {
	catalogSvc := &mockCatalogService{paragraphs: []*models.Paragraph{}}
	router := setupCatalogRouter(catalogSvc, 0)

	w := performJSON(router, "GET", "/v1/paragraphs", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, config.DefaultParagraphPageSize, catalogSvc.lastLimit)
}

func TestListParagraphs_InvalidQueryParams(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"limit not a number", "/v1/paragraphs?limit=abc"},
		{"limit zero", "/v1/paragraphs?limit=0"},
		{"limit negative", "/v1/paragraphs?limit=-1"},
		{"offset not a number", "/v1/paragraphs?offset=xyz"},
		{"offset negative", "/v1/paragraphs?offset=-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalogSvc := &mockCatalogService{}
			router := setupCatalogRouter(catalogSvc, 20)

			w := performJSON(router, "GET", tt.path, "", nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var response map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, string(contextutils.ErrorCodeInvalidInput), response["code"])
		})
	}
}

func TestGetParagraph_Success(t *testing.T) {
	catalogSvc := &mockCatalogService{paragraph: testParagraph()}
	router := setupCatalogRouter(catalogSvc, 20)
	cookie := authSessionCookie(t, router, "user-1")

	w := performJSON(router, "GET", "/v1/paragraphs/para-1", "", cookie)

	require.Equal(t, http.StatusOK, w.Code)

	var paragraph models.Paragraph
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &paragraph))
	assert.Equal(t, "para-1", paragraph.ID)
	require.Len(t, paragraph.Words, 1)
	assert.Equal(t, "journey", paragraph.Words[0].Word)
}

func TestGetParagraph_NotFound(t *testing.T) {
	catalogSvc := &mockCatalogService{getErr: contextutils.ErrRecordNotFound}
	router := setupCatalogRouter(catalogSvc, 20)

	w := performJSON(router, "GET", "/v1/paragraphs/missing", "", nil)

	require.Equal(t, http.StatusNotFound, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, string(contextutils.ErrorCodeRecordNotFound), response["code"])
}
