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

func setupProgressRouter(progressSvc *mockProgressService, catalogSvc *mockCatalogService) *gin.Engine {
	cfg := &config.Config{}
	handler := NewProgressHandler(progressSvc, catalogSvc, cfg, testLogger())

	router := newHandlerTestRouter()
	authed := router.Group("", middleware.RequireAuth())
	authed.POST("/v1/exercises/submit", handler.SubmitExercise)
	authed.POST("/v1/progress/batch", handler.ApplyBatch)
	authed.GET("/v1/progress", handler.GetProgress)
	return router
}

func TestSubmitExercise_Success(t *testing.T) {
	now := time.Now().UTC()
	progressSvc := &mockProgressService{
		applyRecord: &models.ProgressRecord{
			UserID:         "user-1",
			ItemType:       models.ItemTypeWord,
			ItemID:         "word-1",
			CorrectCount:   3,
			WrongCount:     0,
			SuccessStreak:  3,
			KnowledgeScore: 100,
			LastReviewed:   now,
			NextReview:     now.Add(72 * time.Hour),
		},
	}
	catalogSvc := &mockCatalogService{itemExists: true}
	router := setupProgressRouter(progressSvc, catalogSvc)
	cookie := authSessionCookie(t, router, "user-1")

	body := `{"item_id": "word-1", "item_type": "word", "correct": true}`
	w := performJSON(router, "POST", "/v1/exercises/submit", body, cookie)

	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "word", response["item_type"])

	progress, ok := response["progress"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(3), progress["correct_count"])
	assert.Equal(t, float64(3), progress["success_streak"])
	assert.Equal(t, float64(100), progress["knowledge_score"])

	assert.Equal(t, "user-1", progressSvc.lastUserID)
	assert.Equal(t, models.ItemKey{Type: models.ItemTypeWord, ID: "word-1"}, progressSvc.lastKey)
	assert.True(t, progressSvc.lastCorrect)
	assert.Equal(t, models.ItemKey{Type: models.ItemTypeWord, ID: "word-1"}, catalogSvc.lastItemKey)
}

func TestSubmitExercise_Unauthenticated(t *testing.T) {
	router := setupProgressRouter(&mockProgressService{}, &mockCatalogService{itemExists: true})

	body := `{"item_id": "word-1", "item_type": "word", "correct": true}`
	w := performJSON(router, "POST", "/v1/exercises/submit", body, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, string(contextutils.ErrorCodeUnauthorized), response["code"])
}

func TestSubmitExercise_ItemNotFound(t *testing.T) {
	progressSvc := &mockProgressService{}
	catalogSvc := &mockCatalogService{itemExists: false}
	router := setupProgressRouter(progressSvc, catalogSvc)
	cookie := authSessionCookie(t, router, "user-1")

	body := `{"item_id": "missing", "item_type": "question", "correct": false}`
	w := performJSON(router, "POST", "/v1/exercises/submit", body, cookie)

	require.Equal(t, http.StatusNotFound, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, string(contextutils.ErrorCodeItemNotFound), response["code"])
	// the observation must not reach the progress service
	assert.Empty(t, progressSvc.lastUserID)
}

func TestSubmitExercise_UnknownItemType(t *testing.T) {
	catalogSvc := &mockCatalogService{existsErr: contextutils.ErrUnknownItemType}
	router := setupProgressRouter(&mockProgressService{}, catalogSvc)
	cookie := authSessionCookie(t, router, "user-1")

	body := `{"item_id": "word-1", "item_type": "sentence", "correct": true}`
	w := performJSON(router, "POST", "/v1/exercises/submit", body, cookie)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitExercise_InvalidBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "not json at all"},
		{"missing correct", `{"item_id": "word-1", "item_type": "word"}`},
		{"empty item id", `{"item_id": "", "item_type": "word", "correct": true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupProgressRouter(&mockProgressService{}, &mockCatalogService{itemExists: true})
			cookie := authSessionCookie(t, router, "user-1")

			w := performJSON(router, "POST", "/v1/exercises/submit", tt.body, cookie)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestApplyBatch_Success(t *testing.T) {
	now := time.Now().UTC()
	progressSvc := &mockProgressService{
		batchResult: map[string]*models.ProgressRecord{
			"w1": {UserID: "user-1", ItemType: models.ItemTypeWord, ItemID: "w1", CorrectCount: 2, SuccessStreak: 2, KnowledgeScore: 100, LastReviewed: now, NextReview: now.Add(120 * time.Minute)},
			"w2": {UserID: "user-1", ItemType: models.ItemTypeWord, ItemID: "w2", WrongCount: 1, LastReviewed: now, NextReview: now.Add(5 * time.Minute)},
		},
	}
	router := setupProgressRouter(progressSvc, &mockCatalogService{})
	cookie := authSessionCookie(t, router, "user-1")

	body := `{"events": [
		{"item_id": "w1", "item_type": "word", "result": "correct", "timestamp": "2026-08-30T10:00:00Z"},
		{"item_id": "w2", "item_type": "word", "result": "incorrect", "timestamp": "2026-08-30T10:00:01Z"},
		{"item_id": "w1", "item_type": "word", "result": "correct", "timestamp": "2026-08-30T10:00:02Z"}
	]}`
	w := performJSON(router, "POST", "/v1/progress/batch", body, cookie)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Progress map[string]*models.ProgressRecord `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Progress, 2)
	assert.Equal(t, 2, response.Progress["w1"].CorrectCount)
	assert.Equal(t, 1, response.Progress["w2"].WrongCount)

	// events reach the service in request order
	require.Len(t, progressSvc.lastEvents, 3)
	assert.Equal(t, "w1", progressSvc.lastEvents[0].ItemID)
	assert.Equal(t, models.ResultIncorrect, progressSvc.lastEvents[1].Result)
	assert.Equal(t, "w1", progressSvc.lastEvents[2].ItemID)
}

func TestApplyBatch_NoValidEvents(t *testing.T) {
	progressSvc := &mockProgressService{batchErr: contextutils.ErrNoValidEvents}
	router := setupProgressRouter(progressSvc, &mockCatalogService{})
	cookie := authSessionCookie(t, router, "user-1")

	w := performJSON(router, "POST", "/v1/progress/batch", `{"events": []}`, cookie)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, string(contextutils.ErrorCodeNoValidEvents), response["code"])
}

func TestApplyBatch_Unauthenticated(t *testing.T) {
	router := setupProgressRouter(&mockProgressService{}, &mockCatalogService{})

	w := performJSON(router, "POST", "/v1/progress/batch", `{"events": []}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestApplyBatch_ServiceError(t *testing.T) {
	progressSvc := &mockProgressService{
		batchErr: contextutils.NewAppError(contextutils.ErrorCodeDatabaseTransaction, contextutils.SeverityError, "Failed to commit transaction", ""),
	}
	router := setupProgressRouter(progressSvc, &mockCatalogService{})
	cookie := authSessionCookie(t, router, "user-1")

	body := `{"events": [{"item_id": "w1", "item_type": "word", "result": "correct", "timestamp": "2026-08-30T10:00:00Z"}]}`
	w := performJSON(router, "POST", "/v1/progress/batch", body, cookie)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetProgress_Success(t *testing.T) {
	now := time.Now().UTC()
	progressSvc := &mockProgressService{
		userRecords: []*models.ProgressRecord{
			{UserID: "user-1", ItemType: models.ItemTypeWord, ItemID: "w2", WrongCount: 1, LastReviewed: now, NextReview: now.Add(5 * time.Minute)},
			{UserID: "user-1", ItemType: models.ItemTypeQuestion, ItemID: "q1", CorrectCount: 1, SuccessStreak: 1, KnowledgeScore: 100, LastReviewed: now, NextReview: now.Add(time.Hour)},
		},
	}
	router := setupProgressRouter(progressSvc, &mockCatalogService{})
	cookie := authSessionCookie(t, router, "user-1")

	w := performJSON(router, "GET", "/v1/progress", "", cookie)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Progress []*models.ProgressRecord `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Progress, 2)
	assert.Equal(t, "w2", response.Progress[0].ItemID)
	assert.Equal(t, "q1", response.Progress[1].ItemID)
	assert.Equal(t, "user-1", progressSvc.lastUserID)
}

func TestGetProgress_EmptyIsArray(t *testing.T) {
	router := setupProgressRouter(&mockProgressService{}, &mockCatalogService{})
	cookie := authSessionCookie(t, router, "user-1")

	w := performJSON(router, "GET", "/v1/progress", "", cookie)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"progress": []}`, w.Body.String())
}
