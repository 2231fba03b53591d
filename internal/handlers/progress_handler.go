package handlers

import (
	"net/http"

	"linguaread/internal/config"
	"linguaread/internal/models"
	"linguaread/internal/observability"
	"linguaread/internal/services"
	contextutils "linguaread/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// SubmitExerciseRequest is the body of POST /v1/exercises/submit
type SubmitExerciseRequest struct {
	ItemID   string          `json:"item_id" validate:"required"`
	ItemType models.ItemType `json:"item_type" validate:"required"`
	Correct  *bool           `json:"correct" validate:"required"`
}

// ProgressBatchRequest is the body of POST /v1/progress/batch
type ProgressBatchRequest struct {
	Events []models.Observation `json:"events"`
}

// ProgressHandler serves the observation apply endpoints and progress listings
type ProgressHandler struct {
	progressService services.ProgressServiceInterface
	catalogService  services.CatalogServiceInterface
	cfg             *config.Config
	logger          *observability.Logger
}

// NewProgressHandler creates a new ProgressHandler
func NewProgressHandler(progressService services.ProgressServiceInterface, catalogService services.CatalogServiceInterface, cfg *config.Config, logger *observability.Logger) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
		catalogService:  catalogService,
		cfg:             cfg,
		logger:          logger,
	}
}

// SubmitExercise applies a single observation and returns the updated record
func (h *ProgressHandler) SubmitExercise(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "submit_exercise")
	defer observability.FinishSpan(span, nil)

	userID, exists := GetUserIDFromSession(c)
	if !exists {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	var req SubmitExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error(ctx, "Invalid submit request format", err, map[string]interface{}{
			"user_id": userID,
		})
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request format",
			"",
			err,
		))
		return
	}
	if err := contextutils.ValidateStruct(&req); err != nil {
		HandleAppError(c, err)
		return
	}

	key := models.ItemKey{Type: req.ItemType, ID: req.ItemID}
	span.SetAttributes(
		observability.AttributeItemID(key.ID),
		observability.AttributeItemType(key.Type),
		attribute.Bool("observation.correct", *req.Correct),
	)

	exists, err := h.catalogService.ItemExists(ctx, key)
	if err != nil {
		h.logger.Error(ctx, "Failed to check item existence", err, map[string]interface{}{
			"user_id":   userID,
			"item_id":   key.ID,
			"item_type": key.Type,
		})
		HandleAppError(c, err)
		return
	}
	if !exists {
		HandleAppError(c, contextutils.ErrItemNotFound)
		return
	}

	record, err := h.progressService.ApplyObservation(ctx, userID, key, *req.Correct)
	if err != nil {
		h.logger.Error(ctx, "Failed to apply observation", err, map[string]interface{}{
			"user_id":   userID,
			"item_id":   key.ID,
			"item_type": key.Type,
		})
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"item_type": record.ItemType,
		"progress":  record,
	})
}

// ApplyBatch applies an ordered batch of observations atomically
func (h *ProgressHandler) ApplyBatch(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "apply_batch")
	defer observability.FinishSpan(span, nil)

	userID, exists := GetUserIDFromSession(c)
	if !exists {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	var req ProgressBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error(ctx, "Invalid batch request format", err, map[string]interface{}{
			"user_id": userID,
		})
		HandleAppError(c, contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid request format",
			"",
			err,
		))
		return
	}

	span.SetAttributes(observability.AttributeBatchSize(len(req.Events)))

	result, err := h.progressService.ApplyObservations(ctx, userID, req.Events)
	if err != nil {
		h.logger.Error(ctx, "Failed to apply observation batch", err, map[string]interface{}{
			"user_id": userID,
			"events":  len(req.Events),
		})
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"progress": result,
	})
}

// GetProgress returns all of the caller's progress records, due items first
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_progress")
	defer observability.FinishSpan(span, nil)

	userID, exists := GetUserIDFromSession(c)
	if !exists {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	records, err := h.progressService.GetUserProgress(ctx, userID)
	if err != nil {
		h.logger.Error(ctx, "Failed to get user progress", err, map[string]interface{}{
			"user_id": userID,
		})
		HandleAppError(c, err)
		return
	}
	if records == nil {
		records = []*models.ProgressRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"progress": records,
	})
}
