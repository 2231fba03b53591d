package handlers

import (
	"net/http"
	"strconv"

	"linguaread/internal/config"
	"linguaread/internal/observability"
	"linguaread/internal/services"
	contextutils "linguaread/internal/utils"

	"github.com/gin-gonic/gin"
)

// CatalogHandler serves paragraph listings with embedded per-user progress
type CatalogHandler struct {
	catalogService services.CatalogServiceInterface
	cfg            *config.Config
	logger         *observability.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalogService services.CatalogServiceInterface, cfg *config.Config, logger *observability.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		cfg:            cfg,
		logger:         logger,
	}
}

// ListParagraphs returns a page of paragraphs with questions, words and the
// caller's progress. Anonymous callers get zeroed default progress.
func (h *CatalogHandler) ListParagraphs(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_paragraphs")
	defer observability.FinishSpan(span, nil)

	// Progress attachment is best effort for anonymous callers
	userID, _ := GetUserIDFromSession(c)

	limit := h.cfg.Server.ParagraphPageSize
	if limit <= 0 {
		limit = config.DefaultParagraphPageSize
	}
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			HandleValidationError(c, "limit", raw, "must be a positive integer")
			return
		}
		limit = parsed
	}

	offset := 0
	if raw := c.Query("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			HandleValidationError(c, "offset", raw, "must be a non-negative integer")
			return
		}
		offset = parsed
	}

	span.SetAttributes(
		observability.AttributeUserID(userID),
		observability.AttributeLimit(limit),
		observability.AttributeOffset(offset),
	)

	paragraphs, err := h.catalogService.ListParagraphs(ctx, userID, limit, offset)
	if err != nil {
		h.logger.Error(ctx, "Failed to list paragraphs", err, map[string]interface{}{
			"user_id": userID,
			"limit":   limit,
			"offset":  offset,
		})
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"paragraphs": paragraphs,
		"limit":      limit,
		"offset":     offset,
	})
}

// GetParagraph returns one paragraph by id with embedded progress
func (h *CatalogHandler) GetParagraph(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_paragraph")
	defer observability.FinishSpan(span, nil)

	userID, _ := GetUserIDFromSession(c)

	paragraphID := c.Param("id")
	if !contextutils.IsNonEmptyID(paragraphID) {
		HandleValidationError(c, "id", paragraphID, "must be a non-empty id")
		return
	}

	paragraph, err := h.catalogService.GetParagraph(ctx, userID, paragraphID)
	if err != nil {
		h.logger.Error(ctx, "Failed to get paragraph", err, map[string]interface{}{
			"user_id":      userID,
			"paragraph_id": paragraphID,
		})
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, paragraph)
}
