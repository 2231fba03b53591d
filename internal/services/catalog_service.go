package services

import (
	"context"
	"database/sql"

	"linguaread/internal/config"
	"linguaread/internal/models"
	"linguaread/internal/observability"
	contextutils "linguaread/internal/utils"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
)

// CatalogServiceInterface defines the interface for reading generated content
type CatalogServiceInterface interface {
	ListParagraphs(ctx context.Context, userID string, limit, offset int) ([]*models.Paragraph, error)
	GetParagraph(ctx context.Context, userID, paragraphID string) (*models.Paragraph, error)
	ItemExists(ctx context.Context, key models.ItemKey) (bool, error)
}

// CatalogService reads paragraphs and their attached learning items. Content
// is produced by the external generation pipeline; this service never writes
// it. When a user id is supplied, each item carries that user's progress
// record, or a zeroed default if they have never interacted with it.
type CatalogService struct {
	db              *sql.DB
	cfg             *config.Config
	logger          *observability.Logger
	progressService ProgressServiceInterface
}

// NewCatalogServiceWithLogger creates a new CatalogService with a logger
func NewCatalogServiceWithLogger(db *sql.DB, cfg *config.Config, progressService ProgressServiceInterface, logger *observability.Logger) *CatalogService {
	return &CatalogService{
		db:              db,
		cfg:             cfg,
		logger:          logger,
		progressService: progressService,
	}
}

// ListParagraphs returns a page of paragraphs newest first, with questions,
// words and the caller's progress embedded.
func (s *CatalogService) ListParagraphs(ctx context.Context, userID string, limit, offset int) (result0 []*models.Paragraph, err error) {
	ctx, span := observability.TraceCatalogFunction(ctx, "list_paragraphs",
		observability.AttributeUserID(userID),
		observability.AttributeLimit(limit),
		observability.AttributeOffset(offset),
	)
	defer observability.FinishSpan(span, &err)

	if limit <= 0 {
		limit = config.DefaultParagraphPageSize
	}
	if limit > config.MaxParagraphPageSize {
		limit = config.MaxParagraphPageSize
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, theme, content, created_at
		FROM paragraphs
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query paragraphs")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close paragraph rows", closeErr)
		}
	}()

	var paragraphs []*models.Paragraph
	for rows.Next() {
		paragraph := &models.Paragraph{}
		if err := rows.Scan(&paragraph.ID, &paragraph.Theme, &paragraph.Content, &paragraph.CreatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan paragraph")
		}
		paragraphs = append(paragraphs, paragraph)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate paragraphs")
	}

	if len(paragraphs) == 0 {
		return []*models.Paragraph{}, nil
	}

	if err := s.attachItems(ctx, paragraphs); err != nil {
		return nil, err
	}
	if err := s.attachProgress(ctx, userID, paragraphs); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("paragraphs.count", len(paragraphs)))
	return paragraphs, nil
}

// GetParagraph returns one paragraph with items and the caller's progress embedded
func (s *CatalogService) GetParagraph(ctx context.Context, userID, paragraphID string) (result0 *models.Paragraph, err error) {
	ctx, span := observability.TraceCatalogFunction(ctx, "get_paragraph",
		observability.AttributeUserID(userID),
		attribute.String("paragraph.id", paragraphID),
	)
	defer observability.FinishSpan(span, &err)

	paragraph := &models.Paragraph{}
	err = s.db.QueryRowContext(ctx,
		"SELECT id, theme, content, created_at FROM paragraphs WHERE id = $1",
		paragraphID,
	).Scan(&paragraph.ID, &paragraph.Theme, &paragraph.Content, &paragraph.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, contextutils.ErrRecordNotFound
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query paragraph")
	}

	paragraphs := []*models.Paragraph{paragraph}
	if err := s.attachItems(ctx, paragraphs); err != nil {
		return nil, err
	}
	if err := s.attachProgress(ctx, userID, paragraphs); err != nil {
		return nil, err
	}

	return paragraph, nil
}

// ItemExists reports whether a learning item of the given variant exists
func (s *CatalogService) ItemExists(ctx context.Context, key models.ItemKey) (result0 bool, err error) {
	ctx, span := observability.TraceCatalogFunction(ctx, "item_exists",
		observability.AttributeItemID(key.ID),
		observability.AttributeItemType(key.Type),
	)
	defer observability.FinishSpan(span, &err)

	var table string
	switch key.Type {
	case models.ItemTypeQuestion:
		table = "paragraph_questions"
	case models.ItemTypeWord:
		table = "important_words"
	default:
		return false, contextutils.ErrUnknownItemType
	}

	var exists bool
	err = s.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM "+table+" WHERE id = $1)", key.ID).Scan(&exists)
	if err != nil {
		return false, contextutils.WrapError(err, "failed to check item existence")
	}
	return exists, nil
}

// attachItems loads the questions and words for the given paragraphs in two queries
func (s *CatalogService) attachItems(ctx context.Context, paragraphs []*models.Paragraph) error {
	ids := make([]string, 0, len(paragraphs))
	byID := make(map[string]*models.Paragraph, len(paragraphs))
	for _, paragraph := range paragraphs {
		ids = append(ids, paragraph.ID)
		byID[paragraph.ID] = paragraph
		paragraph.Questions = []models.ParagraphQuestion{}
		paragraph.Words = []models.ImportantWord{}
	}

	questionRows, err := s.db.QueryContext(ctx, `
		SELECT id, paragraph_id, prompt, options, answer_index
		FROM paragraph_questions
		WHERE paragraph_id = ANY($1)
		ORDER BY paragraph_id, id
	`, pq.Array(ids))
	if err != nil {
		return contextutils.WrapError(err, "failed to query paragraph questions")
	}
	defer func() {
		if closeErr := questionRows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close question rows", closeErr)
		}
	}()

	for questionRows.Next() {
		var question models.ParagraphQuestion
		if err := questionRows.Scan(&question.ID, &question.ParagraphID, &question.Prompt, pq.Array(&question.Options), &question.AnswerIndex); err != nil {
			return contextutils.WrapError(err, "failed to scan paragraph question")
		}
		if paragraph, ok := byID[question.ParagraphID]; ok {
			paragraph.Questions = append(paragraph.Questions, question)
		}
	}
	if err := questionRows.Err(); err != nil {
		return contextutils.WrapError(err, "failed to iterate paragraph questions")
	}

	wordRows, err := s.db.QueryContext(ctx, `
		SELECT id, paragraph_id, word, meaning
		FROM important_words
		WHERE paragraph_id = ANY($1)
		ORDER BY paragraph_id, id
	`, pq.Array(ids))
	if err != nil {
		return contextutils.WrapError(err, "failed to query important words")
	}
	defer func() {
		if closeErr := wordRows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close word rows", closeErr)
		}
	}()

	for wordRows.Next() {
		var word models.ImportantWord
		if err := wordRows.Scan(&word.ID, &word.ParagraphID, &word.Word, &word.Meaning); err != nil {
			return contextutils.WrapError(err, "failed to scan important word")
		}
		if paragraph, ok := byID[word.ParagraphID]; ok {
			paragraph.Words = append(paragraph.Words, word)
		}
	}
	if err := wordRows.Err(); err != nil {
		return contextutils.WrapError(err, "failed to iterate important words")
	}

	return nil
}

// attachProgress attaches the user's record, or a zeroed default, to every
// item. The lookup is one bulk read across all questions and words in the
// page. An empty user id (unauthenticated caller) gets defaults throughout.
func (s *CatalogService) attachProgress(ctx context.Context, userID string, paragraphs []*models.Paragraph) error {
	var keys []models.ItemKey
	for _, paragraph := range paragraphs {
		for i := range paragraph.Questions {
			keys = append(keys, models.ItemKey{Type: models.ItemTypeQuestion, ID: paragraph.Questions[i].ID})
		}
		for i := range paragraph.Words {
			keys = append(keys, models.ItemKey{Type: models.ItemTypeWord, ID: paragraph.Words[i].ID})
		}
	}

	records := map[models.ItemKey]*models.ProgressRecord{}
	if userID != "" && len(keys) > 0 {
		var err error
		records, err = s.progressService.GetProgressForItems(ctx, userID, keys)
		if err != nil {
			return err
		}
	}

	for _, paragraph := range paragraphs {
		for i := range paragraph.Questions {
			key := models.ItemKey{Type: models.ItemTypeQuestion, ID: paragraph.Questions[i].ID}
			if record, ok := records[key]; ok {
				paragraph.Questions[i].Progress = record
			} else {
				paragraph.Questions[i].Progress = models.DefaultProgress(key)
			}
		}
		for i := range paragraph.Words {
			key := models.ItemKey{Type: models.ItemTypeWord, ID: paragraph.Words[i].ID}
			if record, ok := records[key]; ok {
				paragraph.Words[i].Progress = record
			} else {
				paragraph.Words[i].Progress = models.DefaultProgress(key)
			}
		}
	}

	return nil
}
