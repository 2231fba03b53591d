package services

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"linguaread/internal/config"
	"linguaread/internal/models"
	"linguaread/internal/observability"
	contextutils "linguaread/internal/utils"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
)

// ProgressServiceInterface defines the interface for the progress tracking service
type ProgressServiceInterface interface {
	ApplyObservation(ctx context.Context, userID string, key models.ItemKey, correct bool) (*models.ProgressRecord, error)
	ApplyObservations(ctx context.Context, userID string, events []models.Observation) (map[string]*models.ProgressRecord, error)
	GetProgressForItems(ctx context.Context, userID string, keys []models.ItemKey) (map[models.ItemKey]*models.ProgressRecord, error)
	GetUserProgress(ctx context.Context, userID string) ([]*models.ProgressRecord, error)
	ResetUserProgress(ctx context.Context, userID string) (int64, error)
}

// ProgressService maintains per-(user, item) aggregate statistics and review
// scheduling. All writes go through upserts keyed on (user_id, item_type,
// item_id); updates to an existing row take a row lock first so concurrent
// observations for the same key serialize instead of losing updates.
type ProgressService struct {
	db           *sql.DB
	cfg          *config.Config
	logger       *observability.Logger
	singlePolicy SchedulePolicy
	batchPolicy  SchedulePolicy
}

// NewProgressServiceWithLogger creates a new ProgressService with a logger
func NewProgressServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) (*ProgressService, error) {
	singlePolicy, err := PolicyFromName(cfg.Progress.SinglePolicyName())
	if err != nil {
		return nil, err
	}
	batchPolicy, err := PolicyFromName(cfg.Progress.BatchPolicyName())
	if err != nil {
		return nil, err
	}
	return &ProgressService{
		db:           db,
		cfg:          cfg,
		logger:       logger,
		singlePolicy: singlePolicy,
		batchPolicy:  batchPolicy,
	}, nil
}

// applyToRecord folds one observation into a record in place. The record's
// counters and streak accumulate, the knowledge score is recomputed from the
// new counts, and the next review is scheduled from the new streak.
func applyToRecord(record *models.ProgressRecord, correct bool, observedAt time.Time, policy SchedulePolicy) {
	if correct {
		record.CorrectCount++
		record.SuccessStreak++
	} else {
		record.WrongCount++
		record.SuccessStreak = 0
	}
	record.KnowledgeScore = models.KnowledgeScore(record.CorrectCount, record.WrongCount)
	record.LastReviewed = observedAt
	record.NextReview = observedAt.Add(policy.ReviewDelay(record.SuccessStreak, correct))
}

// ApplyObservation records a single outcome for one (user, item) pair and
// returns the updated record. The read-modify-write runs inside one
// transaction with the row locked, so concurrent calls for the same key
// serialize rather than racing.
func (s *ProgressService) ApplyObservation(ctx context.Context, userID string, key models.ItemKey, correct bool) (result0 *models.ProgressRecord, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "apply_observation",
		observability.AttributeUserID(userID),
		observability.AttributeItemID(key.ID),
		observability.AttributeItemType(key.Type),
		attribute.Bool("observation.correct", correct),
	)
	defer observability.FinishSpan(span, &err)

	if userID == "" {
		return nil, contextutils.ErrUnauthorized
	}
	if !key.Type.Valid() {
		return nil, contextutils.ErrUnknownItemType
	}
	if key.ID == "" {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityWarn, "item id is required", "")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				s.logger.Error(ctx, "Failed to roll back progress transaction", rbErr)
			}
		}
	}()

	record, err := s.lockRecord(ctx, tx, userID, key)
	if err != nil {
		return nil, err
	}

	applyToRecord(record, correct, time.Now().UTC(), s.singlePolicy)

	if err = s.upsertRecord(ctx, tx, record); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, contextutils.WrapError(err, "failed to commit progress transaction")
	}

	return record, nil
}

// ApplyObservations applies an ordered batch of outcomes atomically and
// returns the resulting record per touched item id. Invalid events are
// dropped; if none survive the call fails. Multiple events for the same item
// fold in input order against an in-memory view, so counters and the streak
// thread through the whole batch before a single write per item.
func (s *ProgressService) ApplyObservations(ctx context.Context, userID string, events []models.Observation) (result0 map[string]*models.ProgressRecord, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "apply_observations",
		observability.AttributeUserID(userID),
		observability.AttributeBatchSize(len(events)),
	)
	defer observability.FinishSpan(span, &err)

	if userID == "" {
		return nil, contextutils.ErrUnauthorized
	}

	valid := make([]models.Observation, 0, len(events))
	for _, event := range events {
		if event.Valid() {
			valid = append(valid, event)
		}
	}
	span.SetAttributes(attribute.Int("batch.valid_events", len(valid)))
	if len(valid) == 0 {
		return nil, contextutils.ErrNoValidEvents
	}
	if dropped := len(events) - len(valid); dropped > 0 {
		s.logger.Warn(ctx, "Dropped invalid observations from batch", map[string]interface{}{
			"user_id": userID,
			"dropped": dropped,
		})
	}

	keys := batchKeys(valid)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				s.logger.Error(ctx, "Failed to roll back batch progress transaction", rbErr)
			}
		}
	}()

	records, err := s.lockRecords(ctx, tx, userID, keys)
	if err != nil {
		return nil, err
	}

	foldBatch(records, valid, time.Now().UTC(), s.batchPolicy)

	result := make(map[string]*models.ProgressRecord, len(records))
	for _, key := range keys {
		record := records[key]
		if err = s.upsertRecord(ctx, tx, record); err != nil {
			return nil, err
		}
		result[key.ID] = record
	}

	if err = tx.Commit(); err != nil {
		return nil, contextutils.WrapError(err, "failed to commit batch progress transaction")
	}

	return result, nil
}

// batchKeys returns the distinct item keys of a batch, sorted by type then id.
// Concurrent batches touching the same keys then acquire their row locks in
// the same order regardless of how the callers ordered their events.
func batchKeys(events []models.Observation) []models.ItemKey {
	keys := make([]models.ItemKey, 0, len(events))
	seen := make(map[models.ItemKey]bool, len(events))
	for _, event := range events {
		key := event.Key()
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Type != keys[j].Type {
			return keys[i].Type < keys[j].Type
		}
		return keys[i].ID < keys[j].ID
	})
	return keys
}

// foldBatch applies events in input order against the in-memory records, not
// the store, so counters and the streak thread through the whole batch.
// Scheduling uses the server-side observedAt; the client-supplied event
// timestamps carry ordering only and never move last_reviewed or next_review.
func foldBatch(records map[models.ItemKey]*models.ProgressRecord, events []models.Observation, observedAt time.Time, policy SchedulePolicy) {
	for _, event := range events {
		applyToRecord(records[event.Key()], event.Result.IsCorrect(), observedAt, policy)
	}
}

// ensureRows inserts zeroed baseline rows for any keys the user has no record
// for yet. Locking alone cannot serialize the first observation on a key
// (there is no row to lock), so the baseline insert makes the row exist before
// it is read under lock. The conflict target absorbs concurrent inserts.
func (s *ProgressService) ensureRows(ctx context.Context, tx *sql.Tx, userID string, keys []models.ItemKey) error {
	query := `
		INSERT INTO user_progress (user_id, item_type, item_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, item_type, item_id) DO NOTHING
	`
	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, query, userID, key.Type, key.ID); err != nil {
			return contextutils.WrapError(err, "failed to ensure progress row")
		}
	}
	return nil
}

// lockRecord fetches one record inside the transaction with a row lock,
// creating a zeroed baseline row first if the user has never interacted with
// the item. Concurrent observations for the same key serialize on the lock.
func (s *ProgressService) lockRecord(ctx context.Context, tx *sql.Tx, userID string, key models.ItemKey) (*models.ProgressRecord, error) {
	if err := s.ensureRows(ctx, tx, userID, []models.ItemKey{key}); err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, item_type, item_id, correct_count, wrong_count,
		       success_streak, knowledge_score, last_reviewed, next_review,
		       created_at, updated_at
		FROM user_progress
		WHERE user_id = $1 AND item_type = $2 AND item_id = $3
		FOR UPDATE
	`

	record := &models.ProgressRecord{}
	err := tx.QueryRowContext(ctx, query, userID, key.Type, key.ID).Scan(
		&record.ID, &record.UserID, &record.ItemType, &record.ItemID,
		&record.CorrectCount, &record.WrongCount,
		&record.SuccessStreak, &record.KnowledgeScore,
		&record.LastReviewed, &record.NextReview,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to read progress record")
	}
	return record, nil
}

// lockRecords fetches the records for all given keys in one query, locking
// the rows for the duration of the transaction. Baseline rows are created
// first, so every key is present in the result.
func (s *ProgressService) lockRecords(ctx context.Context, tx *sql.Tx, userID string, keys []models.ItemKey) (map[models.ItemKey]*models.ProgressRecord, error) {
	if err := s.ensureRows(ctx, tx, userID, keys); err != nil {
		return nil, err
	}

	questionIDs, wordIDs := splitKeysByType(keys)

	query := `
		SELECT id, user_id, item_type, item_id, correct_count, wrong_count,
		       success_streak, knowledge_score, last_reviewed, next_review,
		       created_at, updated_at
		FROM user_progress
		WHERE user_id = $1
		  AND ((item_type = 'question' AND item_id = ANY($2))
		    OR (item_type = 'word' AND item_id = ANY($3)))
		FOR UPDATE
	`

	rows, err := tx.QueryContext(ctx, query, userID, pq.Array(questionIDs), pq.Array(wordIDs))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to read progress records")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close progress rows", closeErr)
		}
	}()

	records := make(map[models.ItemKey]*models.ProgressRecord, len(keys))
	for rows.Next() {
		record := &models.ProgressRecord{}
		if err := rows.Scan(
			&record.ID, &record.UserID, &record.ItemType, &record.ItemID,
			&record.CorrectCount, &record.WrongCount,
			&record.SuccessStreak, &record.KnowledgeScore,
			&record.LastReviewed, &record.NextReview,
			&record.CreatedAt, &record.UpdatedAt,
		); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan progress record")
		}
		records[record.Key()] = record
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate progress records")
	}

	return records, nil
}

// upsertRecord persists a record, creating it on the first observation for
// the (user, item) pair and replacing the aggregate columns afterwards.
func (s *ProgressService) upsertRecord(ctx context.Context, tx *sql.Tx, record *models.ProgressRecord) error {
	query := `
		INSERT INTO user_progress (
			user_id, item_type, item_id, correct_count, wrong_count,
			success_streak, knowledge_score, last_reviewed, next_review,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, item_type, item_id) DO UPDATE SET
			correct_count = EXCLUDED.correct_count,
			wrong_count = EXCLUDED.wrong_count,
			success_streak = EXCLUDED.success_streak,
			knowledge_score = EXCLUDED.knowledge_score,
			last_reviewed = EXCLUDED.last_reviewed,
			next_review = EXCLUDED.next_review,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRowContext(ctx, query,
		record.UserID,
		record.ItemType,
		record.ItemID,
		record.CorrectCount,
		record.WrongCount,
		record.SuccessStreak,
		record.KnowledgeScore,
		record.LastReviewed,
		record.NextReview,
	).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return contextutils.WrapError(err, "failed to upsert progress record")
	}
	return nil
}

// GetProgressForItems fetches all existing records for a set of item keys in
// one read. Missing keys are simply absent from the result; callers project a
// zeroed default for those.
func (s *ProgressService) GetProgressForItems(ctx context.Context, userID string, keys []models.ItemKey) (result0 map[models.ItemKey]*models.ProgressRecord, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "get_progress_for_items",
		observability.AttributeUserID(userID),
		attribute.Int("items.count", len(keys)),
	)
	defer observability.FinishSpan(span, &err)

	records := make(map[models.ItemKey]*models.ProgressRecord, len(keys))
	if userID == "" || len(keys) == 0 {
		return records, nil
	}

	questionIDs, wordIDs := splitKeysByType(keys)

	query := `
		SELECT id, user_id, item_type, item_id, correct_count, wrong_count,
		       success_streak, knowledge_score, last_reviewed, next_review,
		       created_at, updated_at
		FROM user_progress
		WHERE user_id = $1
		  AND ((item_type = 'question' AND item_id = ANY($2))
		    OR (item_type = 'word' AND item_id = ANY($3)))
	`

	rows, err := s.db.QueryContext(ctx, query, userID, pq.Array(questionIDs), pq.Array(wordIDs))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query progress records")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close progress rows", closeErr)
		}
	}()

	for rows.Next() {
		record := &models.ProgressRecord{}
		if err := rows.Scan(
			&record.ID, &record.UserID, &record.ItemType, &record.ItemID,
			&record.CorrectCount, &record.WrongCount,
			&record.SuccessStreak, &record.KnowledgeScore,
			&record.LastReviewed, &record.NextReview,
			&record.CreatedAt, &record.UpdatedAt,
		); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan progress record")
		}
		records[record.Key()] = record
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate progress records")
	}

	return records, nil
}

// GetUserProgress returns all of a user's records, due items first
func (s *ProgressService) GetUserProgress(ctx context.Context, userID string) (result0 []*models.ProgressRecord, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "get_user_progress",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	if userID == "" {
		return nil, contextutils.ErrUnauthorized
	}

	query := `
		SELECT id, user_id, item_type, item_id, correct_count, wrong_count,
		       success_streak, knowledge_score, last_reviewed, next_review,
		       created_at, updated_at
		FROM user_progress
		WHERE user_id = $1
		ORDER BY next_review ASC, item_type ASC, item_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query user progress")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close progress rows", closeErr)
		}
	}()

	var records []*models.ProgressRecord
	for rows.Next() {
		record := &models.ProgressRecord{}
		if err := rows.Scan(
			&record.ID, &record.UserID, &record.ItemType, &record.ItemID,
			&record.CorrectCount, &record.WrongCount,
			&record.SuccessStreak, &record.KnowledgeScore,
			&record.LastReviewed, &record.NextReview,
			&record.CreatedAt, &record.UpdatedAt,
		); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan progress record")
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate user progress")
	}

	return records, nil
}

// ResetUserProgress deletes all of a user's records and returns the number removed
func (s *ProgressService) ResetUserProgress(ctx context.Context, userID string) (result0 int64, err error) {
	ctx, span := observability.TraceProgressFunction(ctx, "reset_user_progress",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	if userID == "" {
		return 0, contextutils.ErrUnauthorized
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM user_progress WHERE user_id = $1", userID)
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to reset user progress")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to count reset progress rows")
	}

	s.logger.Info(ctx, "Reset user progress", map[string]interface{}{
		"user_id": userID,
		"deleted": affected,
	})
	return affected, nil
}

// splitKeysByType partitions item keys into question and word id lists
func splitKeysByType(keys []models.ItemKey) (questionIDs, wordIDs []string) {
	questionIDs = make([]string, 0, len(keys))
	wordIDs = make([]string, 0, len(keys))
	for _, key := range keys {
		switch key.Type {
		case models.ItemTypeQuestion:
			questionIDs = append(questionIDs, key.ID)
		case models.ItemTypeWord:
			wordIDs = append(wordIDs, key.ID)
		}
	}
	return questionIDs, wordIDs
}
