// Package models defines data structures used throughout the linguaread backend.
package models

import (
	"math"
	"time"
)

// ItemType identifies which kind of learning item a progress record refers to
type ItemType string

const (
	// ItemTypeQuestion is a reading-comprehension question attached to a paragraph
	ItemTypeQuestion ItemType = "question"
	// ItemTypeWord is a vocabulary word attached to a paragraph
	ItemTypeWord ItemType = "word"
)

// Valid reports whether the item type is a recognized variant
func (t ItemType) Valid() bool {
	return t == ItemTypeQuestion || t == ItemTypeWord
}

// Result is the outcome of a user interacting with a learning item
type Result string

const (
	// ResultCorrect indicates a correct answer
	ResultCorrect Result = "correct"
	// ResultIncorrect indicates an incorrect answer
	ResultIncorrect Result = "incorrect"
)

// Valid reports whether the result is one of the two recognized outcomes
func (r Result) Valid() bool {
	return r == ResultCorrect || r == ResultIncorrect
}

// IsCorrect reports whether the result counts as a correct observation
func (r Result) IsCorrect() bool {
	return r == ResultCorrect
}

// ItemKey identifies one learning item as a (variant, id) pair. A progress
// record references exactly one item through this key; there is no separate
// nullable reference per variant.
type ItemKey struct {
	Type ItemType `json:"item_type"`
	ID   string   `json:"item_id"`
}

// Valid reports whether the key names a recognized variant with a non-empty id
func (k ItemKey) Valid() bool {
	return k.Type.Valid() && k.ID != ""
}

// Observation is a single recorded outcome of a user interacting with one
// learning item at one point in time.
type Observation struct {
	ItemID    string    `json:"item_id" validate:"required"`
	ItemType  ItemType  `json:"item_type" validate:"required"`
	Result    Result    `json:"result" validate:"required"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
}

// Key returns the item key the observation refers to
func (o Observation) Key() ItemKey {
	return ItemKey{Type: o.ItemType, ID: o.ItemID}
}

// Valid reports whether the observation can be applied to a progress record
func (o Observation) Valid() bool {
	return o.Key().Valid() && o.Result.Valid() && !o.Timestamp.IsZero()
}

// ProgressRecord is the persisted aggregate statistics for one (user, item)
// pair. At most one record exists per (UserID, ItemType, ItemID).
type ProgressRecord struct {
	ID             int64     `json:"-"`
	UserID         string    `json:"user_id"`
	ItemType       ItemType  `json:"item_type"`
	ItemID         string    `json:"item_id"`
	CorrectCount   int       `json:"correct_count"`
	WrongCount     int       `json:"wrong_count"`
	SuccessStreak  int       `json:"success_streak"`
	KnowledgeScore float64   `json:"knowledge_score"`
	LastReviewed   time.Time `json:"last_reviewed"`
	NextReview     time.Time `json:"next_review"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Key returns the item key the record aggregates over
func (r *ProgressRecord) Key() ItemKey {
	return ItemKey{Type: r.ItemType, ID: r.ItemID}
}

// NewProgressRecord returns a zeroed baseline record for the first observation
// on a (user, item) pair.
func NewProgressRecord(userID string, key ItemKey) *ProgressRecord {
	return &ProgressRecord{
		UserID:   userID,
		ItemType: key.Type,
		ItemID:   key.ID,
	}
}

// DefaultProgress returns the zero-valued record served for items the user has
// never interacted with (or for unauthenticated callers). Timestamps are the
// Unix epoch so clients can distinguish "never reviewed" from a real review.
func DefaultProgress(key ItemKey) *ProgressRecord {
	epoch := time.Unix(0, 0).UTC()
	return &ProgressRecord{
		ItemType:     key.Type,
		ItemID:       key.ID,
		LastReviewed: epoch,
		NextReview:   epoch,
	}
}

// KnowledgeScore derives the 0-100 score from observation counts, rounded to
// two decimals. Zero observations yield zero, not NaN.
func KnowledgeScore(correctCount, wrongCount int) float64 {
	total := correctCount + wrongCount
	if total == 0 {
		return 0
	}
	return math.Round(float64(correctCount)/float64(total)*100*100) / 100
}

// Paragraph is a generated reading passage with its attached learning items.
// Content is produced by the external generation pipeline; this service only
// reads it.
type Paragraph struct {
	ID        string              `json:"id"`
	Theme     string              `json:"theme"`
	Content   string              `json:"content"`
	CreatedAt time.Time           `json:"created_at"`
	Questions []ParagraphQuestion `json:"questions"`
	Words     []ImportantWord     `json:"words"`
}

// ParagraphQuestion is a comprehension question attached to a paragraph
type ParagraphQuestion struct {
	ID          string          `json:"id"`
	ParagraphID string          `json:"paragraph_id"`
	Prompt      string          `json:"prompt"`
	Options     []string        `json:"options"`
	AnswerIndex int             `json:"answer_index"`
	Progress    *ProgressRecord `json:"progress,omitempty"`
}

// ImportantWord is a vocabulary word attached to a paragraph
type ImportantWord struct {
	ID          string          `json:"id"`
	ParagraphID string          `json:"paragraph_id"`
	Word        string          `json:"word"`
	Meaning     string          `json:"meaning"`
	Progress    *ProgressRecord `json:"progress,omitempty"`
}
