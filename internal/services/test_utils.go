//go:build integration

package services

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"linguaread/internal/config"
	"linguaread/internal/database"
	"linguaread/internal/observability"

	"github.com/stretchr/testify/require"
)

// SharedTestDBSetup provides a clean, isolated database for each integration test
func SharedTestDBSetup(t *testing.T) *sql.DB {
	observabilityLogger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	dbManager := database.NewManager(observabilityLogger)

	// Require TEST_DATABASE_URL environment variable to be set
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Fatal("TEST_DATABASE_URL environment variable must be set for integration tests")
	}

	db, err := dbManager.InitDB(databaseURL)
	require.NoError(t, err)

	CleanupTestDatabase(db, t)

	return db
}

// CleanupTestDatabase truncates all application tables between tests
func CleanupTestDatabase(db *sql.DB, t *testing.T) {
	t.Helper()
	ctx := context.Background()

	cleanupQueries := []string{
		"TRUNCATE TABLE user_progress CASCADE",
		"TRUNCATE TABLE paragraph_questions CASCADE",
		"TRUNCATE TABLE important_words CASCADE",
		"TRUNCATE TABLE paragraphs CASCADE",
	}

	for _, query := range cleanupQueries {
		_, err := db.ExecContext(ctx, query)
		require.NoError(t, err, "cleanup query failed: %s", query)
	}
}

// insertTestParagraph creates a paragraph row and returns its id
func insertTestParagraph(t *testing.T, db *sql.DB, theme, content string) string {
	t.Helper()
	var id string
	err := db.QueryRow(`
		INSERT INTO paragraphs (theme, content)
		VALUES ($1, $2)
		RETURNING id
	`, theme, content).Scan(&id)
	require.NoError(t, err)
	return id
}

// insertTestQuestion creates a comprehension question row and returns its id
func insertTestQuestion(t *testing.T, db *sql.DB, paragraphID, prompt string) string {
	t.Helper()
	var id string
	err := db.QueryRow(`
		INSERT INTO paragraph_questions (paragraph_id, prompt, options, answer_index)
		VALUES ($1, $2, ARRAY['a', 'b', 'c', 'd'], 0)
		RETURNING id
	`, paragraphID, prompt).Scan(&id)
	require.NoError(t, err)
	return id
}

// insertTestWord creates a vocabulary word row and returns its id
func insertTestWord(t *testing.T, db *sql.DB, paragraphID, word string) string {
	t.Helper()
	var id string
	err := db.QueryRow(`
		INSERT INTO important_words (paragraph_id, word, meaning)
		VALUES ($1, $2, $3)
		RETURNING id
	`, paragraphID, word, "meaning of "+word).Scan(&id)
	require.NoError(t, err)
	return id
}
