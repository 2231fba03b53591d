//go:build integration

package main

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"linguaread/internal/config"
	"linguaread/internal/database"
	"linguaread/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ResetDBIntegrationTestSuite exercises the drop-and-recreate cycle against a
// real database.
type ResetDBIntegrationTestSuite struct {
	suite.Suite
	DB        *sql.DB
	DBManager *database.Manager
	Logger    *observability.Logger
}

func TestResetDBIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(ResetDBIntegrationTestSuite))
}

func (suite *ResetDBIntegrationTestSuite) SetupSuite() {
	testDBURL := os.Getenv("TEST_DATABASE_URL")
	if testDBURL == "" {
		suite.T().Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	suite.Logger = observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	suite.DBManager = database.NewManager(suite.Logger)

	db, err := suite.DBManager.InitDB(testDBURL)
	require.NoError(suite.T(), err)
	suite.DB = db
}

func (suite *ResetDBIntegrationTestSuite) TearDownSuite() {
	if suite.DB != nil {
		_ = suite.DB.Close()
	}
}

func (suite *ResetDBIntegrationTestSuite) TestDropAndRecreate() {
	ctx := context.Background()

	// Seed a row so the reset has something to destroy
	_, err := suite.DB.ExecContext(ctx, "INSERT INTO paragraphs (theme, content) VALUES ('t', 'c')")
	require.NoError(suite.T(), err)

	dropStatements := []string{
		"DROP TABLE IF EXISTS user_progress CASCADE",
		"DROP TABLE IF EXISTS paragraph_questions CASCADE",
		"DROP TABLE IF EXISTS important_words CASCADE",
		"DROP TABLE IF EXISTS paragraphs CASCADE",
		"DROP TABLE IF EXISTS schema_migrations CASCADE",
	}
	for _, statement := range dropStatements {
		_, err := suite.DB.ExecContext(ctx, statement)
		require.NoError(suite.T(), err)
	}

	require.NoError(suite.T(), suite.DBManager.RunMigrations(suite.DB))

	// Tables exist again and are empty
	for _, table := range []string{"paragraphs", "paragraph_questions", "important_words", "user_progress"} {
		var count int64
		err := suite.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
		require.NoError(suite.T(), err, "table %s should exist after reset", table)
		assert.Zero(suite.T(), count, "table %s should be empty after reset", table)
	}
}
