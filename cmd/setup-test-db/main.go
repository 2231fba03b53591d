// Package main provides a utility to set up the test database with seed
// content. Paragraphs, questions and words are loaded from a YAML file so
// integration tests and local development start from a known catalog.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"linguaread/internal/config"
	"linguaread/internal/database"
	"linguaread/internal/observability"
	contextutils "linguaread/internal/utils"

	"github.com/lib/pq"
	"gopkg.in/yaml.v3"
)

// SeedQuestion is one comprehension question in the seed file
type SeedQuestion struct {
	Prompt      string   `yaml:"prompt"`
	Options     []string `yaml:"options"`
	AnswerIndex int      `yaml:"answer_index"`
}

// SeedWord is one vocabulary word in the seed file
type SeedWord struct {
	Word    string `yaml:"word"`
	Meaning string `yaml:"meaning"`
}

// SeedParagraph is one paragraph with its attached items
type SeedParagraph struct {
	Theme     string         `yaml:"theme"`
	Content   string         `yaml:"content"`
	Questions []SeedQuestion `yaml:"questions"`
	Words     []SeedWord     `yaml:"words"`
}

// SeedData is the top-level structure of the seed file
type SeedData struct {
	Paragraphs []SeedParagraph `yaml:"paragraphs"`
}

func main() {
	seedFile := flag.String("seed", "testdata/seed.yaml", "Path to the YAML seed file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false

	_, _, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "setup-test-db")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}

	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		databaseURL = cfg.Database.URL
	}

	dbManager := database.NewManager(logger)
	db, err := dbManager.InitDB(databaseURL)
	if err != nil {
		logger.Error(ctx, "Failed to initialize database", err, map[string]interface{}{"db_url": databaseURL})
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	seed, err := loadSeedData(*seedFile)
	if err != nil {
		logger.Error(ctx, "Failed to load seed file", err, map[string]interface{}{"seed_file": *seedFile})
		os.Exit(1)
	}

	inserted, err := applySeed(ctx, db, seed)
	if err != nil {
		logger.Error(ctx, "Failed to apply seed data", err, map[string]interface{}{"seed_file": *seedFile})
		os.Exit(1)
	}

	logger.Info(ctx, "Test database seeded", map[string]interface{}{
		"seed_file":  *seedFile,
		"paragraphs": inserted,
	})
	fmt.Printf("Seeded %d paragraphs from %s\n", inserted, *seedFile)
}

// loadSeedData parses the YAML seed file
func loadSeedData(path string) (*SeedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to read seed file %s", path)
	}

	var seed SeedData
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to parse seed file %s", path)
	}
	return &seed, nil
}

// applySeed inserts the seed catalog in one transaction
func applySeed(ctx context.Context, db *sql.DB, seed *SeedData) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, paragraph := range seed.Paragraphs {
		var paragraphID string
		err = tx.QueryRowContext(ctx, `
			INSERT INTO paragraphs (theme, content)
			VALUES ($1, $2)
			RETURNING id
		`, paragraph.Theme, paragraph.Content).Scan(&paragraphID)
		if err != nil {
			return 0, contextutils.WrapErrorf(err, "failed to insert paragraph %q", paragraph.Theme)
		}

		for _, question := range paragraph.Questions {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO paragraph_questions (paragraph_id, prompt, options, answer_index)
				VALUES ($1, $2, $3, $4)
			`, paragraphID, question.Prompt, pq.Array(question.Options), question.AnswerIndex)
			if err != nil {
				return 0, contextutils.WrapErrorf(err, "failed to insert question %q", question.Prompt)
			}
		}

		for _, word := range paragraph.Words {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO important_words (paragraph_id, word, meaning)
				VALUES ($1, $2, $3)
			`, paragraphID, word.Word, word.Meaning)
			if err != nil {
				return 0, contextutils.WrapErrorf(err, "failed to insert word %q", word.Word)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, contextutils.WrapError(err, "failed to commit transaction")
	}
	return len(seed.Paragraphs), nil
}
