package mongodb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/finbot-ai/agent-platform/pkg/logger"
)

const seedBatchSize = 1000

// Seeder performs the one-time load of profile seed data into an empty
// collection at startup.
type Seeder struct {
	profiles *ProfileRepository
	path     string
	logger   *logger.Logger
}

// NewSeeder creates a seeder reading seed records from the JSON file at
// path.
func NewSeeder(profiles *ProfileRepository, path string, log *logger.Logger) *Seeder {
	return &Seeder{profiles: profiles, path: path, logger: log}
}

// Seed loads the seed file into the profile collection unless it already
// holds documents. It is idempotent across restarts.
func (s *Seeder) Seed(ctx context.Context) error {
	count, err := s.profiles.Count(ctx)
	if err != nil {
		return fmt.Errorf("check profile collection: %w", err)
	}
	if count > 0 {
		s.logger.Info("profile collection already seeded", zap.Int64("documents", count))
		return nil
	}

	records, err := s.load()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		s.logger.Warn("no profile seed data found", zap.String("path", s.path))
		return nil
	}

	inserted := 0
	for start := 0; start < len(records); start += seedBatchSize {
		end := start + seedBatchSize
		if end > len(records) {
			end = len(records)
		}
		n, err := s.profiles.InsertBatch(ctx, records[start:end])
		if err != nil {
			return fmt.Errorf("seed batch starting at %d: %w", start, err)
		}
		inserted += n
	}

	if err := s.profiles.EnsureIndexes(ctx); err != nil {
		// Missing indexes slow queries down but do not break lookups.
		s.logger.Warn("failed to create profile indexes", zap.Error(err))
	}

	s.logger.Info("seeded profile collection", zap.Int("documents", inserted))
	return nil
}

func (s *Seeder) load() ([]any, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read seed file %s: %w", s.path, err)
	}

	var records []map[string]any
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", s.path, err)
	}

	docs := make([]any, len(records))
	for i, record := range records {
		docs[i] = record
	}
	return docs, nil
}
