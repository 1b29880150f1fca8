package sink

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/codeGROOVE-dev/prospector/pkg/profile"
)

// SQLite upserts profiles into a local database file through gorm.
type SQLite struct {
	db *gorm.DB
}

// NewSQLite opens path, creating the file and table when missing.
func NewSQLite(path string) (*SQLite, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Name implements Sink.
func (*SQLite) Name() string { return "sqlite" }

// Close releases the database handle.
func (s *SQLite) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// Save implements Sink.
func (s *SQLite) Save(ctx context.Context, profiles []profile.ScoredProfile) error {
	if len(profiles) == 0 {
		return nil
	}
	records := make([]Record, 0, len(profiles))
	for i := range profiles {
		r, err := NewRecord(&profiles[i])
		if err != nil {
			return err
		}
		records = append(records, r)
	}
	update := make([]string, 0, len(postgresColumns))
	for _, c := range postgresColumns {
		if c != "platform" && c != "profile_url" && c != "created_at" {
			update = append(update, c)
		}
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "platform"}, {Name: "profile_url"}},
		DoUpdates: clause.AssignmentColumns(update),
	}).CreateInBatches(&records, BatchSize).Error
	if err != nil {
		return fmt.Errorf("upsert profiles: %w", err)
	}
	return nil
}

// Count returns the number of stored profiles.
func (s *SQLite) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Record{}).Count(&n).Error
	return n, err
}

// Load returns stored records ordered by overall score.
func (s *SQLite) Load(ctx context.Context) ([]Record, error) {
	var out []Record
	err := s.db.WithContext(ctx).Order("overall_score desc, id").Find(&out).Error
	return out, err
}
