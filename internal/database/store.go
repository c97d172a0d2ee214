package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/magda-sequencer/internal/models"
)

// ErrProjectNotFound is returned for unknown or malformed project IDs
var ErrProjectNotFound = errors.New("project not found")

// ProjectRecord stores one arrangement snapshot. Tempo, length and seed
// are copied out of the snapshot for listing.
type ProjectRecord struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Name      string         `gorm:"index" json:"name"`
	BPM       float64        `gorm:"not null" json:"bpm"`
	Bars      int            `gorm:"not null" json:"bars"`
	Seed      int            `gorm:"not null" json:"seed"`
	Snapshot  string         `gorm:"type:jsonb;not null" json:"-"`
}

// TableName overrides the default table name
func (ProjectRecord) TableName() string {
	return "projects"
}

// ProjectSummary is a listing row
type ProjectSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	BPM       float64   `json:"bpm"`
	Bars      int       `json:"bars"`
	Seed      int       `json:"seed"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store reads and writes arrangement snapshots
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open connection
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// SaveArrangement inserts arr, or replaces the stored snapshot when
// arr.ProjectID names an existing project. It returns the project ID.
func (s *Store) SaveArrangement(ctx context.Context, arr *models.Arrangement) (string, error) {
	record, err := NewRecord(arr)
	if err != nil {
		return "", err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&ProjectRecord{}).
			Where("id = ?", record.ID).
			Select("name", "bpm", "bars", "seed", "snapshot").
			Updates(record)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}
		return tx.Create(record).Error
	})
	if err != nil {
		return "", fmt.Errorf("failed to save project: %w", err)
	}
	return record.ID.String(), nil
}

// LoadArrangement returns the snapshot stored under id
func (s *Store) LoadArrangement(ctx context.Context, id string) (*models.Arrangement, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrProjectNotFound
	}

	var record ProjectRecord
	if err := s.db.WithContext(ctx).First(&record, "id = ?", pid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	return record.Arrangement()
}

// DeleteArrangement soft-deletes the project
func (s *Store) DeleteArrangement(ctx context.Context, id string) error {
	pid, err := uuid.Parse(id)
	if err != nil {
		return ErrProjectNotFound
	}

	result := s.db.WithContext(ctx).Delete(&ProjectRecord{}, "id = ?", pid)
	if result.Error != nil {
		return fmt.Errorf("failed to delete project: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// ListProjects returns summaries, most recently updated first
func (s *Store) ListProjects(ctx context.Context) ([]ProjectSummary, error) {
	var records []ProjectRecord
	if err := s.db.WithContext(ctx).
		Select("id", "name", "bpm", "bars", "seed", "updated_at").
		Order("updated_at DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	summaries := make([]ProjectSummary, 0, len(records))
	for _, r := range records {
		summaries = append(summaries, ProjectSummary{
			ID:        r.ID.String(),
			Name:      r.Name,
			BPM:       r.BPM,
			Bars:      r.Bars,
			Seed:      r.Seed,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return summaries, nil
}

// NewRecord converts an arrangement into a record, assigning a fresh ID
// when arr.ProjectID is not a UUID. arr.ProjectID is updated to match.
func NewRecord(arr *models.Arrangement) (*ProjectRecord, error) {
	if arr == nil {
		return nil, errors.New("nil arrangement")
	}

	id, err := uuid.Parse(arr.ProjectID)
	if err != nil {
		id = uuid.New()
	}
	arr.ProjectID = id.String()

	snapshot, err := json.Marshal(arr)
	if err != nil {
		return nil, fmt.Errorf("failed to encode arrangement: %w", err)
	}

	return &ProjectRecord{
		ID:       id,
		Name:     arr.ProjectName,
		BPM:      arr.BPM,
		Bars:     arr.Bars,
		Seed:     arr.Seed,
		Snapshot: string(snapshot),
	}, nil
}

// Arrangement decodes the stored snapshot
func (r *ProjectRecord) Arrangement() (*models.Arrangement, error) {
	var arr models.Arrangement
	if err := json.Unmarshal([]byte(r.Snapshot), &arr); err != nil {
		return nil, fmt.Errorf("failed to decode project %s: %w", r.ID, err)
	}
	arr.ProjectID = r.ID.String()
	return &arr, nil
}
