// Package sqlite persists snapshots in a SQLite database through GORM.
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/isaacphi/promptwheel/internal/domain"
	"github.com/isaacphi/promptwheel/internal/repository"
)

type templateRow struct {
	ID            string `gorm:"primaryKey"`
	Name          string
	Description   string
	Body          string
	DefaultValues string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (templateRow) TableName() string { return "templates" }

type versionRow struct {
	ID            string `gorm:"primaryKey"`
	TemplateID    string `gorm:"index"`
	Sequence      int
	Name          string
	Description   string
	Body          string
	DefaultValues string
	CreatedBy     string
	CreatedAt     time.Time
	Active        bool
}

func (versionRow) TableName() string { return "versions" }

type usageRow struct {
	ID         string `gorm:"primaryKey"`
	TemplateID string `gorm:"index"`
	VersionID  *string
	UserID     string
	Timestamp  time.Time
	Context    string
}

func (usageRow) TableName() string { return "usage_records" }

type performanceRow struct {
	UsageID   string `gorm:"primaryKey"`
	Metrics   string
	Feedback  string
	Timestamp time.Time
}

func (performanceRow) TableName() string { return "performance_records" }

type Store struct {
	db *gorm.DB
}

// New opens the database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&templateRow{}, &versionRow{}, &usageRow{}, &performanceRow{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

var _ repository.SnapshotStore = (*Store)(nil)

// Save replaces the stored snapshot inside a single transaction.
func (s *Store) Save(ctx context.Context, snap *domain.Snapshot) error {
	templates, versions, usage, performance, err := toRows(snap)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&performanceRow{}, &usageRow{}, &versionRow{}, &templateRow{}} {
			if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
				return fmt.Errorf("failed to clear table: %w", err)
			}
		}
		if len(templates) > 0 {
			if err := tx.Create(&templates).Error; err != nil {
				return fmt.Errorf("failed to write templates: %w", err)
			}
		}
		if len(versions) > 0 {
			if err := tx.Create(&versions).Error; err != nil {
				return fmt.Errorf("failed to write versions: %w", err)
			}
		}
		if len(usage) > 0 {
			if err := tx.Create(&usage).Error; err != nil {
				return fmt.Errorf("failed to write usage records: %w", err)
			}
		}
		if len(performance) > 0 {
			if err := tx.Create(&performance).Error; err != nil {
				return fmt.Errorf("failed to write performance records: %w", err)
			}
		}
		return nil
	})
}

// Load reads every table back into a snapshot.
func (s *Store) Load(ctx context.Context) (*domain.Snapshot, error) {
	snap := domain.NewSnapshot()
	db := s.db.WithContext(ctx)

	var templates []templateRow
	if err := db.Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("failed to read templates: %w", err)
	}
	for _, row := range templates {
		tmpl, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		snap.Templates[tmpl.ID] = tmpl
	}

	var versions []versionRow
	if err := db.Order("sequence ASC").Find(&versions).Error; err != nil {
		return nil, fmt.Errorf("failed to read versions: %w", err)
	}
	for _, row := range versions {
		v, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		snap.Versions[v.TemplateID] = append(snap.Versions[v.TemplateID], v)
	}

	var usage []usageRow
	if err := db.Order("timestamp ASC").Find(&usage).Error; err != nil {
		return nil, fmt.Errorf("failed to read usage records: %w", err)
	}
	for _, row := range usage {
		record, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		snap.Usage[record.TemplateID] = append(snap.Usage[record.TemplateID], record)
	}

	var performance []performanceRow
	if err := db.Find(&performance).Error; err != nil {
		return nil, fmt.Errorf("failed to read performance records: %w", err)
	}
	for _, row := range performance {
		record, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		snap.Performance[record.UsageID] = record
	}

	return snap, nil
}

func toRows(snap *domain.Snapshot) ([]templateRow, []versionRow, []usageRow, []performanceRow, error) {
	var templates []templateRow
	for _, tmpl := range snap.Templates {
		defaults, err := encodeMap(tmpl.DefaultValues)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		templates = append(templates, templateRow{
			ID:            tmpl.ID.String(),
			Name:          tmpl.Name,
			Description:   tmpl.Description,
			Body:          tmpl.Template,
			DefaultValues: defaults,
			CreatedAt:     tmpl.CreatedAt,
			UpdatedAt:     tmpl.UpdatedAt,
		})
	}

	var versions []versionRow
	for templateID, list := range snap.Versions {
		for _, v := range list {
			defaults, err := encodeMap(v.Content.DefaultValues)
			if err != nil {
				return nil, nil, nil, nil, err
			}
			versions = append(versions, versionRow{
				ID:            v.ID.String(),
				TemplateID:    templateID.String(),
				Sequence:      v.Sequence,
				Name:          v.Name,
				Description:   v.Description,
				Body:          v.Content.Template,
				DefaultValues: defaults,
				CreatedBy:     v.CreatedBy,
				CreatedAt:     v.CreatedAt,
				Active:        v.Active,
			})
		}
	}

	var usage []usageRow
	for templateID, list := range snap.Usage {
		for _, record := range list {
			usageContext, err := encodeMap(record.Context)
			if err != nil {
				return nil, nil, nil, nil, err
			}
			row := usageRow{
				ID:         record.ID.String(),
				TemplateID: templateID.String(),
				UserID:     record.UserID,
				Timestamp:  record.Timestamp,
				Context:    usageContext,
			}
			if record.VersionID != nil {
				id := record.VersionID.String()
				row.VersionID = &id
			}
			usage = append(usage, row)
		}
	}

	var performance []performanceRow
	for usageID, record := range snap.Performance {
		metrics, err := encodeMap(record.Metrics)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		feedback, err := encodeMap(record.Feedback)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		performance = append(performance, performanceRow{
			UsageID:   usageID.String(),
			Metrics:   metrics,
			Feedback:  feedback,
			Timestamp: record.Timestamp,
		})
	}

	return templates, versions, usage, performance, nil
}

func (r templateRow) toDomain() (*domain.Template, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid template id %q: %w", r.ID, err)
	}
	var defaults map[string]string
	if err := decodeMap(r.DefaultValues, &defaults); err != nil {
		return nil, err
	}
	return &domain.Template{
		ID:            id,
		Name:          r.Name,
		Description:   r.Description,
		Template:      r.Body,
		DefaultValues: defaults,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}, nil
}

func (r versionRow) toDomain() (*domain.Version, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid version id %q: %w", r.ID, err)
	}
	templateID, err := uuid.Parse(r.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("invalid template id %q: %w", r.TemplateID, err)
	}
	var defaults map[string]string
	if err := decodeMap(r.DefaultValues, &defaults); err != nil {
		return nil, err
	}
	return &domain.Version{
		ID:          id,
		TemplateID:  templateID,
		Sequence:    r.Sequence,
		Name:        r.Name,
		Description: r.Description,
		Content: domain.VersionContent{
			Template:      r.Body,
			DefaultValues: defaults,
		},
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
		Active:    r.Active,
	}, nil
}

func (r usageRow) toDomain() (*domain.UsageRecord, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid usage id %q: %w", r.ID, err)
	}
	templateID, err := uuid.Parse(r.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("invalid template id %q: %w", r.TemplateID, err)
	}
	record := &domain.UsageRecord{
		ID:         id,
		TemplateID: templateID,
		UserID:     r.UserID,
		Timestamp:  r.Timestamp,
	}
	if r.VersionID != nil {
		versionID, err := uuid.Parse(*r.VersionID)
		if err != nil {
			return nil, fmt.Errorf("invalid version id %q: %w", *r.VersionID, err)
		}
		record.VersionID = &versionID
	}
	var context map[string]any
	if err := decodeMap(r.Context, &context); err != nil {
		return nil, err
	}
	record.Context = context
	return record, nil
}

func (r performanceRow) toDomain() (*domain.PerformanceRecord, error) {
	usageID, err := uuid.Parse(r.UsageID)
	if err != nil {
		return nil, fmt.Errorf("invalid usage id %q: %w", r.UsageID, err)
	}
	record := &domain.PerformanceRecord{
		UsageID:   usageID,
		Timestamp: r.Timestamp,
	}
	if err := decodeMap(r.Metrics, &record.Metrics); err != nil {
		return nil, err
	}
	if err := decodeMap(r.Feedback, &record.Feedback); err != nil {
		return nil, err
	}
	return record, nil
}

func encodeMap(m any) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode column: %w", err)
	}
	return string(data), nil
}

func decodeMap(data string, out any) error {
	if data == "" || data == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return fmt.Errorf("failed to decode column: %w", err)
	}
	return nil
}
