// Package jsonfile persists snapshots as JSON documents in a directory.
package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/isaacphi/promptwheel/internal/domain"
	"github.com/isaacphi/promptwheel/internal/repository"
)

const (
	templatesFile = "templates.json"
	versionsFile  = "versions.json"
	metricsFile   = "metrics.json"
)

// metricsDocument bundles usage and performance records into one file so a
// snapshot is exactly three documents on disk.
type metricsDocument struct {
	Usage       map[uuid.UUID][]*domain.UsageRecord     `json:"usage_data"`
	Performance map[uuid.UUID]*domain.PerformanceRecord `json:"performance_data"`
}

type Store struct {
	dir string
}

// New returns a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create storage directory")
	}
	return &Store{dir: dir}, nil
}

var _ repository.SnapshotStore = (*Store)(nil)

// Load reads the snapshot documents. Missing files mean an empty snapshot;
// files that exist but do not decode are an error.
func (s *Store) Load(_ context.Context) (*domain.Snapshot, error) {
	snap := domain.NewSnapshot()

	if err := s.readDocument(templatesFile, &snap.Templates); err != nil {
		return nil, err
	}
	if err := s.readDocument(versionsFile, &snap.Versions); err != nil {
		return nil, err
	}
	var metrics metricsDocument
	if err := s.readDocument(metricsFile, &metrics); err != nil {
		return nil, err
	}
	if metrics.Usage != nil {
		snap.Usage = metrics.Usage
	}
	if metrics.Performance != nil {
		snap.Performance = metrics.Performance
	}

	return snap, nil
}

// Save writes all three documents. Each file is written atomically through
// a rename so a crash never leaves a half-written document behind.
func (s *Store) Save(_ context.Context, snap *domain.Snapshot) error {
	if err := s.writeDocument(templatesFile, snap.Templates); err != nil {
		return err
	}
	if err := s.writeDocument(versionsFile, snap.Versions); err != nil {
		return err
	}
	return s.writeDocument(metricsFile, metricsDocument{
		Usage:       snap.Usage,
		Performance: snap.Performance,
	})
}

func (s *Store) readDocument(name string, out any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "failed to read %s", name)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "failed to parse %s", name)
	}
	return nil
}

func (s *Store) writeDocument(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", name)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", name)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "failed to replace %s", name)
	}
	return nil
}
