package storage

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/arnegaenz/SIS-sub001/domain/entity"
	"github.com/arnegaenz/SIS-sub001/domain/service"
	"github.com/arnegaenz/SIS-sub001/shared/common"
)

// SnapshotStore manages the daily snapshot files in one directory.
type SnapshotStore struct {
	dir    string
	logger *zap.Logger
}

// NewSnapshotStore creates a store over dir
func NewSnapshotStore(dir string, logger *zap.Logger) *SnapshotStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotStore{dir: dir, logger: logger.Named("snapshot-store")}
}

// Dir returns the snapshot directory
func (s *SnapshotStore) Dir() string {
	return s.dir
}

// Path returns the file for day
func (s *SnapshotStore) Path(day string) string {
	return filepath.Join(s.dir, day+".json")
}

// List returns the snapshot file names, sorted.
func (s *SnapshotStore) List() ([]string, error) {
	return listJSON(s.dir)
}

// Raw returns the snapshot file for day as stored.
func (s *SnapshotStore) Raw(day string) ([]byte, error) {
	if !ValidDay(day) {
		return nil, common.ErrInvalidInput("date")
	}
	return readFile(s.Path(day))
}

// Load decodes the snapshot for day.
func (s *SnapshotStore) Load(day string) (*entity.DailySnapshot, error) {
	if !ValidDay(day) {
		return nil, common.ErrInvalidInput("date")
	}
	var doc entity.DailySnapshot
	if err := readJSON(s.Path(day), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadIndexes decodes the fi and fi_instances maps of every snapshot file in
// file name order. Any unreadable or malformed file aborts the load.
func (s *SnapshotStore) LoadIndexes() ([]*service.SnapshotIndex, error) {
	names, err := s.List()
	if err != nil {
		return nil, err
	}
	out := make([]*service.SnapshotIndex, 0, len(names))
	for _, name := range names {
		var idx service.SnapshotIndex
		if err := readJSON(filepath.Join(s.dir, name), &idx); err != nil {
			return nil, err
		}
		idx.Name = name
		out = append(out, &idx)
	}
	return out, nil
}

// Save writes doc to <dir>/<date>.json and returns the path.
func (s *SnapshotStore) Save(doc *entity.DailySnapshot) (string, error) {
	if !ValidDay(doc.Date) {
		return "", common.ErrInvalidInput("date")
	}
	path := s.Path(doc.Date)
	if err := writeJSON(path, doc); err != nil {
		return "", err
	}
	s.logger.Debug("Daily snapshot written", zap.String("path", path), zap.Int("fis", len(doc.FI)))
	return path, nil
}

// DataVersion derives a version string from the newest modification time of
// the snapshot files. It is empty when there are none.
func (s *SnapshotStore) DataVersion() (string, error) {
	names, err := s.List()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}

	var newest time.Time
	for _, name := range names {
		info, err := os.Stat(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}
	if newest.IsZero() {
		return "", nil
	}
	return newest.UTC().Format(time.RFC3339Nano), nil
}

// DayFromFile returns the date a snapshot file name stands for.
func DayFromFile(name string) string {
	return strings.TrimSuffix(name, ".json")
}
