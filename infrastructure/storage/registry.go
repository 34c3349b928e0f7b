package storage

import (
	"go.uber.org/zap"

	"github.com/arnegaenz/SIS-sub001/domain/entity"
)

// RegistryStore reads and writes fi_registry.json.
type RegistryStore struct {
	path   string
	logger *zap.Logger
}

// NewRegistryStore creates a store for the registry file at path
func NewRegistryStore(path string, logger *zap.Logger) *RegistryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistryStore{path: path, logger: logger.Named("registry-store")}
}

// Path returns the registry file location
func (s *RegistryStore) Path() string {
	return s.path
}

// Raw returns the registry file as stored.
func (s *RegistryStore) Raw() ([]byte, error) {
	return readFile(s.path)
}

// Load decodes the registry. A registry that is not a JSON object fails
// with MALFORMED_DATA.
func (s *RegistryStore) Load() (entity.Registry, error) {
	reg := entity.Registry{}
	if err := readJSON(s.path, &reg); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = entity.Registry{}
	}
	return reg, nil
}

// Save writes reg with keys in sorted order after copying the previous file
// to fi_registry.json.bak.
func (s *RegistryStore) Save(reg entity.Registry) error {
	if err := backupFile(s.path); err != nil {
		return err
	}
	if err := writeJSON(s.path, reg); err != nil {
		return err
	}
	s.logger.Debug("Registry written", zap.String("path", s.path), zap.Int("entries", len(reg)))
	return nil
}
