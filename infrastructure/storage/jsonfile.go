package storage

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/arnegaenz/SIS-sub001/shared/common"
)

const dayLayout = "2006-01-02"

// ValidDay reports whether day is a YYYY-MM-DD calendar date.
func ValidDay(day string) bool {
	_, err := time.Parse(dayLayout, day)
	return err == nil
}

// readFile reads path, mapping a missing file to a NOT_FOUND AppError.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, common.NewAppErrorWithCause(common.ErrCodeNotFound, filepath.Base(path)+" not found", err)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return data, nil
}

// readJSON decodes the JSON file at path into out. Undecodable content is
// reported as MALFORMED_DATA.
func readJSON(path string, out interface{}) error {
	data, err := readFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return common.ErrMalformedData(path, err)
	}
	return nil
}

// marshalPretty renders v with two-space indentation and without HTML
// escaping, matching the layout of the existing data files.
func marshalPretty(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// writeJSON writes v to path through a temporary file and rename so readers
// never see a partial document.
func writeJSON(path string, v interface{}) error {
	data, err := marshalPretty(v)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrapf(err, "failed to create temp file for %s", path)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "failed to write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", tmp.Name())
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Wrapf(err, "failed to chmod %s", tmp.Name())
	}
	return errors.Wrapf(os.Rename(tmp.Name(), path), "failed to replace %s", path)
}

// backupFile copies path to path.bak. A missing source is not an error.
func backupFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "failed to read %s for backup", path)
	}
	return errors.Wrapf(os.WriteFile(path+".bak", data, 0o644), "failed to back up %s", path)
}

// listJSON returns the names of the .json files in dir, sorted.
func listJSON(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", dir)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
