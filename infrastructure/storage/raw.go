package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/arnegaenz/SIS-sub001/domain/entity"
	"github.com/arnegaenz/SIS-sub001/shared/common"
)

const metadataField = "_metadata"

// RawStore manages raw/<type>/<date>.json files.
type RawStore struct {
	root   string
	logger *zap.Logger
	now    func() time.Time
}

// NewRawStore creates a store rooted at root
func NewRawStore(root string, logger *zap.Logger) *RawStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RawStore{root: root, logger: logger.Named("raw-store"), now: time.Now}
}

// Path returns the file for one raw data set and day
func (s *RawStore) Path(t entity.RawType, day string) string {
	return filepath.Join(s.root, string(t), day+".json")
}

// Exists reports whether the raw file exists
func (s *RawStore) Exists(t entity.RawType, day string) bool {
	_, err := os.Stat(s.Path(t, day))
	return err == nil
}

// IsDayComplete reports whether the UTC day has fully elapsed at now.
func IsDayComplete(day string, now time.Time) bool {
	start, err := time.Parse(dayLayout, day)
	if err != nil {
		return false
	}
	return now.After(start.Add(24*time.Hour - time.Millisecond))
}

// Write stores doc for the day, stamping _metadata with the fetch time and
// whether the day had ended by then.
func (s *RawStore) Write(t entity.RawType, day string, doc map[string]interface{}) error {
	if !ValidDay(day) {
		return common.ErrInvalidInput("date")
	}
	now := s.now().UTC()
	out := make(map[string]interface{}, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	out[metadataField] = entity.RawMetadata{FetchedAt: now, IsComplete: IsDayComplete(day, now)}

	path := s.Path(t, day)
	if err := writeJSON(path, out); err != nil {
		return err
	}
	s.logger.Debug("Raw file written", zap.String("path", path))
	return nil
}

// Read decodes a raw day file. Missing files fail with NOT_FOUND.
func (s *RawStore) Read(t entity.RawType, day string) (entity.Record, error) {
	if !ValidDay(day) {
		return nil, common.ErrInvalidInput("date")
	}
	var doc map[string]interface{}
	if err := readJSON(s.Path(t, day), &doc); err != nil {
		return nil, err
	}
	return entity.Record(doc), nil
}

// ReadRecords returns the rows array of a raw day file. A file without the
// array yields no records.
func (s *RawStore) ReadRecords(t entity.RawType, day string) ([]interface{}, error) {
	doc, err := s.Read(t, day)
	if err != nil {
		return nil, err
	}
	rows, _ := doc.Array(t.RowsField())
	return rows, nil
}

// ReadGARows returns the GA rows of a raw day file. Rows written under the
// older pagePath name are read as well.
func (s *RawStore) ReadGARows(day string) ([]entity.GARow, error) {
	records, err := s.ReadRecords(entity.RawGA, day)
	if err != nil {
		return nil, err
	}
	rows := make([]entity.GARow, 0, len(records))
	for _, raw := range records {
		rec, ok := entity.AsRecord(raw)
		if !ok {
			continue
		}
		rows = append(rows, entity.GARow{
			Date:         rec.String("date"),
			Host:         rec.String("host"),
			Page:         rec.String("page", "pagePath"),
			Hour:         rec.String("hour"),
			Views:        int64(rec.Number("views")),
			ActiveUsers:  int64(rec.Number("active_users")),
			FIKey:        rec.String("fi_key"),
			Instance:     rec.String("instance"),
			IsCardUpdatr: rec["is_cardupdatr"] == true,
			IsFunnelPage: rec["is_funnel_page"] == true,
		})
	}
	return rows, nil
}

// Metadata returns the _metadata stamp of a raw file, nil when absent.
func (s *RawStore) Metadata(t entity.RawType, day string) (*entity.RawMetadata, error) {
	var doc struct {
		Metadata *entity.RawMetadata `json:"_metadata"`
	}
	if err := readJSON(s.Path(t, day), &doc); err != nil {
		return nil, err
	}
	return doc.Metadata, nil
}

// BackfillResult counts the outcome of BackfillMetadata
type BackfillResult struct {
	Backfilled int `json:"backfilled"`
	AlreadyHad int `json:"alreadyHad"`
	Failed     int `json:"failed"`
}

// Total is the number of files that were readable
func (r BackfillResult) Total() int {
	return r.Backfilled + r.AlreadyHad
}

// BackfillMetadata stamps every raw file lacking _metadata with a fetch time
// of the Unix epoch and completeness judged against the current time. Files
// that fail are logged and counted; the walk continues.
func (s *RawStore) BackfillMetadata() BackfillResult {
	var result BackfillResult
	now := s.now().UTC()

	for _, t := range entity.RawTypes {
		dir := filepath.Join(s.root, string(t))
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		names, err := listJSON(dir)
		if err != nil {
			s.logger.Error("Failed to list raw files", zap.String("dir", dir), zap.Error(err))
			continue
		}
		for _, name := range names {
			path := filepath.Join(dir, name)
			added, err := backfillFile(path, DayFromFile(name), now)
			switch {
			case err != nil:
				result.Failed++
				s.logger.Error("Failed to backfill metadata", zap.String("path", path), zap.Error(err))
			case added:
				result.Backfilled++
				if result.Backfilled%100 == 0 {
					s.logger.Info("Backfill progress", zap.Int("backfilled", result.Backfilled))
				}
			default:
				result.AlreadyHad++
			}
		}
	}
	return result
}

func backfillFile(path, day string, now time.Time) (bool, error) {
	var doc map[string]json.RawMessage
	if err := readJSON(path, &doc); err != nil {
		return false, err
	}
	if doc == nil {
		return false, common.ErrMalformedData(path, nil)
	}
	if meta, ok := doc[metadataField]; ok && string(meta) != "null" {
		return false, nil
	}

	meta, err := json.Marshal(entity.RawMetadata{
		FetchedAt:  time.Unix(0, 0).UTC(),
		IsComplete: IsDayComplete(day, now),
	})
	if err != nil {
		return false, err
	}
	doc[metadataField] = meta
	return true, writeJSON(path, doc)
}
