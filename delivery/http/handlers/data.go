package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnegaenz/SIS-sub001/domain/service"
	"github.com/arnegaenz/SIS-sub001/infrastructure/cache"
	"github.com/arnegaenz/SIS-sub001/shared/common"
	"github.com/arnegaenz/SIS-sub001/usecase"
)

// SnapshotFiles exposes the daily snapshot directory
type SnapshotFiles interface {
	List() ([]string, error)
	Raw(day string) ([]byte, error)
	DataVersion() (string, error)
}

// RegistryFile exposes fi_registry.json
type RegistryFile interface {
	Raw() ([]byte, error)
}

// DataHandler serves the data files and session queries the dashboard reads.
type DataHandler struct {
	snapshots SnapshotFiles
	registry  RegistryFile
	sessions  usecase.SessionSource
	cache     *cache.DataCache
	logger    *zap.Logger
}

// NewDataHandler creates the handler. dataCache may be nil; when set it is
// synced with the snapshot data version before each session query.
func NewDataHandler(snapshots SnapshotFiles, registry RegistryFile, sessions usecase.SessionSource, dataCache *cache.DataCache, logger *zap.Logger) *DataHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataHandler{
		snapshots: snapshots,
		registry:  registry,
		sessions:  sessions,
		cache:     dataCache,
		logger:    logger.Named("data-handler"),
	}
}

// ListDaily returns {files} with the snapshot file names
func (h *DataHandler) ListDaily(c *gin.Context) {
	files, err := h.snapshots.List()
	if err != nil {
		h.logger.Error("Failed to list daily files", zap.Error(err))
		c.String(http.StatusInternalServerError, "Could not list daily files")
		return
	}
	if files == nil {
		files = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// Daily returns the snapshot for ?date= as stored. Unknown dates answer
// {error: "not found", date}.
func (h *DataHandler) Daily(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		c.String(http.StatusBadRequest, "Missing date param")
		return
	}

	data, err := h.snapshots.Raw(date)
	if common.HasErrorCode(err, common.ErrCodeNotFound) || common.HasErrorCode(err, common.ErrCodeInvalidInput) {
		c.JSON(http.StatusOK, gin.H{"error": "not found", "date": date})
		return
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

// FIRegistry returns fi_registry.json as stored
func (h *DataHandler) FIRegistry(c *gin.Context) {
	data, err := h.registry.Raw()
	if common.HasErrorCode(err, common.ErrCodeNotFound) {
		c.JSON(http.StatusOK, gin.H{"error": "fi_registry.json not found"})
		return
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

// DataVersion returns {version}
func (h *DataHandler) DataVersion(c *gin.Context) {
	version, err := h.snapshots.DataVersion()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"version": version})
}

// TroubleshootDay returns {sessions} for
// ?start&end&includeTests&fi&partner&integration&instance. Absent filters
// mean all; includeTests defaults to false.
func (h *DataHandler) TroubleshootDay(c *gin.Context) {
	q := service.SessionQuery{
		Start:        c.Query("start"),
		End:          c.Query("end"),
		IncludeTests: queryBool(c, "includeTests", false),
		FI:           c.Query("fi"),
		Partner:      c.Query("partner"),
		Integration:  c.Query("integration"),
		Instance:     c.Query("instance"),
	}.WithDefaults()

	ctx := c.Request.Context()
	h.syncCache(ctx)

	sessions, err := h.sessions.FetchSessions(ctx, q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if sessions == nil {
		sessions = []interface{}{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *DataHandler) syncCache(ctx context.Context) {
	if h.cache == nil {
		return
	}
	src := cache.VersionFunc(func(context.Context) (string, error) {
		return h.snapshots.DataVersion()
	})
	if err := h.cache.Sync(ctx, src); err != nil {
		h.logger.Warn("Cache version sync failed", zap.Error(err))
	}
}
