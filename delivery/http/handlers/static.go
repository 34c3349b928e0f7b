package handlers

import (
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IndexPage is served for "/" and "/index.html"
const IndexPage = "funnel.html"

// StaticHandler serves the dashboard files from the public directory.
type StaticHandler struct {
	dir    string
	logger *zap.Logger
}

// NewStaticHandler creates a handler over dir
func NewStaticHandler(dir string, logger *zap.Logger) *StaticHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StaticHandler{dir: dir, logger: logger.Named("static")}
}

// Serve answers any unrouted GET with the matching public file
func (h *StaticHandler) Serve(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.String(http.StatusNotFound, "Not found")
		return
	}

	clean := path.Clean("/" + c.Request.URL.Path)
	if clean == "/" || clean == "/index.html" {
		index := filepath.Join(h.dir, IndexPage)
		if !isFile(index) {
			h.logger.Error("Index page missing", zap.String("path", index))
			c.String(http.StatusInternalServerError, IndexPage+" not found")
			return
		}
		c.File(index)
		return
	}

	file := filepath.Join(h.dir, filepath.FromSlash(clean))
	if !isFile(file) {
		c.String(http.StatusNotFound, "Not found")
		return
	}
	c.File(file)
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
