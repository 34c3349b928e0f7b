package handlers

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnegaenz/SIS-sub001/domain/service"
	"github.com/arnegaenz/SIS-sub001/shared/common"
	"github.com/arnegaenz/SIS-sub001/usecase"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ReportHandler serves the aggregated reports
type ReportHandler struct {
	outcomes *usecase.PlacementOutcomeUseCase
	runner   *usecase.OutcomeReportRunner
	reports  *usecase.ReportUseCase
	topN     int
	logger   *zap.Logger
	now      func() time.Time
}

// NewReportHandler creates the handler. topN is the default merchant count
// of the merchant report.
func NewReportHandler(outcomes *usecase.PlacementOutcomeUseCase, runner *usecase.OutcomeReportRunner, reports *usecase.ReportUseCase, topN int, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{
		outcomes: outcomes,
		runner:   runner,
		reports:  reports,
		topN:     topN,
		logger:   logger.Named("report-handler"),
		now:      time.Now,
	}
}

// dateRange reads ?start&end. A missing bound falls back to the default
// trailing 90 day range.
func (h *ReportHandler) dateRange(c *gin.Context) (time.Time, time.Time, error) {
	def := usecase.DefaultRange(h.now())
	start, end := def.Start, def.End

	if v := c.Query("start"); v != "" {
		t, ok := usecase.ParseDay(v)
		if !ok {
			return start, end, common.ErrInvalidInput("start")
		}
		start = t
	}
	if v := c.Query("end"); v != "" {
		t, ok := usecase.ParseDay(v)
		if !ok {
			return start, end, common.ErrInvalidInput("end")
		}
		end = t
	}
	return start, end, nil
}

// PlacementOutcomes builds the monthly outcome rollup for
// ?start&end&excludeTests and renders it as json, csv or xlsx per ?format.
func (h *ReportHandler) PlacementOutcomes(c *gin.Context) {
	start, end, err := h.dateRange(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	format := strings.ToLower(c.DefaultQuery("format", "json"))
	if format != "json" && format != "csv" && format != "xlsx" {
		respondError(c, h.logger, common.ErrInvalidInput("format"))
		return
	}

	result, err := h.outcomes.Build(c.Request.Context(), start, end, queryBool(c, "excludeTests", false))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	switch format {
	case "csv":
		h.attachment(c, result.CSVFilename(), contentTypeCSV, result.Rows, service.WriteOutcomesCSV)
	case "xlsx":
		name := strings.TrimSuffix(result.CSVFilename(), ".csv") + ".xlsx"
		h.attachment(c, name, contentTypeXLSX, result.Rows, service.WriteOutcomesXLSX)
	default:
		c.JSON(http.StatusOK, result)
	}
}

// attachment renders rows into a buffer first so a failed render still
// produces a JSON error.
func (h *ReportHandler) attachment(c *gin.Context, filename, contentType string, rows []service.OutcomeRow, write func(io.Writer, []service.OutcomeRow) error) {
	var buf bytes.Buffer
	if err := write(&buf, rows); err != nil {
		respondError(c, h.logger, common.WrapError(err, common.ErrCodeInternal, "failed to render report"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// RunRequest starts an interactive outcome report
type RunRequest struct {
	Start        string `json:"start"`
	End          string `json:"end"`
	ExcludeTests bool   `json:"excludeTests"`
}

// RunResponse is the state of the interactive outcome report
type RunResponse struct {
	usecase.ReportState
	Summary string         `json:"summary"`
	Error   *ErrorResponse `json:"error,omitempty"`
}

func runResponse(state usecase.ReportState) RunResponse {
	return RunResponse{ReportState: state, Summary: state.Summary()}
}

// RunOutcomes runs the interactive report. A run while another is loading
// is rejected with 409; a failed run answers with the reset state and the
// error.
func (h *ReportHandler) RunOutcomes(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, common.NewAppErrorWithDetails(common.ErrCodeInvalidInput, "invalid request body", err.Error()))
		return
	}

	state, err := h.runner.Run(c.Request.Context(), req.Start, req.End, req.ExcludeTests)
	if err == usecase.ErrReportInFlight {
		respondError(c, h.logger, err)
		return
	}
	resp := runResponse(state)
	if err != nil {
		appErr := common.WrapError(err, common.ErrCodeInternal, usecase.StatusLoadFailed)
		resp.Error = &ErrorResponse{Code: appErr.Code, Message: appErr.Message, Details: appErr.Details}
		c.JSON(common.StatusCode(appErr), resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// OutcomeState returns the interactive report state
func (h *ReportHandler) OutcomeState(c *gin.Context) {
	c.JSON(http.StatusOK, runResponse(h.runner.State()))
}

// ExportOutcomes downloads the rows of the interactive report as csv or xlsx
func (h *ReportHandler) ExportOutcomes(c *gin.Context) {
	var buf bytes.Buffer
	var err error
	filename := h.runner.CSVFilename()
	contentType := contentTypeCSV

	switch strings.ToLower(c.DefaultQuery("format", "csv")) {
	case "csv":
		err = h.runner.ExportCSV(&buf)
	case "xlsx":
		err = h.runner.ExportXLSX(&buf)
		filename = strings.TrimSuffix(filename, ".csv") + ".xlsx"
		contentType = contentTypeXLSX
	default:
		err = common.ErrInvalidInput("format")
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// Sessions returns the session aggregate for ?start&end
func (h *ReportHandler) Sessions(c *gin.Context) {
	start, end, err := h.dateRange(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	report, err := h.reports.Sessions(c.Request.Context(), start, end)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Merchants returns the merchant report for ?start&end. ?top limits the
// merchant list; 0 returns every merchant.
func (h *ReportHandler) Merchants(c *gin.Context) {
	start, end, err := h.dateRange(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	top := h.topN
	if v := c.Query("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(c, h.logger, common.ErrInvalidInput("top"))
			return
		}
		top = n
	}

	report, err := h.reports.Merchants(c.Request.Context(), start, end)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if top > 0 && len(report.Merchants) > top {
		report.Merchants = report.Merchants[:top]
	}
	c.JSON(http.StatusOK, report)
}
