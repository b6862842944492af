package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/reorder-planner/internal/domain"
	"github.com/andresuchdata/reorder-planner/internal/export"
	"github.com/andresuchdata/reorder-planner/internal/ingest"
	"github.com/andresuchdata/reorder-planner/internal/service"
)

const maxImportBytes = 10 << 20

type ReportHandler struct {
	service *service.PlannerService
}

func NewReportHandler(service *service.PlannerService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Export streams the filtered reorder report as csv or xlsx.
func (h *ReportHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		badRequest(c, "Invalid report format", err)
		return
	}

	filter, ok := parseFilter(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.service.Export(&buf, filter, format); err != nil {
		respondError(c, "Failed to build report", err)
		return
	}

	filename := fmt.Sprintf("reorder-%s.%s", time.Now().UTC().Format("20060102"), format.Extension())
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// Publish uploads the report to object storage and returns its key.
func (h *ReportHandler) Publish(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		badRequest(c, "Invalid report format", err)
		return
	}

	filter, ok := parseFilter(c)
	if !ok {
		return
	}

	key, err := h.service.PublishReport(c.Request.Context(), filter, format)
	if err != nil {
		respondError(c, "Failed to publish report", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"key": key})
}

// ListReports returns the published report objects, newest day first.
func (h *ReportHandler) ListReports(c *gin.Context) {
	reports, err := h.service.Reports(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to list reports", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reports})
}

// DownloadReport streams one published report back to the client.
func (h *ReportHandler) DownloadReport(c *gin.Context) {
	day, name := c.Param("day"), c.Param("name")

	var buf bytes.Buffer
	key, err := h.service.FetchReport(c.Request.Context(), day, name, &buf)
	if err != nil {
		respondError(c, "Failed to download report", err)
		return
	}

	contentType := "application/octet-stream"
	if format, err := export.ParseFormat(strings.TrimPrefix(path.Ext(key), ".")); err == nil {
		contentType = format.ContentType()
	}
	c.Header("Content-Disposition", "attachment; filename="+path.Base(key))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// Import replaces the dataset with the CSV in the "file" field of a multipart upload,
// or with the raw request body for any other content type.
func (h *ReportHandler) Import(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)

	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		h.importFrom(c, c.Request.Body)
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "Invalid upload", err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "Invalid upload", err)
		return
	}
	defer f.Close()
	h.importFrom(c, f)
}

func (h *ReportHandler) importFrom(c *gin.Context, r io.Reader) {
	ds, err := ingest.ReadCSV(r)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidHistoryLength) {
			respondError(c, "Invalid inventory csv", err)
			return
		}
		badRequest(c, "Invalid inventory csv", err)
		return
	}

	view, err := h.service.Import(c.Request.Context(), ds)
	if err != nil {
		respondError(c, "Failed to import dataset", err)
		return
	}
	c.JSON(http.StatusOK, view)
}
