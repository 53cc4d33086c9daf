package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"invox/internal/service"
)

// InvoiceHandler handles invoice upload, retrieval, and export endpoints.
type InvoiceHandler struct {
	invoiceService *service.InvoiceService
	exportService  *service.ExportService
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(invoiceService *service.InvoiceService, exportService *service.ExportService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService, exportService: exportService}
}

// Upload handles POST /api/v1/invoices. The document is stored and a
// processing record returned; extraction continues in the background.
func (h *InvoiceHandler) Upload(c *gin.Context) {
	userID, _, ok := extractAuthContext(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "missing file field")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "reading uploaded file")
		return
	}

	inv, err := h.invoiceService.Upload(c.Request.Context(), service.UploadInvoiceInput{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     content,
		CreatedBy:   userID,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondAccepted(c, inv)
}

// List handles GET /api/v1/invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	invoices, err := h.invoiceService.List(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, invoices)
}

// Get handles GET /api/v1/invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	inv, err := h.invoiceService.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, inv)
}

// Delete handles DELETE /api/v1/invoices/:id
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.invoiceService.Delete(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": id})
}

// DeleteAll handles DELETE /api/v1/invoices (admin only, enforced by
// route middleware).
func (h *InvoiceHandler) DeleteAll(c *gin.Context) {
	deleted, err := h.invoiceService.DeleteAll(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted_count": deleted})
}

// Reprocess handles POST /api/v1/invoices/:id/reprocess
func (h *InvoiceHandler) Reprocess(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	inv, err := h.invoiceService.Reprocess(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondAccepted(c, inv)
}

// FileURL handles GET /api/v1/invoices/:id/file — returns a presigned
// download URL for the original document.
func (h *InvoiceHandler) FileURL(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	url, err := h.invoiceService.FileURL(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"url": url})
}

// Export handles GET /api/v1/invoices/export?format=csv|xlsx.
// ?status=completed narrows the export to completed extractions.
func (h *InvoiceHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	onlyCompleted := c.Query("status") == "completed"
	stamp := time.Now().UTC().Format("20060102-150405")

	switch format {
	case "csv":
		data, err := h.exportService.ExportCSV(c.Request.Context(), onlyCompleted)
		if err != nil {
			HandleError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoices-%s.csv", stamp))
		c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
	case "xlsx":
		data, err := h.exportService.ExportXLSX(c.Request.Context(), onlyCompleted)
		if err != nil {
			HandleError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoices-%s.xlsx", stamp))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	default:
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "format must be csv or xlsx")
	}
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid invoice id")
		return uuid.Nil, false
	}
	return id, true
}
