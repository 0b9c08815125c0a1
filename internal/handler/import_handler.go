package handler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gradeshop_api/internal/service"
	"github.com/GTDGit/gradeshop_api/internal/sse"
	"github.com/GTDGit/gradeshop_api/internal/utils"
)

const maxImportFileSize = 10 << 20

// ImportHandler exposes the catalog import endpoints.
type ImportHandler struct {
	importService *service.ImportService
	events        sse.CatalogNotifier
}

// NewImportHandler constructs an ImportHandler. events may be nil.
func NewImportHandler(importService *service.ImportService, events sse.CatalogNotifier) *ImportHandler {
	if events == nil {
		events = sse.NopNotifier{}
	}
	return &ImportHandler{importService: importService, events: events}
}

// ImportProducts handles POST /v1/admin/import/products
func (h *ImportHandler) ImportProducts(c *gin.Context) {
	var req service.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, utils.CodeInvalidRequest, "Invalid request body")
		return
	}

	opts, ok := importOptions(c)
	if !ok {
		return
	}

	report, err := h.importService.Reconcile(c.Request.Context(), req.Products, opts)
	if err != nil {
		respondError(c, err)
		return
	}

	h.events.ImportCompleted(report)
	utils.Success(c, 200, "Import completed", report)
}

// ImportSingle handles POST /v1/admin/import/products/single. The body has
// the bulk shape with exactly one product.
func (h *ImportHandler) ImportSingle(c *gin.Context) {
	var req service.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, utils.CodeInvalidRequest, "Invalid request body")
		return
	}
	if len(req.Products) != 1 {
		respondError(c, &service.ValidationError{Field: "products", Message: "exactly one product is required"})
		return
	}

	report, err := h.importService.ImportSingle(c.Request.Context(), req.Products[0])
	if err != nil {
		respondError(c, err)
		return
	}

	h.events.ImportCompleted(report)
	utils.Success(c, 201, "Product imported", report)
}

// ImportWorkbook handles POST /v1/admin/import/products/xlsx
func (h *ImportHandler) ImportWorkbook(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.Error(c, 400, utils.CodeInvalidRequest, "File is required")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".xlsx") {
		utils.Error(c, 400, utils.CodeInvalidRequest, "Only .xlsx files are accepted")
		return
	}
	if header.Size > maxImportFileSize {
		utils.Error(c, 400, utils.CodeInvalidRequest, "File size exceeds 10MB limit")
		return
	}

	opts, ok := importOptions(c)
	if !ok {
		return
	}

	products, err := service.ParseImportWorkbook(file)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Info().Str("file", header.Filename).Int("products", len(products)).Msg("import workbook parsed")

	report, err := h.importService.Reconcile(c.Request.Context(), products, opts)
	if err != nil {
		respondError(c, err)
		return
	}

	h.events.ImportCompleted(report)
	utils.Success(c, 200, "Import completed", report)
}

// DownloadTemplate handles GET /v1/admin/import/template
func (h *ImportHandler) DownloadTemplate(c *gin.Context) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "importacao_produtos.xlsx"))
	if err := service.WriteImportTemplate(c.Writer); err != nil {
		log.Error().Err(err).Msg("failed to write import template")
		utils.Error(c, 500, utils.CodeInternal, "Failed to generate template")
	}
}

func importOptions(c *gin.Context) (service.ImportOptions, bool) {
	opts := service.ImportOptions{Mode: service.ImportModeBestEffort}
	raw := c.Query("strict")
	if raw == "" {
		return opts, true
	}
	strict, err := strconv.ParseBool(raw)
	if err != nil {
		utils.Error(c, 400, utils.CodeInvalidRequest, "strict must be true or false")
		return opts, false
	}
	if strict {
		opts.Mode = service.ImportModeStrict
	}
	return opts, true
}
