package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gradeshop_api/internal/models"
	"github.com/GTDGit/gradeshop_api/internal/service"
	"github.com/GTDGit/gradeshop_api/internal/utils"
)

// GradeHandler serves grades, their templates and the lookup lists.
type GradeHandler struct {
	catalog *service.CatalogService
}

// NewGradeHandler constructs a GradeHandler.
func NewGradeHandler(catalog *service.CatalogService) *GradeHandler {
	return &GradeHandler{catalog: catalog}
}

// ListGrades handles GET /v1/admin/grades
func (h *GradeHandler) ListGrades(c *gin.Context) {
	grades, err := h.catalog.ListGrades(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Grades retrieved", grades)
}

// ListTemplates handles GET /v1/admin/grades/:id/templates
func (h *GradeHandler) ListTemplates(c *gin.Context) {
	id, ok := pathID(c, "id", "Invalid grade ID")
	if !ok {
		return
	}

	templates, err := h.catalog.ListGradeTemplates(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Grade templates retrieved", templates)
}

// UpdateTemplates handles PUT /v1/admin/grades/:id/templates
func (h *GradeHandler) UpdateTemplates(c *gin.Context) {
	id, ok := pathID(c, "id", "Invalid grade ID")
	if !ok {
		return
	}

	var req struct {
		Items []service.TemplateQuantityUpdate `json:"itens"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, utils.CodeInvalidRequest, "Invalid request body")
		return
	}

	templates, err := h.catalog.UpdateGradeTemplates(c.Request.Context(), id, req.Items)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Grade templates updated", templates)
}

// ListLookups handles GET /v1/admin/lookups/:kind
func (h *GradeHandler) ListLookups(c *gin.Context) {
	kind := models.LookupKind(c.Param("kind"))

	rows, err := h.catalog.ListLookups(c.Request.Context(), kind)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, "Lookups retrieved", rows)
}
