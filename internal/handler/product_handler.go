package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gradeshop_api/internal/repository"
	"github.com/GTDGit/gradeshop_api/internal/service"
	"github.com/GTDGit/gradeshop_api/internal/sse"
	"github.com/GTDGit/gradeshop_api/internal/utils"
)

// ProductHandler serves admin product reads and stock management.
type ProductHandler struct {
	catalog *service.CatalogService
	stock   *service.StockService
	events  sse.CatalogNotifier
}

// NewProductHandler constructs a ProductHandler. events may be nil.
func NewProductHandler(catalog *service.CatalogService, stock *service.StockService, events sse.CatalogNotifier) *ProductHandler {
	if events == nil {
		events = sse.NopNotifier{}
	}
	return &ProductHandler{catalog: catalog, stock: stock, events: events}
}

// ListProducts handles GET /v1/admin/products
func (h *ProductHandler) ListProducts(c *gin.Context) {
	filter := repository.ProductFilter{
		Search: c.Query("search"),
		Page:   1,
		Limit:  50,
	}
	if page := c.Query("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil {
			filter.Page = p
		}
	}
	if limit := c.Query("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			filter.Limit = l
		}
	}
	if v := c.Query("categoryId"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			filter.CategoryID = id
		}
	}
	if isActive := c.Query("isActive"); isActive != "" {
		active := isActive == "true"
		filter.IsActive = &active
	}

	products, total, err := h.catalog.ListProducts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessWithPagination(c, 200, "Products retrieved", products, filter.Page, filter.Limit, total)
}

// GetProduct handles GET /v1/admin/products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := pathID(c, "id", "Invalid product ID")
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.Success(c, 200, "Product retrieved", product)
}

// GetStock handles GET /v1/admin/products/:id/stock
func (h *ProductHandler) GetStock(c *gin.Context) {
	id, ok := pathID(c, "id", "Invalid product ID")
	if !ok {
		return
	}

	stock, err := h.stock.GetStock(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.Success(c, 200, "Stock retrieved", stock)
}

// UpdateSizeStock handles PUT /v1/admin/products/:id/stock/sizes
func (h *ProductHandler) UpdateSizeStock(c *gin.Context) {
	id, ok := pathID(c, "id", "Invalid product ID")
	if !ok {
		return
	}

	var req struct {
		Items []service.SizeStockUpdate `json:"itens"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, utils.CodeInvalidRequest, "Invalid request body")
		return
	}

	if err := h.stock.UpdateSizeStock(c.Request.Context(), id, req.Items); err != nil {
		respondError(c, err)
		return
	}

	h.events.StockUpdated(id)
	h.respondStock(c, id, "Size stock updated")
}

// UpdateGradeStock handles PUT /v1/admin/products/:id/stock/grades
func (h *ProductHandler) UpdateGradeStock(c *gin.Context) {
	id, ok := pathID(c, "id", "Invalid product ID")
	if !ok {
		return
	}

	var req struct {
		Items []service.GradeStockUpdate `json:"itens"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, utils.CodeInvalidRequest, "Invalid request body")
		return
	}

	if err := h.stock.UpdateGradeStock(c.Request.Context(), id, req.Items); err != nil {
		respondError(c, err)
		return
	}

	h.events.StockUpdated(id)
	h.respondStock(c, id, "Grade stock updated")
}

// SetStockStrategy handles PUT /v1/admin/products/:id/stock-strategy
func (h *ProductHandler) SetStockStrategy(c *gin.Context) {
	id, ok := pathID(c, "id", "Invalid product ID")
	if !ok {
		return
	}

	var req struct {
		Strategy string `json:"estrategia_estoque" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, utils.CodeInvalidRequest, "Invalid request body")
		return
	}

	strategy, err := h.stock.SetStrategy(c.Request.Context(), id, req.Strategy)
	if err != nil {
		respondError(c, err)
		return
	}

	h.events.StrategyChanged(id, strategy)
	utils.Success(c, 200, "Stock strategy updated", gin.H{
		"produto_id":         id,
		"estrategia_estoque": strategy,
	})
}

func (h *ProductHandler) respondStock(c *gin.Context, id int, message string) {
	stock, err := h.stock.GetStock(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, 200, message, stock)
}

func pathID(c *gin.Context, name, message string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		utils.Error(c, 400, utils.CodeInvalidRequest, message)
		return 0, false
	}
	return id, true
}
