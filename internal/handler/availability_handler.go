package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gradeshop_api/internal/cache"
	"github.com/GTDGit/gradeshop_api/internal/service"
	"github.com/GTDGit/gradeshop_api/internal/utils"
)

// AvailabilityCache is the read-through cache in front of InventoryService.
// Get returns cache.ErrMiss when nothing is stored.
type AvailabilityCache interface {
	Get(ctx context.Context, productID, colorID, unitID int) (*service.Availability, error)
	Set(ctx context.Context, a *service.Availability) error
}

// AvailabilityHandler serves storefront availability.
type AvailabilityHandler struct {
	inventory *service.InventoryService
	cached    AvailabilityCache
}

// NewAvailabilityHandler constructs an AvailabilityHandler. cache may be nil.
func NewAvailabilityHandler(inventory *service.InventoryService, availabilityCache AvailabilityCache) *AvailabilityHandler {
	return &AvailabilityHandler{inventory: inventory, cached: availabilityCache}
}

// GetAvailability handles GET /v1/products/:id/availability?color_id=&unit_id=
func (h *AvailabilityHandler) GetAvailability(c *gin.Context) {
	productID, ok := pathID(c, "id", "Invalid product ID")
	if !ok {
		return
	}
	colorID, err1 := strconv.Atoi(c.Query("color_id"))
	unitID, err2 := strconv.Atoi(c.Query("unit_id"))
	if err1 != nil || err2 != nil || colorID <= 0 || unitID <= 0 {
		utils.Error(c, 400, utils.CodeInvalidRequest, "color_id and unit_id are required")
		return
	}

	ctx := c.Request.Context()
	if h.cached != nil {
		hit, err := h.cached.Get(ctx, productID, colorID, unitID)
		if err == nil {
			c.Header("X-Cache", "HIT")
			utils.Success(c, 200, "Availability retrieved", hit)
			return
		}
		if !errors.Is(err, cache.ErrMiss) {
			log.Warn().Err(err).Int("product_id", productID).Msg("availability cache read failed")
		}
	}

	a, err := h.inventory.Availability(ctx, productID, colorID, unitID)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.cached != nil {
		if err := h.cached.Set(ctx, a); err != nil {
			log.Warn().Err(err).Int("product_id", productID).Msg("availability cache write failed")
		}
		c.Header("X-Cache", "MISS")
	}
	utils.Success(c, 200, "Availability retrieved", a)
}
