package sse

import (
	"github.com/GTDGit/gradeshop_api/internal/models"
	"github.com/GTDGit/gradeshop_api/internal/service"
)

// CatalogNotifier is what handlers use to announce committed catalog changes.
type CatalogNotifier interface {
	ImportCompleted(report *service.BatchReport)
	StockUpdated(productID int)
	StrategyChanged(productID int, strategy models.StockStrategy)
}

// HubNotifier implements CatalogNotifier using the SSE Hub.
type HubNotifier struct {
	hub *Hub
}

// NewHubNotifier creates a notifier backed by the given Hub.
func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

// ImportSummary is the data of an import.completed event.
type ImportSummary struct {
	ProductsCreated int      `json:"produtos_novos"`
	ProductsUpdated int      `json:"produtos_atualizados"`
	VariantsCreated int      `json:"variantes_novas"`
	Codes           []string `json:"codigos"`
}

func (n *HubNotifier) ImportCompleted(report *service.BatchReport) {
	if report == nil || n.hub.ClientCount() == 0 {
		return
	}
	summary := ImportSummary{
		ProductsCreated: report.ProductsCreated,
		ProductsUpdated: report.ProductsUpdated,
		VariantsCreated: report.VariantsCreated,
		Codes:           make([]string, 0, len(report.Products)),
	}
	for _, p := range report.Products {
		summary.Codes = append(summary.Codes, p.Code)
	}
	n.hub.Broadcast(&Event{Event: EventImportCompleted, Data: summary})
}

func (n *HubNotifier) StockUpdated(productID int) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(&Event{Event: EventStockUpdated, ProductID: productID})
}

func (n *HubNotifier) StrategyChanged(productID int, strategy models.StockStrategy) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(&Event{
		Event:     EventStrategyChanged,
		ProductID: productID,
		Data:      map[string]models.StockStrategy{"estrategia_estoque": strategy},
	})
}

// NopNotifier is a no-op implementation for when SSE is not needed.
type NopNotifier struct{}

func (NopNotifier) ImportCompleted(*service.BatchReport)      {}
func (NopNotifier) StockUpdated(int)                          {}
func (NopNotifier) StrategyChanged(int, models.StockStrategy) {}
