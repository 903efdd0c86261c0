package recommend

import (
	"context"

	"github.com/FieldmateAI/fieldmate-mvp/engine/domain"
)

// Inventory answers stock availability for a part number.
type Inventory interface {
	Check(ctx context.Context, partNumber string) (domain.StockInfo, error)
}

// lowStockThreshold marks parts worth flagging before they run out.
const lowStockThreshold = 3

// CheckAll groups recommended parts by availability and totals the cost of
// purchasable ones. Lookup failures count as out of stock: availability is
// never assumed.
func CheckAll(ctx context.Context, inv Inventory, recs []domain.PartRecommendation) domain.InventoryStatus {
	var status domain.InventoryStatus
	for _, rec := range recs {
		if rec.PartNumber == "" {
			continue
		}
		info, err := inv.Check(ctx, rec.PartNumber)
		if err != nil || !info.InStock {
			status.OutOfStockParts = append(status.OutOfStockParts, domain.StockInfo{PartNumber: rec.PartNumber})
			continue
		}
		if info.Quantity < lowStockThreshold {
			status.LowStockParts = append(status.LowStockParts, info)
		} else {
			status.AvailableParts = append(status.AvailableParts, info)
		}
		status.TotalEstimatedCost += info.EstimatedCost
	}
	return status
}

// StaticInventory is a placeholder that reports every part in stock at a
// flat quantity and cost. Swap in a live inventory integration before
// trusting availability figures.
type StaticInventory struct {
	Quantity int
	UnitCost float64
}

// NewStaticInventory returns the stock placeholder tuning.
func NewStaticInventory() *StaticInventory {
	return &StaticInventory{Quantity: 10, UnitCost: 45.50}
}

// Check reports the fixed placeholder stock entry.
func (s *StaticInventory) Check(_ context.Context, partNumber string) (domain.StockInfo, error) {
	return domain.StockInfo{
		PartNumber:    partNumber,
		InStock:       true,
		Quantity:      s.Quantity,
		EstimatedCost: s.UnitCost,
	}, nil
}
