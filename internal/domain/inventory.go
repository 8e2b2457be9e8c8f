package domain

import (
	"fmt"
	"math"
	"time"
)

// InventoryItem is a single stock line of an organization's inventory as
// reported by the upstream inventory service.
type InventoryItem struct {
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Quantity  int64     `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks if the InventoryItem has valid data.
func (i InventoryItem) Validate() error {
	if i.SKU == "" {
		return ErrEmptySKU
	}

	if i.Quantity < 0 {
		return fmt.Errorf("%w: sku %s has quantity %d", ErrNegativeQuantity, i.SKU, i.Quantity)
	}

	return nil
}

// InventorySnapshot is the full inventory of one organization captured at a
// point in time. A new snapshot replaces the previous one as a whole.
type InventorySnapshot struct {
	OrgID     string          `json:"org_id"`
	Items     []InventoryItem `json:"items"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// NewInventorySnapshot creates a validated snapshot for org.
// An empty item list is valid and represents an organization without stock.
func NewInventorySnapshot(org string, items []InventoryItem, fetchedAt time.Time) (*InventorySnapshot, error) {
	snapshot := &InventorySnapshot{
		OrgID:     org,
		Items:     items,
		FetchedAt: fetchedAt.UTC(),
	}

	if snapshot.Items == nil {
		snapshot.Items = []InventoryItem{}
	}

	if err := snapshot.Validate(); err != nil {
		return nil, err
	}

	return snapshot, nil
}

// Validate checks the organization ID and every item, and rejects duplicate
// SKUs. The total quantity must fit in an int64.
func (s *InventorySnapshot) Validate() error {
	if err := ValidateOrgID(s.OrgID); err != nil {
		return err
	}

	var total int64
	seen := make(map[string]struct{}, len(s.Items))
	for _, item := range s.Items {
		if err := item.Validate(); err != nil {
			return err
		}
		if _, dup := seen[item.SKU]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateSKU, item.SKU)
		}
		seen[item.SKU] = struct{}{}

		if item.Quantity > math.MaxInt64-total {
			return fmt.Errorf("%w: at sku %s", ErrQuantityOverflow, item.SKU)
		}
		total += item.Quantity
	}

	return nil
}

// TotalQuantity returns the sum of all item quantities.
func (s *InventorySnapshot) TotalQuantity() int64 {
	var total int64
	for _, item := range s.Items {
		total += item.Quantity
	}
	return total
}
