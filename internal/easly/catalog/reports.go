package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// LowItem is an item at or below its threshold.
type LowItem struct {
	Name      string `json:"name"`
	SKU       string `json:"sku"`
	Stock     int    `json:"stock"`
	Threshold int    `json:"threshold"`
}

// InventorySummary is the live stock overview.
type InventorySummary struct {
	TotalSKUs      int       `json:"totalSkus"`
	TotalUnits     int       `json:"totalUnits"`
	LowStock       int       `json:"lowStock"`
	OutOfStock     int       `json:"outOfStock"`
	InventoryValue float64   `json:"inventoryValue"`
	TopLow         []LowItem `json:"topLow"`
}

// Summarize computes the inventory summary.
func (c *Catalog) Summarize(ctx context.Context) (*InventorySummary, error) {
	items, err := c.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	return SummarizeItems(items), nil
}

// SummarizeItems computes the inventory summary over items. Low stock counts
// in-stock items at or below a positive threshold; the top-low list includes
// out-of-stock items and is sorted by ascending stock.
func SummarizeItems(items []InventoryItem) *InventorySummary {
	s := &InventorySummary{TotalSKUs: len(items)}
	var low []LowItem
	for _, it := range items {
		s.TotalUnits += it.Stock
		s.InventoryValue += float64(it.Stock) * it.Price
		switch {
		case it.Stock == 0:
			s.OutOfStock++
		case it.Threshold > 0 && it.Stock <= it.Threshold:
			s.LowStock++
		}
		if it.Stock <= it.Threshold {
			low = append(low, LowItem{Name: it.Name, SKU: it.SKU, Stock: it.Stock, Threshold: it.Threshold})
		}
	}
	sort.SliceStable(low, func(i, j int) bool { return low[i].Stock < low[j].Stock })
	if len(low) > 5 {
		low = low[:5]
	}
	s.TopLow = low
	return s
}

// Text renders the summary for chat.
func (s *InventorySummary) Text() string {
	var b strings.Builder
	b.WriteString("📦 **Inventory Summary:**\n")
	fmt.Fprintf(&b, "- **Total SKUs:** %d\n", s.TotalSKUs)
	fmt.Fprintf(&b, "- **Units in stock:** %d\n", s.TotalUnits)
	fmt.Fprintf(&b, "- **Low stock items:** %d\n", s.LowStock)
	fmt.Fprintf(&b, "- **Out of stock:** %d\n", s.OutOfStock)
	fmt.Fprintf(&b, "- **Total inventory value:** $%.2f\n", s.InventoryValue)
	if len(s.TopLow) > 0 {
		b.WriteString("\n⚠️ **Items at or below threshold:**")
		for _, it := range s.TopLow {
			fmt.Fprintf(&b, "\n• %s (%s) — %d ≤ %d", it.Name, it.SKU, it.Stock, it.Threshold)
		}
	}
	return b.String()
}

// PendingOrder is one line of the orders overview.
type PendingOrder struct {
	ID          string  `json:"id"`
	OrderNumber string  `json:"orderNumber"`
	Customer    string  `json:"customer"`
	Total       float64 `json:"total"`
}

// OrdersOverview counts orders by status.
type OrdersOverview struct {
	Pending    int            `json:"pending"`
	Processing int            `json:"processing"`
	Shipped    int            `json:"shipped"`
	Delivered  int            `json:"delivered"`
	TopPending []PendingOrder `json:"topPending"`
}

// Overview computes the orders overview.
func (c *Catalog) Overview(ctx context.Context) (*OrdersOverview, error) {
	orders, err := c.Orders(ctx, 0)
	if err != nil {
		return nil, err
	}
	ov := &OrdersOverview{}
	for _, o := range orders {
		switch strings.ToLower(o.Status) {
		case "pending":
			ov.Pending++
			if len(ov.TopPending) < 5 {
				customer := o.CustomerName
				if customer == "" {
					customer = "N/A"
				}
				ov.TopPending = append(ov.TopPending, PendingOrder{
					ID:          o.ID,
					OrderNumber: o.Ref(),
					Customer:    customer,
					Total:       o.Price * float64(max(o.Quantity, 1)),
				})
			}
		case "processing":
			ov.Processing++
		case "shipped":
			ov.Shipped++
		case "delivered":
			ov.Delivered++
		}
	}
	return ov, nil
}

// Text renders the overview for chat.
func (ov *OrdersOverview) Text() string {
	var b strings.Builder
	b.WriteString("📋 **Orders Overview:**\n")
	fmt.Fprintf(&b, "- **Pending:** %d\n", ov.Pending)
	fmt.Fprintf(&b, "- **Processing:** %d\n", ov.Processing)
	fmt.Fprintf(&b, "- **Shipped:** %d\n", ov.Shipped)
	fmt.Fprintf(&b, "- **Delivered:** %d\n", ov.Delivered)
	if len(ov.TopPending) > 0 {
		b.WriteString("\n📄 **Top pending orders:**")
		for _, o := range ov.TopPending {
			fmt.Fprintf(&b, "\n• %s — %s — $%.2f", o.OrderNumber, o.Customer, o.Total)
		}
	}
	return b.String()
}

// StockMatch is one item counted by a stock query.
type StockMatch struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	SKU   string `json:"sku"`
	Stock int    `json:"stock"`
}

// StockReport answers "how many X do we have".
type StockReport struct {
	Term    string       `json:"term"`
	Total   int          `json:"total"`
	Matches []StockMatch `json:"matches"`
}

// StockFor totals stock over items whose name, SKU or category contains term.
func (c *Catalog) StockFor(ctx context.Context, term string) (*StockReport, error) {
	items, err := c.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	t := strings.ToLower(strings.TrimSpace(term))
	r := &StockReport{Term: t}
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), t) ||
			strings.Contains(strings.ToLower(it.SKU), t) ||
			strings.Contains(strings.ToLower(it.Category), t) {
			r.Total += it.Stock
			r.Matches = append(r.Matches, StockMatch{ID: it.ID, Name: it.Name, SKU: it.SKU, Stock: it.Stock})
		}
	}
	return r, nil
}

// Text renders the stock report for chat.
func (r *StockReport) Text() string {
	if len(r.Matches) == 0 {
		return fmt.Sprintf("📦 I couldn't find any items matching %q.", r.Term)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📦 We have %d units matching %q.", r.Total, r.Term)
	for i, m := range r.Matches {
		if i == 5 {
			break
		}
		fmt.Fprintf(&b, "\n• %s (%s) — %d", orDefault(m.Name, "Unknown"), orDefault(m.SKU, "N/A"), m.Stock)
	}
	return b.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
