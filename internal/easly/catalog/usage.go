package catalog

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// ProductUsage aggregates orders for one product name.
type ProductUsage struct {
	Name        string  `json:"name"`
	SKU         string  `json:"sku,omitempty"`
	Category    string  `json:"category"`
	Quantity    int     `json:"quantity"`
	Orders      int     `json:"orders"`
	Revenue     float64 `json:"revenue"`
	PackagingID string  `json:"packagingId,omitempty"`
}

// PackagingUsage counts packaging consumed, one unit per product unit.
type PackagingUsage struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// UsageReport summarises orders placed in a date range.
type UsageReport struct {
	Timeframe struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"timeframe"`
	Totals struct {
		Orders  int     `json:"orders"`
		Units   int     `json:"units"`
		Revenue float64 `json:"revenue"`
	} `json:"totals"`
	Products       []ProductUsage   `json:"products"`
	PackagingUsage []PackagingUsage `json:"packagingUsage"`
}

const dateLayout = "2006-01-02"

// UsageReport aggregates orders dated between start and end (YYYY-MM-DD,
// both inclusive, UTC) per product, joining inventory by product name for
// SKU, category and packaging.
func (c *Catalog) UsageReport(ctx context.Context, start, end string) (*UsageReport, error) {
	from, err := time.Parse(dateLayout, start)
	if err != nil {
		return nil, invalid("start", "must be YYYY-MM-DD")
	}
	to, err := time.Parse(dateLayout, end)
	if err != nil {
		return nil, invalid("end", "must be YYYY-MM-DD")
	}
	until := to.Add(24*time.Hour - time.Millisecond)

	var (
		orders []Order
		items  []InventoryItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = c.Orders(gctx, 0)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = c.Inventory(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byName := make(map[string]InventoryItem, len(items))
	byID := make(map[string]InventoryItem, len(items))
	for _, it := range items {
		if it.Name != "" {
			byName[strings.ToLower(it.Name)] = it
		}
		byID[it.ID] = it
	}

	report := &UsageReport{}
	report.Timeframe.Start, report.Timeframe.End = start, end

	products := map[string]*ProductUsage{}
	var revenue float64
	for _, o := range orders {
		at, ok := orderTime(o)
		if !ok || at.Before(from) || at.After(until) {
			continue
		}
		report.Totals.Orders++

		name := strings.TrimSpace(o.Product)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		report.Totals.Units += o.Quantity
		revenue += o.Price * float64(o.Quantity)

		p, ok := products[key]
		if !ok {
			inv := byName[key]
			p = &ProductUsage{Name: name, SKU: inv.SKU, Category: orDefault(inv.Category, CategoryProducts), PackagingID: inv.PackagingID}
			products[key] = p
		}
		p.Quantity += o.Quantity
		p.Orders++
		p.Revenue += o.Price * float64(o.Quantity)
	}
	report.Totals.Revenue = math.Round(revenue*100) / 100

	packaging := map[string]*PackagingUsage{}
	for _, p := range products {
		report.Products = append(report.Products, *p)
		if p.PackagingID == "" {
			continue
		}
		pkg, ok := byID[p.PackagingID]
		if !ok {
			continue
		}
		u, ok := packaging[pkg.ID]
		if !ok {
			u = &PackagingUsage{ID: pkg.ID, Name: pkg.Name, SKU: pkg.SKU}
			packaging[pkg.ID] = u
		}
		u.Quantity += p.Quantity
	}
	for _, u := range packaging {
		report.PackagingUsage = append(report.PackagingUsage, *u)
	}

	sort.SliceStable(report.Products, func(i, j int) bool {
		if report.Products[i].Quantity != report.Products[j].Quantity {
			return report.Products[i].Quantity > report.Products[j].Quantity
		}
		return report.Products[i].Name < report.Products[j].Name
	})
	sort.SliceStable(report.PackagingUsage, func(i, j int) bool {
		if report.PackagingUsage[i].Quantity != report.PackagingUsage[j].Quantity {
			return report.PackagingUsage[i].Quantity > report.PackagingUsage[j].Quantity
		}
		return report.PackagingUsage[i].Name < report.PackagingUsage[j].Name
	})
	return report, nil
}

// orderTime prefers createdAt and falls back to the order date.
func orderTime(o Order) (time.Time, bool) {
	if !o.CreatedAt.IsZero() {
		return o.CreatedAt.UTC(), true
	}
	if d, err := time.Parse(dateLayout, o.Date); err == nil {
		return d, true
	}
	return time.Time{}, false
}
