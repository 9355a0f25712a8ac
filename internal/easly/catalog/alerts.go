package catalog

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// DefaultAlertExpr flags a packing material once stock reaches its threshold.
const DefaultAlertExpr = "stock <= threshold"

// alertEnv is the environment an alert expression is checked and evaluated
// against.
type alertEnv struct {
	Stock     int    `expr:"stock"`
	Threshold int    `expr:"threshold"`
	Name      string `expr:"name"`
	SKU       string `expr:"sku"`
}

// CompileAlertExpr type-checks an alert predicate. The expression sees stock,
// threshold, name and sku and must return a bool.
func CompileAlertExpr(src string) (*vm.Program, error) {
	if src == "" {
		return nil, fmt.Errorf("alert expression: empty")
	}
	prog, err := expr.Compile(src, expr.Env(alertEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("alert expression %q: %w", src, err)
	}
	return prog, nil
}

// PackingAlert is one packing material that needs restocking.
type PackingAlert struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SKU        string `json:"sku"`
	Stock      int    `json:"stock"`
	Threshold  int    `json:"threshold"`
	Dimensions string `json:"dimensions,omitempty"`
}

// PackingAlerts splits packing materials into out-of-stock and low-stock.
type PackingAlerts struct {
	Low    []PackingAlert `json:"low"`
	Out    []PackingAlert `json:"out"`
	Counts struct {
		Low          int `json:"low"`
		Out          int `json:"out"`
		TotalPacking int `json:"totalPacking"`
	} `json:"counts"`
}

// PackingAlerts reports packing materials with no stock, and those matching
// the alert predicate. Items without a threshold use defaultThreshold.
func (c *Catalog) PackingAlerts(ctx context.Context, defaultThreshold int) (*PackingAlerts, error) {
	items, err := c.Inventory(ctx)
	if err != nil {
		return nil, err
	}

	res := &PackingAlerts{Low: []PackingAlert{}, Out: []PackingAlert{}}
	for _, it := range items {
		if !IsPackingCategory(it.Category) {
			continue
		}
		res.Counts.TotalPacking++

		threshold := it.Threshold
		if threshold <= 0 {
			threshold = defaultThreshold
		}
		a := PackingAlert{ID: it.ID, Name: it.Name, SKU: it.SKU, Stock: it.Stock, Threshold: threshold, Dimensions: it.Dimensions}

		if it.Stock <= 0 {
			res.Out = append(res.Out, a)
			continue
		}
		out, err := expr.Run(c.alert, alertEnv{Stock: it.Stock, Threshold: threshold, Name: it.Name, SKU: it.SKU})
		if err != nil {
			return nil, fmt.Errorf("catalog: evaluate alert for %s: %w", it.SKU, err)
		}
		if low, _ := out.(bool); low {
			res.Low = append(res.Low, a)
		}
	}
	res.Counts.Low = len(res.Low)
	res.Counts.Out = len(res.Out)
	return res, nil
}
