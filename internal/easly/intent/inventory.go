package intent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopeasly/easly/internal/easly/actions"
	"github.com/shopeasly/easly/internal/easly/catalog"
	"github.com/shopeasly/easly/internal/easly/reply"
	"github.com/shopeasly/easly/internal/easly/session"
)

// --- last-item follow-ups ---

func (m *Matcher) editLast(in *Input, fields map[string]any) (reply.Reply, bool, error) {
	inv := in.lastInventory()
	return reply.Run(actions.NewUpdateFields(inv.ID, inv.Label(), fields), ""), true, nil
}

func (m *Matcher) followPrice(_ context.Context, in *Input, g []string) (reply.Reply, bool, error) {
	price, err := strconv.ParseFloat(g[1], 64)
	if err != nil {
		return reply.Reply{}, false, nil
	}
	return m.editLast(in, map[string]any{"price": price})
}

func (m *Matcher) followSKU(_ context.Context, in *Input, g []string) (reply.Reply, bool, error) {
	return m.editLast(in, map[string]any{"sku": strings.ToUpper(g[1])})
}

func (m *Matcher) followRename(_ context.Context, in *Input, g []string) (reply.Reply, bool, error) {
	name := strings.TrimSpace(g[1])
	if name == "" {
		return reply.Reply{}, false, nil
	}
	return m.editLast(in, map[string]any{"name": name})
}

func (m *Matcher) followCategory(_ context.Context, in *Input, g []string) (reply.Reply, bool, error) {
	return m.editLast(in, map[string]any{"category": strings.TrimSpace(g[1])})
}

func (m *Matcher) followColor(_ context.Context, in *Input, g []string) (reply.Reply, bool, error) {
	color := g[1]
	if color == "" {
		color = g[2]
	}
	return m.editLast(in, map[string]any{"color": strings.ToLower(color)})
}

// --- reports ---

func (m *Matcher) inventorySummary(ctx context.Context, _ *Input, _ []string) (reply.Reply, bool, error) {
	s, err := m.cat.Summarize(ctx)
	if err != nil {
		return reply.Reply{}, false, err
	}
	return reply.Reply{Text: s.Text(), Data: s}, true, nil
}

func (m *Matcher) ordersOverview(ctx context.Context, _ *Input, _ []string) (reply.Reply, bool, error) {
	ov, err := m.cat.Overview(ctx)
	if err != nil {
		return reply.Reply{}, false, err
	}
	return reply.Reply{Text: ov.Text(), Data: ov}, true, nil
}

func (m *Matcher) stockQuery(ctx context.Context, _ *Input, g []string) (reply.Reply, bool, error) {
	r, err := m.cat.StockFor(ctx, g[1])
	if err != nil {
		return reply.Reply{}, false, err
	}
	return reply.Reply{Text: r.Text(), Data: r}, true, nil
}

// --- components and products ---

func optFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func optInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func (m *Matcher) addPacking(_ context.Context, _ *Input, g []string) (reply.Reply, bool, error) {
	return reply.Run(actions.NewAddPackingMaterial(catalog.MaterialInput{
		Name:       strings.TrimSpace(g[1]),
		Dimensions: strings.TrimSpace(g[2]),
		Stock:      optInt(g[3], 0),
		Price:      optFloat(g[4]),
	}), ""), true, nil
}

func (m *Matcher) addMaterial(_ context.Context, _ *Input, g []string) (reply.Reply, bool, error) {
	return reply.Run(actions.NewAddMaterial(catalog.MaterialInput{
		Name:  strings.TrimSpace(g[1]),
		Stock: optInt(g[2], 0),
		Price: optFloat(g[3]),
	}), ""), true, nil
}

func (m *Matcher) createProduct(ctx context.Context, in *Input, g []string) (reply.Reply, bool, error) {
	fromDesign := g[1] != ""
	draft := session.ProductDraft{
		Name:          strings.TrimSpace(g[2]),
		Price:         optFloat(g[3]),
		Quantity:      optInt(g[4], 0),
		MaterialTerms: splitList(g[5]),
		PackagingTerm: strings.TrimSpace(g[6]),
	}

	var design *session.Design
	if in.Session != nil {
		design = in.Session.LastDesign
	}
	if fromDesign && design != nil {
		draft.ImageURL = design.URL
	}
	if draft.ImageURL == "" && in.Attachment != "" && m.uploads != nil {
		url, err := m.uploads.Save(in.Attachment)
		if err != nil {
			return reply.Text("❌ Failed to create product: " + err.Error()), true, nil
		}
		draft.ImageURL = url
	}
	if draft.Name == "" {
		draft.Name = "New Product"
		if fromDesign && design != nil && design.Subject != "" {
			draft.Name = design.Subject
		}
	}

	rep, err := m.resolver.StartProduct(ctx, in.ClientID, draft)
	return rep, true, err
}

// --- stock changes ---

func notFoundSKU(sku string) reply.Reply {
	return reply.Text(fmt.Sprintf("❌ I couldn't find SKU %s in inventory.", sku))
}

// itemBySKU returns nil, nil when sku does not exist.
func (m *Matcher) itemBySKU(ctx context.Context, sku string) (*catalog.InventoryItem, error) {
	it, err := m.cat.ItemBySKU(ctx, sku)
	var nf *catalog.NotFoundError
	if errors.As(err, &nf) {
		return nil, nil
	}
	return it, err
}

func (m *Matcher) restockBySKU(ctx context.Context, _ *Input, g []string) (reply.Reply, bool, error) {
	delta, _ := strconv.Atoi(g[1])
	sku := normalizeSKU(g[2])
	it, err := m.itemBySKU(ctx, sku)
	if err != nil || it == nil {
		return notFoundSKU(sku), true, err
	}
	return reply.Run(actions.NewIncrementStock(it.ID, it.SKU, delta), ""), true, nil
}

// matchItems returns items whose name or SKU contains every word of term,
// with simple plurals folded so "black t-shirts" finds "Black T-Shirt M".
func matchItems(items []catalog.InventoryItem, term string) []catalog.InventoryItem {
	words := strings.Fields(strings.ToLower(term))
	if len(words) == 0 {
		return nil
	}
	for i, w := range words {
		words[i] = singular(w)
	}
	var out []catalog.InventoryItem
	for _, it := range items {
		hay := strings.ToLower(it.Name + " " + it.SKU)
		all := true
		for _, w := range words {
			if !strings.Contains(hay, w) {
				all = false
				break
			}
		}
		if all {
			out = append(out, it)
		}
	}
	return out
}

func (m *Matcher) restockByName(ctx context.Context, in *Input, g []string) (reply.Reply, bool, error) {
	term := strings.TrimSpace(g[2])
	if priceInTermRe.MatchString(term) {
		return reply.Reply{}, false, nil
	}
	delta, _ := strconv.Atoi(g[1])
	items, err := m.cat.Inventory(ctx)
	if err != nil {
		return reply.Reply{}, false, err
	}
	matches := matchItems(items, term)
	switch {
	case len(matches) == 1:
		it := matches[0]
		return reply.Run(actions.NewIncrementStock(it.ID, it.SKU, delta), ""), true, nil
	case len(matches) > 1 && in.ClientID != "":
		rep, err := m.resolver.AskRestock(ctx, in.ClientID, term, delta, matches)
		return rep, true, err
	}
	return reply.Reply{}, false, nil
}

func (m *Matcher) setStock(ctx context.Context, _ *Input, g []string) (reply.Reply, bool, error) {
	sku := normalizeSKU(g[1])
	stock, _ := strconv.Atoi(g[2])
	it, err := m.itemBySKU(ctx, sku)
	if err != nil || it == nil {
		return notFoundSKU(sku), true, err
	}
	return reply.Run(actions.NewUpdateStock(it.ID, sku, stock), ""), true, nil
}

// addItem creates an item from "add [N] name [as category] [price P] [sku S]",
// filling the rest with heuristic defaults. An existing item with exactly
// that name is restocked instead unless the text says "new" or names a SKU.
func (m *Matcher) addItem(ctx context.Context, in *Input, g []string) (reply.Reply, bool, error) {
	rest := g[2]
	if loc := addStopRe.FindStringIndex(rest); loc != nil {
		rest = rest[:loc[0]]
	}
	explicitNew := newWordRe.MatchString(in.Text)
	name := strings.TrimSpace(rest)
	if explicitNew {
		name = strings.Join(strings.Fields(newWordRe.ReplaceAllString(name, "")), " ")
	}
	if name == "" || strings.Trim(name, "0123456789") == "" {
		return reply.Reply{}, false, nil
	}
	stock := optInt(g[1], 1)

	var sku string
	if sm := skuMentionRe.FindStringSubmatch(in.Text); sm != nil {
		sku = strings.ToUpper(sm[1] + sm[2])
	}

	items, err := m.cat.Inventory(ctx)
	if err != nil {
		return reply.Reply{}, false, err
	}
	if existing := catalog.ExactName(items, name); existing != nil && !explicitNew && sku == "" {
		note := fmt.Sprintf(" (Merged with existing item %s)", existing.SKU)
		return reply.Run(actions.NewIncrementStock(existing.ID, existing.SKU, stock), note), true, nil
	}

	draft := catalog.ItemDraft{Name: name, Stock: stock, SKU: sku}
	if pm := addPriceRe.FindStringSubmatch(in.Text); pm != nil {
		draft.Price = optFloat(pm[1])
	}
	if cm := addCategoryRe.FindStringSubmatch(in.Text); cm != nil {
		c := strings.ToLower(cm[1])
		switch {
		case strings.HasPrefix(c, "pack"):
			draft.Category = catalog.CategoryPacking
		case strings.HasPrefix(c, "raw"), strings.HasPrefix(c, "mater"):
			draft.Category = catalog.CategoryMaterials
		default:
			draft.Category = titleCase(c)
		}
	}
	switch {
	case packingHintRe.MatchString(in.Text):
		draft.Category = catalog.CategoryPacking
	case rawHintRe.MatchString(in.Text):
		draft.Category = catalog.CategoryMaterials
	}

	it, applied := m.cat.ApplyDefaults(draft, items)
	note := ""
	if applied.Any() {
		note = " " + applied.Describe(it)
	}
	return reply.Run(actions.NewCreateInventory(it), note), true, nil
}

func (m *Matcher) deleteItem(ctx context.Context, in *Input, g []string) (reply.Reply, bool, error) {
	sku := normalizeSKU(g[1])
	it, err := m.itemBySKU(ctx, sku)
	if err != nil || it == nil {
		return notFoundSKU(sku), true, err
	}
	a := actions.NewDeleteInventory(it.ID, it.SKU)
	if wantsExecute(in) {
		return reply.Run(a, ""), true, nil
	}
	return reply.Propose(fmt.Sprintf(
		"🗑️ I can delete **%s** (%s). This action cannot be undone. Say \"execute\" or \"confirm\" to delete.",
		it.Name, it.SKU), a), true, nil
}
