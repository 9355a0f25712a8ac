// Package intent turns free-form admin commands into replies and actions
// using an ordered list of deterministic rules. The first rule whose
// pattern matches and whose handler accepts the input wins; a handler may
// decline, in which case evaluation continues with the next rule.
package intent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopeasly/easly/internal/easly/catalog"
	"github.com/shopeasly/easly/internal/easly/disambiguation"
	"github.com/shopeasly/easly/internal/easly/reply"
	"github.com/shopeasly/easly/internal/easly/session"
)

// Input is one operator turn.
type Input struct {
	ClientID string
	Text     string
	// Attachment is an optional base64 image, with or without a data: URL
	// prefix.
	Attachment string
	Session    *session.Session
}

func (in *Input) lower() string { return strings.ToLower(in.Text) }

func (in *Input) lastInventory() *session.ItemRef {
	if in.Session == nil || in.Session.LastInventory == nil || in.Session.LastInventory.ID == "" {
		return nil
	}
	return in.Session.LastInventory
}

// Rule is one entry of the cascade. Pattern is matched case-insensitively
// against the trimmed input; Guard, when set, must also hold. Apply gets the
// pattern's submatches and reports ok=false to pass the turn on.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Guard   func(in *Input) bool
	Apply   func(ctx context.Context, in *Input, groups []string) (rep reply.Reply, ok bool, err error)
}

// DesignGenerator renders a printable design image and returns its URL.
type DesignGenerator interface {
	Generate(ctx context.Context, prompt string) (url string, err error)
}

// Matcher evaluates the rule cascade.
type Matcher struct {
	cat      *catalog.Catalog
	sessions *session.Manager
	resolver *disambiguation.Resolver
	designs  DesignGenerator
	uploads  *Uploads
	rules    []Rule
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithDesigns enables the design generation rule.
func WithDesigns(g DesignGenerator) Option { return func(m *Matcher) { m.designs = g } }

// WithUploads lets rules persist image attachments.
func WithUploads(u *Uploads) Option { return func(m *Matcher) { m.uploads = u } }

// New returns a Matcher with the standard rule order.
func New(cat *catalog.Catalog, sessions *session.Manager, resolver *disambiguation.Resolver, opts ...Option) *Matcher {
	m := &Matcher{cat: cat, sessions: sessions, resolver: resolver}
	for _, opt := range opts {
		opt(m)
	}
	m.rules = m.standardRules()
	return m
}

// Rules returns the cascade in evaluation order.
func (m *Matcher) Rules() []Rule { return m.rules }

// Match runs the cascade. matched is false when no rule handled the input;
// rule names the rule that did.
func (m *Matcher) Match(ctx context.Context, in Input) (rep reply.Reply, rule string, matched bool, err error) {
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" {
		return reply.Reply{}, "", false, nil
	}
	for _, r := range m.rules {
		var groups []string
		if r.Pattern != nil {
			groups = r.Pattern.FindStringSubmatch(in.Text)
			if groups == nil {
				continue
			}
		}
		if r.Guard != nil && !r.Guard(&in) {
			continue
		}
		rep, ok, err := r.Apply(ctx, &in, groups)
		if err != nil {
			return reply.Reply{}, r.Name, true, fmt.Errorf("intent: %s: %w", r.Name, err)
		}
		if ok {
			return rep, r.Name, true, nil
		}
	}
	return reply.Reply{}, "", false, nil
}

func (m *Matcher) standardRules() []Rule {
	return []Rule{
		// Follow-ups on the last touched item.
		{Name: "followup_price", Pattern: followPriceRe, Guard: followUp, Apply: m.followPrice},
		{Name: "followup_sku", Pattern: followSKURe, Guard: followUp, Apply: m.followSKU},
		{Name: "followup_rename", Pattern: followRenameRe, Guard: followUpRename, Apply: m.followRename},
		{Name: "followup_category", Pattern: followCategoryRe, Guard: followUp, Apply: m.followCategory},
		{Name: "followup_color", Pattern: followColorRe, Guard: followUp, Apply: m.followColor},

		// Reports.
		{Name: "inventory_summary", Guard: isInventorySummary, Apply: m.inventorySummary},
		{Name: "orders_overview", Guard: isOrdersOverview, Apply: m.ordersOverview},
		{Name: "stock_query", Pattern: stockQueryRe, Apply: m.stockQuery},

		// Component and product creation.
		{Name: "add_packing_material", Pattern: addPackingRe, Apply: m.addPacking},
		{Name: "add_material", Pattern: addMaterialRe, Apply: m.addMaterial},
		{Name: "create_product", Pattern: createProductRe, Apply: m.createProduct},

		// Stock changes.
		{Name: "restock_by_sku", Pattern: restockSKURe, Apply: m.restockBySKU},
		{Name: "restock_by_name", Pattern: restockNameRe, Apply: m.restockByName},
		{Name: "set_stock", Pattern: setStockRe, Apply: m.setStock},
		{Name: "add_item", Pattern: addHeadRe, Guard: isPlainAdd, Apply: m.addItem},
		{Name: "delete_item", Pattern: deleteItemRe, Apply: m.deleteItem},

		// Orders.
		{Name: "order_status", Pattern: orderStatusRe, Apply: m.orderStatus},

		// Media.
		{Name: "generate_design", Pattern: designRe, Apply: m.generateDesign},
		{Name: "attach_image", Pattern: attachImageRe, Apply: m.attachImage},
		{Name: "ninjatransfer_link", Pattern: ninjaRe, Apply: m.ninjaLink},

		// Orders.
		{Name: "create_order", Pattern: createOrderRe, Apply: m.createOrder},
		{Name: "delete_order", Pattern: deleteOrderRe, Apply: m.deleteOrder},

		{Name: "bare_confirm", Guard: wantsExecute, Apply: bareConfirm},
	}
}

// ReadyMessage answers a confirmation with nothing to confirm.
const ReadyMessage = "✅ Ready to execute! Please provide the specific action you'd like me to perform."

func bareConfirm(context.Context, *Input, []string) (reply.Reply, bool, error) {
	return reply.Text(ReadyMessage), true, nil
}
