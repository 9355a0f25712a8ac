// Package disambiguation resolves ambiguous inventory references across
// turns. When a command matches several items the resolver stores a
// PendingChoice in the client's session and asks the operator to pick; the
// next turn is routed here first until the choice is resolved or cancelled.
//
// Product creation runs as a small state machine on top of this:
//
//	awaiting_materials -> awaiting_packaging -> ready
//
// Each material term and the packaging term are looked up in turn. A term
// with several matches suspends the draft behind a PendingChoice; a term
// with no match is skipped.
package disambiguation

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopeasly/easly/internal/easly/actions"
	"github.com/shopeasly/easly/internal/easly/catalog"
	"github.com/shopeasly/easly/internal/easly/reply"
	"github.com/shopeasly/easly/internal/easly/session"
)

const (
	CancelledMessage      = "Cancelled. Nothing changed."
	MissingPriceMessage   = `❌ Price is missing for product creation. Please specify like "price 25".`
	DraftExpiredMessage   = "That product draft has expired. Please start the product again."
	chooseAgainHeader     = "Please choose an option by number or SKU:"
	missingPriceForDirect = "❌ Failed to create product: price is required for product creation"
)

var (
	cancelRe = regexp.MustCompile(`(?i)\b(?:cancel|never\s*mind|stop|abort)\b`)
	numberRe = regexp.MustCompile(`^\s*(?:option\s*)?(\d+)\b`)
	skuRe    = regexp.MustCompile(`(?i)\b(sku[-\s]*[a-z0-9\-]+)\b`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// Resolver owns the pending-choice lifecycle.
type Resolver struct {
	cat      *catalog.Catalog
	sessions *session.Manager
}

// New returns a Resolver.
func New(cat *catalog.Catalog, sessions *session.Manager) *Resolver {
	return &Resolver{cat: cat, sessions: sessions}
}

// IsCancel reports whether text asks to abandon the pending choice.
func IsCancel(text string) bool { return cancelRe.MatchString(text) }

// Resolve handles a turn for a client with a pending choice. handled is false
// when s has nothing pending and the turn should go to the intent rules.
func (r *Resolver) Resolve(ctx context.Context, clientID, text string, s *session.Session) (rep reply.Reply, handled bool, err error) {
	if s == nil || s.PendingChoice == nil {
		return reply.Reply{}, false, nil
	}
	pending := s.PendingChoice

	if IsCancel(text) {
		if err := r.sessions.Clear(ctx, clientID, session.KeyPendingChoice, session.KeyPendingCreateProduct); err != nil {
			return reply.Reply{}, true, err
		}
		return reply.Text(CancelledMessage), true, nil
	}

	idx := Select(pending.Candidates, text)
	if idx < 0 {
		return Prompt(chooseAgainHeader, pending.Candidates), true, nil
	}
	chosen := pending.Candidates[idx]

	switch pending.Type {
	case session.ChoiceRestockByName:
		if err := r.sessions.Clear(ctx, clientID, session.KeyPendingChoice); err != nil {
			return reply.Reply{}, true, err
		}
		return reply.Run(actions.NewIncrementStock(chosen.ID, chosen.SKU, pending.Delta), ""), true, nil

	case session.ChoiceMaterialForProduct, session.ChoicePackagingForProduct:
		draft := s.PendingCreateProduct
		if draft == nil {
			if err := r.sessions.Clear(ctx, clientID, session.KeyPendingChoice); err != nil {
				return reply.Reply{}, true, err
			}
			return reply.Text(DraftExpiredMessage), true, nil
		}
		if pending.Type == session.ChoiceMaterialForProduct {
			draft.ResolvedMaterialIDs = append(draft.ResolvedMaterialIDs, chosen.ID)
			draft.MaterialCursor++
		} else {
			draft.PackagingID = chosen.ID
			draft.State = session.DraftReady
		}
		rep, err := r.advance(ctx, clientID, draft, true)
		return rep, true, err

	default:
		if err := r.sessions.Clear(ctx, clientID, session.KeyPendingChoice); err != nil {
			return reply.Reply{}, false, err
		}
		return reply.Reply{}, false, nil
	}
}

// Select returns the index of the candidate text picks, or -1. It tries a
// 1-based option number, then a SKU mention or a word equal to a
// candidate SKU, then a name containing text.
func Select(candidates []session.Candidate, text string) int {
	q := strings.ToLower(strings.TrimSpace(text))
	if m := numberRe.FindStringSubmatch(q); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= len(candidates) {
			return n - 1
		}
	}
	if m := skuRe.FindStringSubmatch(q); m != nil {
		sku := strings.ToUpper(spaceRe.ReplaceAllString(m[1], ""))
		for i, c := range candidates {
			if strings.EqualFold(c.SKU, sku) {
				return i
			}
		}
	}
	for _, tok := range strings.FieldsFunc(q, isSeparator) {
		for i, c := range candidates {
			if c.SKU != "" && strings.EqualFold(c.SKU, tok) {
				return i
			}
		}
	}
	if q == "" {
		return -1
	}
	for i, c := range candidates {
		if strings.Contains(strings.ToLower(c.Name), q) {
			return i
		}
	}
	return -1
}

func isSeparator(r rune) bool {
	return r == ' ' || r == ',' || r == '\t' || r == '.'
}

// Candidates converts inventory matches into choice candidates.
func Candidates(items []catalog.InventoryItem) []session.Candidate {
	out := make([]session.Candidate, len(items))
	for i, it := range items {
		out[i] = session.Candidate{ID: it.ID, Name: it.Name, SKU: it.SKU, Stock: it.Stock}
	}
	return out
}

// Prompt renders a numbered choice list under header.
func Prompt(header string, candidates []session.Candidate) reply.Reply {
	lines := make([]string, len(candidates))
	options := make([]reply.Option, len(candidates))
	for i, c := range candidates {
		sku := c.SKU
		if sku == "" {
			sku = "N/A"
		}
		lines[i] = fmt.Sprintf("%d. %s (%s) — stock %d", i+1, c.Name, sku, c.Stock)
		options[i] = reply.Option{
			Label: fmt.Sprintf("%s (%s) — %d", c.Name, sku, c.Stock),
			Send:  strconv.Itoa(i + 1),
		}
	}
	return reply.Choose(header+"\n"+strings.Join(lines, "\n"), options)
}

// AskRestock stores a restock choice over matches and returns the prompt.
func (r *Resolver) AskRestock(ctx context.Context, clientID, term string, delta int, matches []catalog.InventoryItem) (reply.Reply, error) {
	cands := Candidates(matches)
	if err := r.sessions.Set(ctx, clientID, session.Patch{PendingChoice: &session.PendingChoice{
		Type:       session.ChoiceRestockByName,
		Term:       term,
		Candidates: cands,
		Delta:      delta,
	}}); err != nil {
		return reply.Reply{}, err
	}
	return Prompt(fmt.Sprintf("I found multiple items matching %q. Please choose:", term), cands), nil
}

// StartProduct begins resolving a new product draft.
func (r *Resolver) StartProduct(ctx context.Context, clientID string, draft session.ProductDraft) (reply.Reply, error) {
	draft.State = session.DraftAwaitingMaterials
	draft.MaterialCursor = 0
	draft.ResolvedMaterialIDs = nil
	return r.advance(ctx, clientID, &draft, false)
}

// advance resolves as many remaining terms as possible. resumed is true
// when the draft comes back from a pending choice.
func (r *Resolver) advance(ctx context.Context, clientID string, draft *session.ProductDraft, resumed bool) (reply.Reply, error) {
	var items []catalog.InventoryItem
	load := func() error {
		if items != nil {
			return nil
		}
		var err error
		items, err = r.cat.Inventory(ctx)
		return err
	}

	if draft.State == session.DraftAwaitingMaterials {
		for draft.MaterialCursor < len(draft.MaterialTerms) {
			if err := load(); err != nil {
				return reply.Reply{}, err
			}
			term := draft.MaterialTerms[draft.MaterialCursor]
			matches := catalog.FindComponents(items, term, catalog.IsMaterialsCategory)
			switch len(matches) {
			case 0:
			case 1:
				draft.ResolvedMaterialIDs = append(draft.ResolvedMaterialIDs, matches[0].ID)
			default:
				return r.suspend(ctx, clientID, draft, session.ChoiceMaterialForProduct, term, matches,
					fmt.Sprintf("Multiple materials match %q. Please choose:", term))
			}
			draft.MaterialCursor++
		}
		draft.State = session.DraftAwaitingPackaging
	}

	if draft.State == session.DraftAwaitingPackaging {
		if draft.PackagingTerm != "" && draft.PackagingID == "" {
			if err := load(); err != nil {
				return reply.Reply{}, err
			}
			matches := catalog.FindComponents(items, draft.PackagingTerm, catalog.IsPackingCategory)
			switch len(matches) {
			case 0:
			case 1:
				draft.PackagingID = matches[0].ID
			default:
				return r.suspend(ctx, clientID, draft, session.ChoicePackagingForProduct, draft.PackagingTerm, matches,
					fmt.Sprintf("Multiple packaging items match %q. Please choose:", draft.PackagingTerm))
			}
		}
		draft.State = session.DraftReady
	}

	if draft.Price == nil {
		if !resumed {
			return reply.Text(missingPriceForDirect), nil
		}
		if err := r.sessions.Clear(ctx, clientID, session.KeyPendingChoice); err != nil {
			return reply.Reply{}, err
		}
		return reply.Text(MissingPriceMessage), nil
	}

	if resumed {
		if err := r.sessions.Clear(ctx, clientID, session.KeyPendingChoice, session.KeyPendingCreateProduct); err != nil {
			return reply.Reply{}, err
		}
	}
	a := actions.NewCreateProduct(catalog.ProductInput{
		Name:        draft.Name,
		Price:       *draft.Price,
		Quantity:    draft.Quantity,
		MaterialIDs: draft.ResolvedMaterialIDs,
		PackagingID: draft.PackagingID,
		Category:    catalog.CategoryProducts,
		ImageURL:    draft.ImageURL,
	})
	return reply.Run(a, ""), nil
}

func (r *Resolver) suspend(ctx context.Context, clientID string, draft *session.ProductDraft, t session.ChoiceType, term string, matches []catalog.InventoryItem, header string) (reply.Reply, error) {
	cands := Candidates(matches)
	if err := r.sessions.Set(ctx, clientID, session.Patch{
		PendingCreateProduct: draft,
		PendingChoice:        &session.PendingChoice{Type: t, Term: term, Candidates: cands},
	}); err != nil {
		return reply.Reply{}, err
	}
	return Prompt(header, cands), nil
}
