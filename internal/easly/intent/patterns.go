package intent

import (
	"regexp"
	"strings"
)

const skuPat = `sku[-\s]*[a-z0-9\-]+`

var (
	// Explicit creation commands suppress last-item follow-ups.
	explicitMaterialRe = regexp.MustCompile(`(?i)\badd\s+(?:a\s+)?(?:raw\s+material|material)s?\b`)
	explicitPackingRe  = regexp.MustCompile(`(?i)\badd\s+(?:a\s+)?packing\s+material\b`)
	explicitProductRe  = regexp.MustCompile(`(?i)\bcreate\s+product\b`)

	followPriceRe    = regexp.MustCompile(`(?i)^(?:(?:set|change|update)\s+)?(?:the\s+)?price\s*(?:to|=)?\s*\$?(\d+(?:\.\d+)?)\s*$`)
	followSKURe      = regexp.MustCompile(`(?i)^(?:(?:set|change|update)\s+)?(?:the\s+)?sku\s*(?:to|=)?\s*([a-z0-9\-]+)\s*$`)
	followRenameRe   = regexp.MustCompile(`(?i)^(?:set|change|rename)\s+(?:it\s+|the\s+)?(?:name\s+)?(?:to\s+|as\s+)?(.+)$`)
	followCategoryRe = regexp.MustCompile(`(?i)^(?:set|change)\s+(?:the\s+)?category\s*(?:to|=)?\s*(.+)$`)
	followColorRe    = regexp.MustCompile(`(?i)^(?:make|set)\s+(?:(?:it|them)\s+([a-z]+)(?:\s+colou?r)?|(?:the\s+)?colou?r\s+(?:to\s+)?([a-z]+))\s*$`)
	renameBlockRe    = regexp.MustCompile(`(?i)price|sku|stock|quantity|category|colou?r|image|photo|picture|ninja|order`)

	stockQueryRe = regexp.MustCompile(`(?i)(?:how\s+many|do\s+we\s+have\s+any|what\s+is\s+stock\s+of)\s+(.+?)(?:\?|$)`)

	addPackingRe    = regexp.MustCompile(`(?i)add\s+(?:a\s+)?packing\s+material\s+(.+?)\s+dimensions\s+([^,]+?)(?:\s+(?:stock|qty|quantity)\s+(\d+))?(?:\s+price\s+\$?(\d+(?:\.\d+)?))?\s*$`)
	addMaterialRe   = regexp.MustCompile(`(?i)add\s+(?:a\s+)?(?:raw\s+material|material)s?\s+(.+?)(?:\s+(?:stock|qty|quantity)\s+(\d+))?(?:\s+price\s+\$?(\d+(?:\.\d+)?))?$`)
	createProductRe = regexp.MustCompile(`(?i)create\s+product(\s+from\s+last\s+design)?(?:\s+(.+?))??(?:\s+price\s*\$?(\d+(?:\.\d+)?))?(?:\s+qty\s+(\d+))?(?:\s+using\s+materials\s+(.+?))?(?:\s+packaging\s+(.+))?$`)
	listSplitRe     = regexp.MustCompile(`(?i),|\band\b`)

	restockSKURe  = regexp.MustCompile(`(?i)\b(?:add|increase|restock|put)\s+(\d+)\s+(?:(?:to|for|on)\s+)?(` + skuPat + `)\b`)
	restockNameRe = regexp.MustCompile(`(?i)^(?:add|increase|restock|put)\s+(\d+)\s+(.+?)\s*$`)
	priceInTermRe = regexp.MustCompile(`(?i)(?:price|cost|at)\s*\$?\s*\d`)
	setStockRe    = regexp.MustCompile(`(?i)(?:set|update)\s+stock\s+(?:for|of)\s+(` + skuPat + `)\s*(?:to|=)\s*(\d+)`)

	addHeadRe     = regexp.MustCompile(`(?i)^add\s+(?:(\d+)\s+)?(.+)$`)
	addStopRe     = regexp.MustCompile(`(?i)\s+(?:to\s+inventory\b|as\s|price\b|cost\b|at\s|sku\b)`)
	addPriceRe    = regexp.MustCompile(`(?i)\b(?:price|cost|at)\s*\$?\s*(\d+(?:\.\d+)?)`)
	addCategoryRe = regexp.MustCompile(`(?i)\bas\s+(raw\s*materials?|materials?|apparel|drinkware|stickers?|headwear|prints?|packing\s*materials?)\b`)
	packingHintRe = regexp.MustCompile(`(?i)pack(?:ing)?\s*materials?|packaging|\bbox(?:es)?\b|mailers?\b|bubble\s*wrap|\btape\b|\blabels?\b`)
	rawHintRe     = regexp.MustCompile(`(?i)raw\s*material|\bmaterials\b`)
	newWordRe     = regexp.MustCompile(`(?i)\bnew\b`)
	skuMentionRe  = regexp.MustCompile(`(?i)\bsku(?:\s*[:=]\s*|\s+)([a-z0-9][a-z0-9\-]*)|\b(sku-[a-z0-9\-]+)`)

	deleteItemRe  = regexp.MustCompile(`(?i)(?:delete|remove)\s+(?:inventory\s+)?(?:item\s+)?(` + skuPat + `)`)
	orderStatusRe = regexp.MustCompile(`(?i)(?:mark|update|set)\s+order\s+([a-z0-9\-]+)\s+(?:as\s+)?(?:status\s+)?(?:to\s+)?(pending|processing|shipped|delivered)`)
	createOrderRe = regexp.MustCompile(`(?i)create\s+(?:an?\s+)?order\s+for\s+(.+?)(?:\s+product\s+(.+?))?(?:\s+qty\s+(\d+))?(?:\s+price\s+\$?(\d+(?:\.\d+)?))?$`)
	deleteOrderRe = regexp.MustCompile(`(?i)(?:delete|remove|cancel)\s+order\s+([a-z0-9\-]+)`)

	designRe      = regexp.MustCompile(`(?i)(?:generate|create|design|make)\s+(?:an?\s+)?(?:image|design|art|mockup|logo)(?:\s+for)?\s+(.+?)(?:\.|$)`)
	attachImageRe = regexp.MustCompile(`(?i)(?:set|attach|add)\s+(?:an?\s+|the\s+)?(?:image|photo|picture)\b`)
	urlRe         = regexp.MustCompile(`(?i)https?:[^\s]+`)
	ninjaRe       = regexp.MustCompile(`(?i)(?:set|add)\s+(?:ninja\s*transfer)\s+(?:link|url)\s+(https?:[^\s]+)`)
	skuRefRe      = regexp.MustCompile(`(?i)\b(` + skuPat + `)\b`)

	executeRe = regexp.MustCompile(`(?i)\b(?:execute|confirm|do\s+it)\b`)
)

// normalizeSKU strips whitespace from a "sku-..." mention and upper-cases it.
func normalizeSKU(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// wantsExecute reports whether the turn carries an explicit go-ahead.
func wantsExecute(in *Input) bool { return executeRe.MatchString(in.Text) }

func followUp(in *Input) bool {
	if in.lastInventory() == nil {
		return false
	}
	return !explicitMaterialRe.MatchString(in.Text) &&
		!explicitPackingRe.MatchString(in.Text) &&
		!explicitProductRe.MatchString(in.Text)
}

func followUpRename(in *Input) bool {
	return followUp(in) && !renameBlockRe.MatchString(in.Text)
}

func isInventorySummary(in *Input) bool {
	q := in.lower()
	return strings.Contains(q, "inventory") && (strings.Contains(q, "summary") || strings.Contains(q, "overview"))
}

func isOrdersOverview(in *Input) bool {
	q := in.lower()
	return (strings.Contains(q, "orders") && (strings.Contains(q, "pending") || strings.Contains(q, "processing"))) ||
		strings.Contains(q, "order status")
}

// isPlainAdd excludes add commands owned by the media rules.
func isPlainAdd(in *Input) bool {
	return !attachImageRe.MatchString(in.Text) && !ninjaRe.MatchString(in.Text)
}

// singular folds a simple English plural.
func singular(w string) string {
	switch {
	case len(w) > 4 && strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "ss"):
		return w
	case len(w) > 4 && (strings.HasSuffix(w, "sses") || strings.HasSuffix(w, "xes") ||
		strings.HasSuffix(w, "ches") || strings.HasSuffix(w, "shes")):
		return w[:len(w)-2]
	case len(w) > 3 && strings.HasSuffix(w, "s"):
		return w[:len(w)-1]
	}
	return w
}

// splitList splits "a, b and c" into its trimmed non-empty parts.
func splitList(s string) []string {
	var out []string
	for _, p := range listSplitRe.Split(s, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
