package catalog

import (
	"math"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Heuristic defaults for items created from a bare name. The rules are
// ordered: packing keywords win over material keywords, which win over
// product families.

type keywordRule struct {
	re       *regexp.Regexp
	category string
	price    float64
}

var categoryRules = []keywordRule{
	{re: regexp.MustCompile(`\b(pack(ing)?\s*materials?|packaging|shipping\s*suppl(y|ies)|box(es)?|mailers?|bubble\s*wrap|tape|labels?)\b`), category: CategoryPacking},
	{re: regexp.MustCompile(`\b(raw\s*materials?|materials?|blanks?|suppl(y|ies)|ink|paper|vinyl|dtf|film|sheets?)\b`), category: CategoryMaterials},
	{re: regexp.MustCompile(`\b(t-?shirts?|shirts?|tees?|hoodies?|sweatshirts?)\b`), category: "Apparel"},
	{re: regexp.MustCompile(`\b(mugs?|cups?|tumblers?)\b`), category: "Drinkware"},
	{re: regexp.MustCompile(`\b(stickers?|decals?)\b`), category: "Stickers"},
	{re: regexp.MustCompile(`\b(hats?|caps?|beanies?)\b`), category: "Headwear"},
	{re: regexp.MustCompile(`\b(posters?|prints?)\b`), category: "Prints"},
}

var priceRules = []keywordRule{
	{re: regexp.MustCompile(`\b(raw\s*materials?|blanks?)\b`), price: 5},
	{re: regexp.MustCompile(`\b(hoodies?|sweatshirts?)\b`), price: 35},
	{re: regexp.MustCompile(`\b(t-?shirts?|shirts?|tees?)\b`), price: 15},
	{re: regexp.MustCompile(`\b(mugs?|cups?|tumblers?)\b`), price: 12},
	{re: regexp.MustCompile(`\b(stickers?|decals?)\b`), price: 1.5},
	{re: regexp.MustCompile(`\b(hats?|caps?|beanies?)\b`), price: 18},
	{re: regexp.MustCompile(`\b(posters?|prints?)\b`), price: 10},
}

// DefaultPrice is used when no price keyword matches.
const DefaultPrice = 9.99

// GuessCategory derives a category from keywords in an item name.
func GuessCategory(name string) string {
	n := strings.ToLower(name)
	for _, r := range categoryRules {
		if r.re.MatchString(n) {
			return r.category
		}
	}
	return CategoryGeneral
}

// GuessPrice derives a unit price from keywords in an item name.
func GuessPrice(name string) float64 {
	n := strings.ToLower(name)
	for _, r := range priceRules {
		if r.re.MatchString(n) {
			return r.price
		}
	}
	return DefaultPrice
}

// GuessThreshold returns the low-stock threshold for an initial stock level:
// 10% of stock clamped to [3, 25], or 5 when there is no stock.
func GuessThreshold(stock int) int {
	if stock <= 0 {
		return 5
	}
	t := int(math.Floor(float64(stock) * 0.1))
	return min(25, max(3, t))
}

// CategoryCode is the three-letter SKU prefix for a category.
func CategoryCode(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	switch {
	case strings.HasPrefix(c, "pack"):
		return "PKG"
	case strings.HasPrefix(c, "mater"):
		return "MAT"
	case strings.HasPrefix(c, "raw"):
		return "RM"
	case strings.HasPrefix(c, "apparel"):
		return "APP"
	case strings.HasPrefix(c, "drink"):
		return "DRK"
	case strings.HasPrefix(c, "sticker"):
		return "STK"
	case strings.HasPrefix(c, "head"):
		return "HDW"
	case strings.HasPrefix(c, "print"):
		return "PRT"
	default:
		return "GEN"
	}
}

var nonAlnum = regexp.MustCompile(`[^A-Z0-9]+`)

// Slugify upper-cases s and collapses every run of non-alphanumerics to a
// single dash.
func Slugify(s string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToUpper(strings.TrimSpace(s)), "-"), "-")
}

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RandomSuffix returns n random base-36 characters.
func RandomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = base36[rand.IntN(len(base36))]
	}
	return string(b)
}

// GuessSKU builds <CAT>-<first three words of the name>-<suffix> using the
// category guessed from the name.
func GuessSKU(name, suffix string) string {
	slug := Slugify(name)
	if parts := strings.Split(slug, "-"); len(parts) > 3 {
		slug = strings.Join(parts[:3], "-")
	}
	return joinSKU(CategoryCode(GuessCategory(name)), slug, suffix)
}

// SKUFromCategory builds <first three of category>-<first eight of name>-<suffix>.
// Used when the caller already knows the category.
func SKUFromCategory(name, category, suffix string) string {
	n := Slugify(name)
	c := Slugify(category)
	return joinSKU(truncate(c, 3), strings.Trim(truncate(n, 8), "-"), suffix)
}

// SKUFromName is the plain name-derived SKU base used for products and
// materials: the slug capped at 20 characters, or PRODUCT when empty.
func SKUFromName(name string) string {
	base := strings.Trim(truncate(Slugify(name), 20), "-")
	if base == "" {
		return "PRODUCT"
	}
	return base
}

// PackingSKUFromName prefixes SKUFromName with PKG-, capped at 24 characters.
func PackingSKUFromName(name string) string {
	return strings.TrimRight(truncate("PKG-"+SKUFromName(name), 24), "-")
}

// UniqueSKU returns base when no existing item uses it, otherwise base with
// the first free -001..-9999 suffix, and finally a timestamp suffix.
// Comparison is case-insensitive; the result is upper case.
func UniqueSKU(base string, existing []InventoryItem, now time.Time) string {
	taken := make(map[string]struct{}, len(existing))
	for _, it := range existing {
		taken[strings.ToUpper(it.SKU)] = struct{}{}
	}
	base = strings.ToUpper(base)
	if _, ok := taken[base]; !ok {
		return base
	}
	for n := 1; n < 10000; n++ {
		candidate := base + "-" + leftPad(strconv.Itoa(n), 3)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	return base + "-" + ms[len(ms)-5:]
}

func joinSKU(parts ...string) string {
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "-")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func leftPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
