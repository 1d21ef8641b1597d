package barber

import (
	"regexp"
	"strings"

	"agendazap/models"
)

type catalogEntry struct {
	Code  string
	Slug  string
	Label string
	Emoji string
	Price float64
}

// catalog is the bookable service list, in menu order. Codes are the digits
// customers type.
var catalog = []catalogEntry{
	{Code: "1", Slug: "corte social", Label: "Corte social", Emoji: "💇", Price: 35},
	{Code: "2", Slug: "degradê", Label: "Degradê", Emoji: "🌀", Price: 40},
	{Code: "3", Slug: "sobrancelha", Label: "Sobrancelha", Emoji: "✨", Price: 15},
	{Code: "4", Slug: "barba", Label: "Barba", Emoji: "🧔", Price: 25},
}

var catalogByCode = func() map[string]catalogEntry {
	m := make(map[string]catalogEntry, len(catalog))
	for _, e := range catalog {
		m[e.Code] = e
	}
	return m
}()

var catalogByName = func() map[string]string {
	m := make(map[string]string, len(catalog)*2)
	for _, e := range catalog {
		m[e.Slug] = e.Code
		m[strings.ToLower(e.Label)] = e.Code
	}
	return m
}()

var tokenSplit = regexp.MustCompile(`[,\s]+`)

// parseServiceTokens extracts catalog codes from free text. Accepts digits
// and service names, mixed, comma or space separated. Multi-word names are
// matched against the joined remainder as well, so "corte social, barba"
// resolves both entries. Order preserved, duplicates dropped.
func parseServiceTokens(text string) []string {
	lowered := strings.ToLower(normalizeText(text))

	var found []string
	// whole-phrase name matches first (handles multi-word slugs)
	for _, part := range strings.Split(lowered, ",") {
		part = strings.TrimSpace(part)
		if code, ok := catalogByName[part]; ok {
			found = append(found, code)
		}
	}
	for _, token := range tokenSplit.Split(lowered, -1) {
		if token == "" {
			continue
		}
		if _, ok := catalogByCode[token]; ok {
			found = append(found, token)
			continue
		}
		if code, ok := catalogByName[token]; ok {
			found = append(found, code)
		}
	}

	seen := make(map[string]bool, len(found))
	var ordered []string
	for _, code := range found {
		if !seen[code] {
			seen[code] = true
			ordered = append(ordered, code)
		}
	}
	return ordered
}

// findServiceByFragment matches a partial name, for "remover barb".
func findServiceByFragment(fragment string) (string, bool) {
	fragment = strings.ToLower(strings.TrimSpace(fragment))
	if fragment == "" {
		return "", false
	}
	for _, e := range catalog {
		if strings.Contains(strings.ToLower(e.Label), fragment) || strings.Contains(e.Slug, fragment) {
			return e.Code, true
		}
	}
	return "", false
}

func catalogText() string {
	lines := make([]string, 0, len(catalog))
	for _, e := range catalog {
		lines = append(lines, "  "+chip(e.Code, e.Label)+"  "+e.Emoji)
	}
	return strings.Join(lines, "\n")
}

func renderCart(codes []string, indent string) string {
	if len(codes) == 0 {
		return indent + "— (vazio)"
	}
	var lines []string
	for _, code := range codes {
		if e, ok := catalogByCode[code]; ok {
			lines = append(lines, indent+chip(e.Code, e.Label))
		}
	}
	return strings.Join(lines, "\n")
}

func lineItemsFor(codes []string) []models.LineItem {
	var items []models.LineItem
	for _, code := range codes {
		if e, ok := catalogByCode[code]; ok {
			items = append(items, models.LineItem{Title: e.Label, Quantity: 1, UnitPrice: e.Price})
		}
	}
	return items
}

func serviceLabel(codes []string) string {
	var labels []string
	for _, code := range codes {
		if e, ok := catalogByCode[code]; ok {
			labels = append(labels, e.Label)
		}
	}
	if len(labels) == 0 {
		return "Serviço"
	}
	return strings.Join(labels, ", ")
}
