// Package compose merges the default entry and the active entries into the
// single hosts text and applies it to the system.
package compose

import (
	"strings"

	"github.com/atinyakov/HostsBox/internal/models"
	"github.com/samber/lo"
)

// Banner returns the comment line that introduces an entry in the composed text.
func Banner(name string) string {
	return "# " + name
}

// Default returns the authoritative default entry, if any.
func Default(entries []models.Entry) (models.Entry, bool) {
	return lo.Find(entries, func(e models.Entry) bool { return e.IsDefault() })
}

// ActiveEntries returns active non-default entries in listing order.
func ActiveEntries(entries []models.Entry) []models.Entry {
	return lo.Filter(entries, func(e models.Entry, _ int) bool {
		return e.Active && !e.IsDefault()
	})
}

// Compose builds the hosts text: the default content followed by a banner
// and the content of each active entry. Without a default entry the base is
// empty. The result depends only on entries and their order.
func Compose(entries []models.Entry) string {
	var b strings.Builder
	if def, ok := Default(entries); ok {
		b.WriteString(def.Content)
	}
	for _, e := range ActiveEntries(entries) {
		b.WriteString("\n")
		b.WriteString(Banner(e.Name))
		b.WriteString("\n")
		b.WriteString(e.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// Dedupe keeps one entry per name: the one with the latest CreatedAt, the
// first listed on ties. Names keep the position of their first appearance.
func Dedupe(entries []models.Entry) []models.Entry {
	latest := make(map[string]models.Entry, len(entries))
	for _, e := range entries {
		if cur, ok := latest[e.Name]; !ok || e.CreatedAt > cur.CreatedAt {
			latest[e.Name] = e
		}
	}
	names := lo.Uniq(lo.Map(entries, func(e models.Entry, _ int) string { return e.Name }))
	return lo.Map(names, func(name string, _ int) models.Entry { return latest[name] })
}
