// Package authors holds the approved-author allow-list.
package authors

import (
	"sort"
	"strings"

	"PublishGate/internal/domain"
)

// Directory is an immutable set of approved authors keyed by identifier.
type Directory struct {
	approved map[string]domain.Author
}

// NewDirectory copies the given authors. Blank identifiers are ignored.
func NewDirectory(authors []domain.Author) *Directory {
	d := &Directory{approved: make(map[string]domain.Author, len(authors))}
	for _, a := range authors {
		a.ID = strings.TrimSpace(a.ID)
		if a.ID == "" {
			continue
		}
		if a.DisplayName == "" {
			a.DisplayName = a.ID
		}
		d.approved[a.ID] = a
	}
	return d
}

// Lookup returns the approved author with the given identifier.
func (d *Directory) Lookup(id string) (domain.Author, bool) {
	if d == nil {
		return domain.Author{}, false
	}
	a, ok := d.approved[strings.TrimSpace(id)]
	return a, ok
}

// Approved reports whether id belongs to the allow-list.
func (d *Directory) Approved(id string) bool {
	_, ok := d.Lookup(id)
	return ok
}

// DisplayName returns the author's display name, falling back to the identifier.
func (d *Directory) DisplayName(id string) string {
	if a, ok := d.Lookup(id); ok {
		return a.DisplayName
	}
	return strings.TrimSpace(id)
}

// IDs lists the approved identifiers in sorted order.
func (d *Directory) IDs() []string {
	if d == nil {
		return nil
	}
	ids := make([]string, 0, len(d.approved))
	for id := range d.approved {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
