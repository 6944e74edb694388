package shortcode

import (
	"sort"
	"strings"

	"PublishGate/internal/domain"
)

// Definition describes one recognized shortcode tag.
type Definition struct {
	Tag      string
	Kind     domain.ShortcodeKind
	Required []string
	Optional []string
}

// Registry keeps a mapping from tag names to their definitions.
type Registry struct {
	defs map[string]Definition
}

// NewRegistry builds a registry holding the given definitions.
func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{defs: map[string]Definition{}}
	for _, def := range defs {
		r.Register(def)
	}
	return r
}

// Register adds or replaces a definition. Tags are case-insensitive.
func (r *Registry) Register(def Definition) {
	if r.defs == nil {
		r.defs = map[string]Definition{}
	}
	def.Tag = strings.ToLower(strings.TrimSpace(def.Tag))
	r.defs[def.Tag] = def
}

// Resolve returns the definition for a tag, if recognized.
func (r *Registry) Resolve(tag string) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	def, ok := r.defs[strings.ToLower(tag)]
	return def, ok
}

// Tags lists the registered tags in sorted order.
func (r *Registry) Tags() []string {
	tags := make([]string, 0, len(r.defs))
	for tag := range r.defs {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// DefaultDefinitions is the shortcode set expanded by the publishing system.
func DefaultDefinitions() []Definition {
	return []Definition{
		{Tag: "degree_table", Kind: domain.KindMonetizationTable, Required: []string{"category"}, Optional: []string{"concentration", "level", "limit"}},
		{Tag: "school_offer", Kind: domain.KindMonetizationOffer, Required: []string{"category"}, Optional: []string{"concentration", "level"}},
		{Tag: "cta", Kind: domain.KindCallToAction, Required: []string{"url"}, Optional: []string{"label"}},
		{Tag: "toc", Kind: domain.KindTableOfContents},
		{Tag: "embed", Kind: domain.KindEmbed, Required: []string{"src"}},
	}
}
