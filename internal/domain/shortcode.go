package domain

import (
	"fmt"
	"strings"
)

// ShortcodeKind is the closed set of shortcode types the publishing system expands.
type ShortcodeKind int

const (
	KindUnrecognized ShortcodeKind = iota
	KindMonetizationTable
	KindMonetizationOffer
	KindCallToAction
	KindTableOfContents
	KindEmbed
)

var shortcodeKindNames = [...]string{
	"unrecognized",
	"monetization_table",
	"monetization_offer",
	"call_to_action",
	"table_of_contents",
	"embed",
}

func (k ShortcodeKind) String() string {
	if k < KindUnrecognized || k > KindEmbed {
		return fmt.Sprintf("ShortcodeKind(%d)", int(k))
	}
	return shortcodeKindNames[k]
}

// ParseShortcodeKind maps a configuration name to a kind.
func ParseShortcodeKind(value string) (ShortcodeKind, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for i, name := range shortcodeKindNames {
		if name == value {
			return ShortcodeKind(i), nil
		}
	}
	return KindUnrecognized, fmt.Errorf("unknown shortcode kind %q", value)
}

// IsMonetization reports whether the kind carries monetized listings.
func (k ShortcodeKind) IsMonetization() bool {
	switch k {
	case KindMonetizationTable, KindMonetizationOffer:
		return true
	case KindUnrecognized, KindCallToAction, KindTableOfContents, KindEmbed:
		return false
	}
	return false
}

func (k ShortcodeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ShortcodeKind) UnmarshalText(text []byte) error {
	kind, err := ParseShortcodeKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// Shortcode is one inline directive recovered from a content body.
type Shortcode struct {
	Tag    string            `json:"tag"`
	Kind   ShortcodeKind     `json:"kind"`
	Params map[string]string `json:"params"`
	Raw    string            `json:"raw"`
	Offset int               `json:"offset"`
}

// IdentifierKind names the registry a monetization identifier refers to.
type IdentifierKind string

const (
	IdentifierCategory      IdentifierKind = "category"
	IdentifierConcentration IdentifierKind = "concentration"
	IdentifierLevel         IdentifierKind = "level"
)

// IdentifierKinds lists the identifier parameters in the order they are checked.
var IdentifierKinds = []IdentifierKind{IdentifierCategory, IdentifierConcentration, IdentifierLevel}
