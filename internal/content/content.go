// internal/content/content.go
// Package content defines the typed content units produced by extraction and
// consumed by summarization and indexing.
package content

import (
	"fmt"
	"strings"
)

// Kind tags a content unit as text, table, or image.
type Kind int

const (
	// KindText is prose extracted from a document.
	KindText Kind = iota
	// KindTable is a table rendered as text.
	KindTable
	// KindImage is a base64-encoded image payload.
	KindImage
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindTable:
		return "table"
	case KindImage:
		return "image"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind converts a kind name back into a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return KindText, nil
	case "table":
		return KindTable, nil
	case "image":
		return KindImage, nil
	default:
		return 0, fmt.Errorf("unknown content kind %q", s)
	}
}

// Unit is one extracted fragment of a source document.
type Unit struct {
	Kind Kind
	Raw  string
}

// Corpus groups raw contents by kind, preserving extraction order within each kind.
type Corpus struct {
	Texts  []string
	Tables []string
	Images []string
}

// Add appends a unit to the group matching its kind.
func (c *Corpus) Add(u Unit) {
	switch u.Kind {
	case KindText:
		c.Texts = append(c.Texts, u.Raw)
	case KindTable:
		c.Tables = append(c.Tables, u.Raw)
	case KindImage:
		c.Images = append(c.Images, u.Raw)
	}
}

// Merge appends every group of other onto c.
func (c *Corpus) Merge(other Corpus) {
	c.Texts = append(c.Texts, other.Texts...)
	c.Tables = append(c.Tables, other.Tables...)
	c.Images = append(c.Images, other.Images...)
}

// Group returns the raw contents of one kind.
func (c Corpus) Group(kind Kind) []string {
	switch kind {
	case KindText:
		return c.Texts
	case KindTable:
		return c.Tables
	case KindImage:
		return c.Images
	default:
		return nil
	}
}

// Len returns the number of units across all kinds.
func (c Corpus) Len() int {
	return len(c.Texts) + len(c.Tables) + len(c.Images)
}
