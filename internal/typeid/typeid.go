package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixArrow   = "arrow"
	PrefixText    = "text"
	PrefixBox     = "box"
	PrefixPolygon = "poly"
	PrefixComment = "cmt"
	PrefixCanvas  = "canvas"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewArrowID() string   { return New(PrefixArrow) }
func NewTextID() string    { return New(PrefixText) }
func NewBoxID() string     { return New(PrefixBox) }
func NewPolygonID() string { return New(PrefixPolygon) }
func NewCommentID() string { return New(PrefixComment) }
func NewCanvasID() string  { return New(PrefixCanvas) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}

// Prefix returns the prefix of a well-formed id, or "" if id does not parse.
func Prefix(id string) string {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return ""
	}
	return parsed.Prefix()
}
