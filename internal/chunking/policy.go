// Package chunking splits document text into ordered, retrievable segments.
package chunking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/kirinuki/internal/models"
)

// Policy names as recorded in manifests and chunk metadata.
const (
	NameSliding   = "sliding"
	NameParagraph = "paragraph"
	NameDocument  = "document"
)

// Default sliding window parameters, in characters.
const (
	DefaultWindowChars  = 800
	DefaultOverlapChars = 200
)

var (
	// ErrInvalidConfig is returned when policy parameters are out of range.
	ErrInvalidConfig = errors.New("invalid chunking configuration")
	// ErrUnknownPolicy is returned when a policy name does not resolve.
	ErrUnknownPolicy = errors.New("unknown chunking policy")
)

// Policy splits text into non-empty trimmed segments. Implementations are pure: the same
// text and configuration always produce the same segments in the same order.
type Policy interface {
	// Name returns the canonical policy name.
	Name() string
	// Chunk returns the segments of text in emission order.
	Chunk(text string) []string
	// Config returns the parameters needed to reproduce this policy.
	Config() models.ChunkConfig
}

// Resolve returns the policy for name. Names are case-insensitive; "sliding_window",
// "whole" and "whole_document" are accepted aliases. Zero window or overlap values in cfg
// take the defaults.
func Resolve(name string, cfg models.ChunkConfig) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sliding", "sliding_window":
		window := cfg.WindowChars
		if window == 0 {
			window = DefaultWindowChars
		}
		overlap := cfg.OverlapChars
		if overlap == 0 && cfg.WindowChars == 0 {
			overlap = DefaultOverlapChars
		}
		return NewSlidingWindow(window, overlap)
	case "paragraph":
		return NewParagraph(), nil
	case "document", "whole", "whole_document":
		return NewWholeDocument(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownPolicy, name)
	}
}
