package chunking

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kirinuki/internal/models"
)

// SlidingWindow emits fixed-size character windows that overlap by a fixed amount.
type SlidingWindow struct {
	windowChars  int
	overlapChars int
}

// NewSlidingWindow creates a sliding window policy. window must be positive and overlap
// must satisfy 0 <= overlap < window.
func NewSlidingWindow(window, overlap int) (*SlidingWindow, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: window_chars must be positive, got %d", ErrInvalidConfig, window)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap_chars cannot be negative, got %d", ErrInvalidConfig, overlap)
	}
	if overlap >= window {
		return nil, fmt.Errorf("%w: overlap_chars (%d) must be smaller than window_chars (%d)", ErrInvalidConfig, overlap, window)
	}
	return &SlidingWindow{windowChars: window, overlapChars: overlap}, nil
}

// Name returns "sliding".
func (s *SlidingWindow) Name() string { return NameSliding }

// Config returns the window and overlap sizes.
func (s *SlidingWindow) Config() models.ChunkConfig {
	return models.ChunkConfig{WindowChars: s.windowChars, OverlapChars: s.overlapChars}
}

// Chunk slides a window over the trimmed text, advancing window-overlap characters per
// step. Windows that are blank after trimming are dropped.
func (s *SlidingWindow) Chunk(text string) []string {
	content := []rune(strings.TrimSpace(text))
	if len(content) == 0 {
		return nil
	}
	step := s.windowChars - s.overlapChars
	chunks := make([]string, 0, (len(content)+step-1)/step)
	for start := 0; start < len(content); start += step {
		end := start + s.windowChars
		if end > len(content) {
			end = len(content)
		}
		window := strings.TrimSpace(string(content[start:end]))
		if window != "" {
			chunks = append(chunks, window)
		}
	}
	return chunks
}
