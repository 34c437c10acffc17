package keyword

import (
	"sort"
	"strings"
	"sync"
)

// Suggestion is a dictionary term close to a query term.
type Suggestion struct {
	Term      string
	Distance  int
	Frequency int
	Score     float64
}

// SpellChecker suggests indexed terms for query words that are not in the index.
// The term list is loaded lazily and reloaded after Invalidate.
type SpellChecker struct {
	dictionary     TermDictionary
	maxDistance    int
	minFreq        int
	maxSuggestions int

	mu      sync.Mutex
	terms   []string
	termSet map[string]struct{}
	loaded  bool
}

// SpellCheckerOption is a functional option for configuring SpellChecker.
type SpellCheckerOption func(*SpellChecker)

// WithMaxDistance sets the maximum edit distance for suggestions.
func WithMaxDistance(d int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMinFrequency ignores terms found in fewer than f documents.
func WithMinFrequency(f int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if f >= 0 {
			s.minFreq = f
		}
	}
}

// WithMaxSuggestions caps the suggestions returned per term.
func WithMaxSuggestions(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// NewSpellChecker creates a SpellChecker over dict.
func NewSpellChecker(dict TermDictionary, opts ...SpellCheckerOption) *SpellChecker {
	s := &SpellChecker{
		dictionary:     dict,
		maxDistance:    2,
		minFreq:        1,
		maxSuggestions: 5,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Invalidate drops the cached term list; the next call reloads it.
func (s *SpellChecker) Invalidate() {
	s.mu.Lock()
	s.loaded = false
	s.mu.Unlock()
}

func (s *SpellChecker) snapshot() ([]string, map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		terms, err := s.dictionary.AllTerms()
		if err != nil {
			return nil, nil, err
		}
		set := make(map[string]struct{}, len(terms))
		for _, t := range terms {
			set[strings.ToLower(t)] = struct{}{}
		}
		s.terms, s.termSet, s.loaded = terms, set, true
	}
	return s.terms, s.termSet, nil
}

// Suggest returns dictionary terms within the edit distance of term, best first. Closer
// and more frequent terms score higher.
func (s *SpellChecker) Suggest(term string) ([]Suggestion, error) {
	terms, _, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(term)
	var suggestions []Suggestion
	for _, candidate := range terms {
		lower := strings.ToLower(candidate)
		if lower == term {
			continue
		}
		diff := len([]rune(lower)) - len([]rune(term))
		if diff > s.maxDistance || -diff > s.maxDistance {
			continue
		}
		distance := LevenshteinDistance(term, lower)
		if distance > s.maxDistance {
			continue
		}
		freq, err := s.dictionary.TermFrequency(candidate)
		if err != nil || freq < s.minFreq {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Term:      candidate,
			Distance:  distance,
			Frequency: freq,
			Score:     float64(freq) / float64(distance+1),
		})
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].Term < suggestions[j].Term
	})
	if len(suggestions) > s.maxSuggestions {
		suggestions = suggestions[:s.maxSuggestions]
	}
	return suggestions, nil
}

// Correct replaces every unknown query word with its best suggestion. It reports false
// when nothing was replaced.
func (s *SpellChecker) Correct(query string) (string, bool, error) {
	_, known, err := s.snapshot()
	if err != nil {
		return "", false, err
	}
	words := tokenizeQuery(query)
	changed := false
	for i, w := range words {
		if _, ok := known[w]; ok {
			continue
		}
		suggestions, err := s.Suggest(w)
		if err != nil {
			return "", false, err
		}
		if len(suggestions) > 0 {
			words[i] = suggestions[0].Term
			changed = true
		}
	}
	if !changed {
		return query, false, nil
	}
	return strings.Join(words, " "), true, nil
}
