package keyword

import "testing"

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected int
	}{
		{"identical empty", "", "", 0},
		{"identical word", "report", "report", 0},
		{"identical unicode", "こんにちは", "こんにちは", 0},
		{"empty a", "", "hello", 5},
		{"empty b", "hello", "", 5},
		{"one deletion", "annual", "anual", 1},
		{"one insertion", "budget", "budgets", 1},
		{"dropped letter", "quarterly", "quartely", 1},
		{"kitten to sitting", "kitten", "sitting", 3},
		{"swap counts twice", "report", "reprot", 2},
		{"accents are runes", "résumé", "resume", 2},
		{"case sensitive", "Report", "report", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := LevenshteinDistance(tt.a, tt.b)
			if result != tt.expected {
				t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, result, tt.expected)
			}
			if reverse := LevenshteinDistance(tt.b, tt.a); reverse != result {
				t.Errorf("not symmetric: (%q,%q)=%d, (%q,%q)=%d", tt.a, tt.b, result, tt.b, tt.a, reverse)
			}
		})
	}
}

func BenchmarkLevenshteinDistance(b *testing.B) {
	for i := 0; i < b.N; i++ {
		LevenshteinDistance("spreadsheet", "spredsheet")
	}
}
