package fuzzy

import "testing"

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		s1   string
		s2   string
		min  float64
		max  float64
	}{
		{"identical", "Библяндия", "Библяндия", 1.0, 1.0},
		{"case insensitive", "БИБЛЯНДИЯ", "библяндия", 1.0, 1.0},
		{"one typo", "Библяндия", "Библандия", 0.85, 0.95},
		{"unrelated", "Кекистан", "США", 0.0, 0.3},
		{"empty", "", "Кекистан", 0.0, 0.0},
		{"both empty", "", "", 1.0, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.s1, tt.s2)
			if got < tt.min || got > tt.max {
				t.Errorf("Similarity(%q, %q) = %v, want in [%v, %v]",
					tt.s1, tt.s2, got, tt.min, tt.max)
			}
		})
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"Кекистан", "Кекистон"},
		{"Meme Land", "МемЛенд"},
		{"a", "ab"},
	}
	for _, p := range pairs {
		if Similarity(p[0], p[1]) != Similarity(p[1], p[0]) {
			t.Errorf("Similarity(%q, %q) not symmetric", p[0], p[1])
		}
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		s1   string
		s2   string
		want int
	}{
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"рп", "рп", 0},
		{"", "abc", 3},
	}

	for _, tt := range tests {
		if got := levenshteinDistance(tt.s1, tt.s2); got != tt.want {
			t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tt.s1, tt.s2, got, tt.want)
		}
	}
}
