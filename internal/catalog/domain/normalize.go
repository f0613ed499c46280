package domain

import (
	"math"
	"strings"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeRating converts score on a 0..scale range to 0..10, rounded to two
// decimals. 85 on a 100 scale and 8.5 on a 10 scale both give 8.5.
func NormalizeRating(score, scale float64) float64 {
	if scale <= 0 || math.IsNaN(score) {
		return 0
	}
	return clampRating(score * 10 / scale)
}

func clampRating(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 10:
		return 10
	}
	return math.Round(v*100) / 100
}

// NormalizeQuery trims, collapses whitespace and lower-cases a search query.
func NormalizeQuery(q string) string {
	return cases.Lower(language.Und).String(strings.Join(strings.Fields(q), " "))
}

// CacheKey builds the query cache key for (query, type).
func CacheKey(query string, t MediaType) string {
	return NormalizeQuery(query) + "_" + t.KeyPart()
}

// BuildKeywords returns the lower-cased, de-duplicated title variants used for
// keyword matching. Non-Latin titles also contribute an ASCII transliteration.
func BuildKeywords(titles ...string) []string {
	seen := make(map[string]struct{}, len(titles)*2)
	keywords := make([]string, 0, len(titles)*2)

	add := func(s string) {
		s = NormalizeQuery(s)
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		keywords = append(keywords, s)
	}

	for _, title := range titles {
		add(title)
		if !isASCII(title) {
			add(unidecode.Unidecode(title))
		}
	}
	return keywords
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// OrDefault returns t unless it is TypeAll.
func OrDefault(t, def MediaType) MediaType {
	if t == TypeAll {
		return def
	}
	return t
}
