package domain

import "strings"

// InferScreenType guesses K-drama vs J-drama from language, origin countries
// and free-text hints such as genres. It is a best effort guess: a Japanese
// animated series or a Korean film co-production can be misclassified.
// Movies are never re-typed.
func InferScreenType(base MediaType, lang string, countries []string, hints ...string) MediaType {
	if base == TypeMovie {
		return base
	}

	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "ko", "kor", "korean":
		return TypeKDrama
	case "ja", "jpn", "japanese":
		return TypeJDrama
	}

	for _, c := range countries {
		switch strings.ToUpper(strings.TrimSpace(c)) {
		case "KR", "KOR", "SOUTH KOREA":
			return TypeKDrama
		case "JP", "JPN", "JAPAN":
			return TypeJDrama
		}
	}

	for _, h := range hints {
		h = strings.ToLower(h)
		switch {
		case strings.Contains(h, "korean"):
			return TypeKDrama
		case strings.Contains(h, "japanese"):
			return TypeJDrama
		}
	}

	return base
}

// InferReadableType maps a comic's country of origin onto manga, manhwa or manhua.
func InferReadableType(country string) MediaType {
	switch strings.ToUpper(strings.TrimSpace(country)) {
	case "KR":
		return TypeManhwa
	case "CN", "TW", "HK":
		return TypeManhua
	}
	return TypeManga
}
