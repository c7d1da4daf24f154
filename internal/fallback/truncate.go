package fallback

import (
	"unicode"

	"campaign-generator/internal/validation"
)

const ellipsis = "..."

// TruncateToWordBoundary shortens s to at most limit characters, ending in
// "...". The cut backs up to the last whitespace so no word is split, unless
// the text before the cut has no whitespace at all.
func TruncateToWordBoundary(s string, limit int) string {
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	if limit <= len(ellipsis) {
		if limit <= 0 {
			return ""
		}
		return ellipsis[:limit]
	}

	keep := limit - len(ellipsis)
	cut := rs[:keep]
	if !unicode.IsSpace(rs[keep]) {
		for i := len(cut) - 1; i > 0; i-- {
			if unicode.IsSpace(cut[i]) {
				cut = cut[:i]
				break
			}
		}
	}
	for len(cut) > 0 && unicode.IsSpace(cut[len(cut)-1]) {
		cut = cut[:len(cut)-1]
	}
	return string(cut) + ellipsis
}

// TruncateHard cuts s to limit characters.
func TruncateHard(s string, limit int) string {
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	if limit <= 0 {
		return ""
	}
	return string(rs[:limit])
}

// HasLengthErrors reports whether any error is FIELD_TOO_LONG.
func HasLengthErrors(errs []validation.Error) bool {
	for _, e := range errs {
		if e.Code == validation.CodeFieldTooLong {
			return true
		}
	}
	return false
}

// GetLengthErrors returns the FIELD_TOO_LONG errors in order.
func GetLengthErrors(errs []validation.Error) []validation.Error {
	return validation.FilterByCode(errs, validation.CodeFieldTooLong)
}
