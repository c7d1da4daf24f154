package variable

import (
	"regexp"
	"strings"
)

var variationRe = regexp.MustCompile(`\[\[([^\[\]]*)\]\]`)

// ExpandVariations expands every [[a|b]] block in pattern into the cartesian
// product of its options. Options of the first block vary slowest. At most max
// patterns are returned; max <= 0 means no cap. Placeholders are preserved so
// each variant can be rendered afterwards.
func ExpandVariations(pattern string, max int) []string {
	locs := variationRe.FindAllStringSubmatchIndex(pattern, -1)
	if len(locs) == 0 {
		return []string{pattern}
	}

	out := []string{""}
	last := 0
	for _, m := range locs {
		literal := pattern[last:m[0]]
		options := strings.Split(pattern[m[2]:m[3]], "|")

		next := make([]string, 0, len(out)*len(options))
		for _, prefix := range out {
			for _, opt := range options {
				next = append(next, prefix+literal+opt)
			}
			// each prefix yields at least one variant, so later blocks never
			// need more than max prefixes
			if max > 0 && len(next) >= max {
				break
			}
		}
		out = next
		last = m[1]
	}

	tail := pattern[last:]
	for i := range out {
		out[i] += tail
	}
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}
