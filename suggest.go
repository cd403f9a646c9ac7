package pegc

import (
	"sort"

	"github.com/agnivade/levenshtein"
)

// suggest returns the candidate closest to `name`, as long as it's
// within the distance allowed by the configuration.  Ties are broken
// alphabetically.
func suggest(cfg *Config, name string, candidates []string) string {
	if cfg == nil || !cfg.GetBool("check.suggestions") {
		return ""
	}
	maxDistance := cfg.GetInt("check.suggestions.max_distance")
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	best, bestDistance := "", maxDistance+1
	for _, c := range sorted {
		if c == name {
			continue
		}
		if d := levenshtein.ComputeDistance(name, c); d < bestDistance {
			best, bestDistance = c, d
		}
	}
	return best
}
