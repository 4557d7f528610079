package machine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/praetorian-inc/dfamatch/pkg/types"
)

// FilterConfig specifies include and exclude patterns for machine IDs.
type FilterConfig struct {
	Include []string // regex patterns; when set, only matching machines are kept
	Exclude []string // regex patterns; matching machines are dropped
}

// ParsePatterns splits a comma-separated list, trimming whitespace and
// dropping empty entries.
func ParsePatterns(patterns string) []string {
	result := []string{}
	for _, p := range strings.Split(patterns, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Filter applies include then exclude patterns to machine IDs.
func Filter(machines []*types.Machine, config FilterConfig) ([]*types.Machine, error) {
	include, err := compileAll(config.Include)
	if err != nil {
		return nil, err
	}
	exclude, err := compileAll(config.Exclude)
	if err != nil {
		return nil, err
	}

	result := make([]*types.Machine, 0, len(machines))
	for _, m := range machines {
		if len(include) > 0 && !matchesAny(m.ID, include) {
			continue
		}
		if matchesAny(m.ID, exclude) {
			continue
		}
		result = append(result, m)
	}
	return result, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	regexes := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
		}
		regexes = append(regexes, re)
	}
	return regexes, nil
}

func matchesAny(s string, regexes []*regexp.Regexp) bool {
	for _, re := range regexes {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
