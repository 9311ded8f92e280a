package evaluation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	// autoWindow is the number of completed weeks covered by "auto".
	autoWindow = 4
	// MaxWeek is the last week of an NFL fantasy season.
	MaxWeek = 18
)

// ParseWeeks expands a week window expression.
//
//	"" or "auto"  last autoWindow completed weeks before currentWeek
//	"2,4,6"       sorted, deduplicated list
//	"3-6"         inclusive range; the end is raised to the start when lower
//	"5"           single week
//
// Week numbers below 1 are raised to 1; numbers above MaxWeek are an error.
// "auto" with no completed week returns an empty window.
func ParseWeeks(spec string, currentWeek int) ([]int, error) {
	text := strings.ToLower(strings.TrimSpace(spec))
	if text == "" || text == WeeksAuto {
		completed := max(0, currentWeek-1)
		if completed <= 0 {
			return []int{}, nil
		}
		return weekRange(max(1, completed-autoWindow+1), completed), nil
	}

	if strings.Contains(text, ",") {
		seen := make(map[int]struct{})
		var weeks []int
		for _, token := range strings.Split(text, ",") {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			w, err := parseWeek(spec, token)
			if err != nil {
				return nil, err
			}
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			weeks = append(weeks, w)
		}
		sort.Ints(weeks)
		if weeks == nil {
			weeks = []int{}
		}
		return weeks, nil
	}

	if left, right, ok := strings.Cut(text, "-"); ok {
		start, err := parseWeek(spec, left)
		if err != nil {
			return nil, err
		}
		end, err := parseWeek(spec, right)
		if err != nil {
			return nil, err
		}
		return weekRange(start, max(start, end)), nil
	}

	w, err := parseWeek(spec, text)
	if err != nil {
		return nil, err
	}
	return []int{w}, nil
}

func parseWeek(spec, token string) (int, error) {
	w, err := strconv.Atoi(strings.TrimSpace(token))
	if err != nil {
		return 0, fmt.Errorf("%w: weeks %q: %v", ErrInvalidConfig, spec, err)
	}
	if w > MaxWeek {
		return 0, fmt.Errorf("%w: weeks %q: week %d is past week %d", ErrInvalidConfig, spec, w, MaxWeek)
	}
	return max(1, w), nil
}

func weekRange(start, end int) []int {
	out := make([]int, 0, end-start+1)
	for w := start; w <= end; w++ {
		out = append(out, w)
	}
	return out
}
