package defence

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var pledgePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)([kKmM])?\s*/\s*(\d+(?:\.\d+)?)([kKmM])?`)

// Pledge is a parsed "<pledged>/<target>" pair, both rounded.
type Pledge struct {
	Pledged int64
	Target  int64
}

// ParsePledge scans text for the first "<n><suffix?>/<n><suffix?>"
// pair. Suffixes k and m multiply by a thousand and a million.
func ParsePledge(text string) (Pledge, bool) {
	match := pledgePattern.FindStringSubmatch(text)
	if match == nil {
		return Pledge{}, false
	}

	pledged, ok := resolveQuantity(match[1], match[2])
	if !ok {
		return Pledge{}, false
	}
	target, ok := resolveQuantity(match[3], match[4])
	if !ok {
		return Pledge{}, false
	}
	return Pledge{Pledged: pledged, Target: target}, true
}

// Completes reports whether the pledge closes a call for amount: both
// sides must agree and equal the requested amount.
func (p Pledge) Completes(amount int) bool {
	return p.Pledged == p.Target && p.Pledged == int64(amount)
}

// Targets reports whether the pledge is made against amount.
func (p Pledge) Targets(amount int) bool {
	return p.Target == int64(amount)
}

func resolveQuantity(number, suffix string) (int64, bool) {
	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(suffix) {
	case "k":
		value *= 1_000
	case "m":
		value *= 1_000_000
	}
	value = math.Round(value)
	if value >= math.MaxInt64 {
		return 0, false
	}
	return int64(value), true
}
