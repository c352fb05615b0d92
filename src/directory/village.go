// Package directory keeps the game map's village list and answers
// coordinate lookups.
package directory

import (
	"fmt"
	"strings"
)

// Village is one row of the map dump.
type Village struct {
	Name    string `json:"villageName"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Tribe   int    `json:"tribe"`
	Player  string `json:"playerName"`
	Capital bool   `json:"isCapital"`
}

var tribes = map[int]string{
	1: "Romans", 2: "Teutons", 3: "Gauls",
	4: "Nature", 5: "Natars", 6: "Egyptians",
	7: "Huns", 8: "Spartans", 9: "Vikings",
}

// TribeName returns the display name of the village's tribe.
func (v Village) TribeName() string {
	if name, ok := tribes[v.Tribe]; ok {
		return name
	}
	return "Unknown"
}

// MapLink builds the in-game map URL for coordinates.
func MapLink(base string, x, y int) string {
	return fmt.Sprintf("%s/karte.php?x=%d&y=%d", strings.TrimRight(base, "/"), x, y)
}
