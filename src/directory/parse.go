package directory

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Column positions in an x_world INSERT tuple.
const (
	colX       = 1
	colY       = 2
	colTribe   = 3
	colVillage = 5
	colPlayer  = 7
	colCapital = 12
)

// ParseMapSQL reads a map.sql dump and returns every village tuple
// found in its INSERT statements. Malformed tuples are skipped.
func ParseMapSQL(r io.Reader) ([]Village, error) {
	var villages []Village
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "INSERT") {
			continue
		}
		for _, fields := range splitTuples(line) {
			if v, ok := villageFromFields(fields); ok {
				villages = append(villages, v)
			}
		}
	}
	return villages, sc.Err()
}

func villageFromFields(fields []string) (Village, bool) {
	if len(fields) <= colPlayer {
		return Village{}, false
	}
	x, err := strconv.Atoi(fields[colX])
	if err != nil {
		return Village{}, false
	}
	y, err := strconv.Atoi(fields[colY])
	if err != nil {
		return Village{}, false
	}
	tribe, _ := strconv.Atoi(fields[colTribe])
	v := Village{
		Name:   fields[colVillage],
		X:      x,
		Y:      y,
		Tribe:  tribe,
		Player: fields[colPlayer],
	}
	if len(fields) > colCapital {
		v.Capital = strings.EqualFold(fields[colCapital], "TRUE")
	}
	return v, true
}

// splitTuples walks "(a,'b',c),(…)" honouring single-quoted strings
// with backslash or doubled-quote escapes.
func splitTuples(line string) [][]string {
	var (
		tuples  [][]string
		fields  []string
		field   strings.Builder
		inTuple bool
		inQuote bool
	)
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if inQuote {
			switch {
			case ch == '\\' && i+1 < len(line):
				i++
				field.WriteByte(line[i])
			case ch == '\'' && i+1 < len(line) && line[i+1] == '\'':
				i++
				field.WriteByte('\'')
			case ch == '\'':
				inQuote = false
			default:
				field.WriteByte(ch)
			}
			continue
		}
		switch {
		case ch == '(' && !inTuple:
			inTuple = true
			fields = fields[:0:0]
			field.Reset()
		case !inTuple:
		case ch == '\'':
			inQuote = true
		case ch == ',':
			fields = append(fields, strings.TrimSpace(field.String()))
			field.Reset()
		case ch == ')':
			fields = append(fields, strings.TrimSpace(field.String()))
			field.Reset()
			tuples = append(tuples, fields)
			inTuple = false
		default:
			field.WriteByte(ch)
		}
	}
	return tuples
}
