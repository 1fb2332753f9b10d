package crystal

import (
	"strings"
	"unicode"
)

// PointGroup derives the point group symbol from a space-group symbol in
// Hermann-Mauguin notation with space-separated axes, e.g. "P 21 21 21"
// gives "222" and "P 31 2 1" gives "32". Screw axes collapse to their
// rotation order and redundant "1" positions are dropped. Only the
// chiral groups seen in macromolecular crystallography are expected.
func PointGroup(hm string) string {
	fields := strings.Fields(strings.TrimSpace(hm))
	if len(fields) == 0 {
		return ""
	}
	// Lattice letter, possibly glued to the first axis ("P1", "C2").
	first := fields[0]
	if unicode.IsLetter(rune(first[0])) {
		first = first[1:]
		if first == "" {
			fields = fields[1:]
		} else {
			fields[0] = first
		}
	}
	if len(fields) == 0 {
		return ""
	}

	var axes []string
	for _, f := range fields {
		if f == "" {
			continue
		}
		if f[0] == '-' && len(f) > 1 {
			axes = append(axes, f[:2])
			continue
		}
		axes = append(axes, f[:1])
	}

	var kept []string
	for _, a := range axes {
		if a != "1" {
			kept = append(kept, a)
		}
	}
	if len(kept) == 0 {
		return "1"
	}
	return strings.Join(kept, "")
}

// NormalizePointGroup strips the "PG" prefix MTZ files use and any spaces so
// point groups from different sources compare equal.
func NormalizePointGroup(pg string) string {
	pg = strings.TrimSpace(pg)
	pg = strings.TrimPrefix(strings.ToUpper(pg), "PG")
	return strings.ReplaceAll(pg, " ", "")
}
