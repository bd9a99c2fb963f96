package core

import "hash/fnv"

// DefaultPalette is used for categories the backend returns without a colour.
var DefaultPalette = []string{"#9A3B3B", "#C08261", "#DBAD8C", "#FFEBCF"}

// AssignColor picks a palette entry for name using FNV-1a (32 bit) over the
// UTF-8 bytes of the name. The same name and palette always give the same
// colour. An empty palette gives "".
func AssignColor(name string, palette []string) string {
	if len(palette) == 0 {
		return ""
	}
	h := fnv.New32a()
	h.Write([]byte(name))
	return palette[h.Sum32()%uint32(len(palette))]
}

// ApplyColors returns a copy of breakdown where entries without a colour get
// one from palette. Entries that already carry a colour keep it.
func ApplyColors(breakdown []CategoryBreakdown, palette []string) []CategoryBreakdown {
	out := make([]CategoryBreakdown, len(breakdown))
	for i, b := range breakdown {
		if b.Color == nil || *b.Color == "" {
			c := AssignColor(b.CategoryName, palette)
			b.Color = &c
		}
		out[i] = b
	}
	return out
}
