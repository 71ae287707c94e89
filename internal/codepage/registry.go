package codepage

import "strings"

var byName = map[string]Codepage{
	"037":    Codepage037,
	"cp037":  Codepage037,
	"1047":   Codepage1047,
	"cp1047": Codepage1047,
}

// Get looks up a code page by its configuration-surface name (e.g.
// "cp037", "037", "1047"), case-insensitively. ok is false for an
// unrecognized name.
func Get(name string) (Codepage, bool) {
	cp, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return cp, ok
}

// Default returns CP037, the default named in spec.md section 1.
func Default() Codepage { return Codepage037 }
