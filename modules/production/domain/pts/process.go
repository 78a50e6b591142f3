package pts

import (
	"strings"

	"golang.org/x/text/cases"
)

// foldCase returns the case-folded form of s. A Caser keeps state, so each
// call gets its own.
func foldCase(s string) string {
	return cases.Fold().String(s)
}

var processAliases = map[string]string{
	"fit-up":        "Fit-up",
	"fitup":         "Fit-up",
	"welding":       "Welding",
	"weld":          "Welding",
	"visualization": "Visualization",
	"visual":        "Visualization",
	"sandblasting":  "Sandblasting",
	"sand blasting": "Sandblasting",
	"painting":      "Painting",
	"paint":         "Painting",
	"galvanization": "Galvanization",
	"galvanizing":   "Galvanization",
	"dispatch":      "Dispatch",
	"erection":      "Erection",
	"preparation":   "Preparation",
	"prep":          "Preparation",
}

// NormalizeProcess maps a process name to its canonical spelling. Unknown
// names are returned trimmed but otherwise unchanged.
func NormalizeProcess(s string) string {
	s = strings.TrimSpace(s)
	if canonical, ok := processAliases[foldCase(s)]; ok {
		return canonical
	}
	return s
}
