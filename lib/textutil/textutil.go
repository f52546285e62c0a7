package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// Similarity is the Jaro-Winkler similarity of two names ignoring case and
// whitespace, 1 means they only differ in those.
func Similarity(a, b string) float64 {
	return matchr.JaroWinkler(NormalizeName(a), NormalizeName(b), false)
}
