package content

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// searchFold strips combining marks so that accented and plain titles
// compare equal ("Café" matches "cafe").
var searchFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func searchKey(s string) string {
	folded, _, err := transform.String(searchFold, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

func filterCoursesByTitle(courses []Course, query string) []Course {
	key := searchKey(strings.TrimSpace(query))
	if key == "" {
		return courses
	}
	out := []Course{}
	for _, c := range courses {
		if strings.Contains(searchKey(c.Title), key) {
			out = append(out, c)
		}
	}
	return out
}
