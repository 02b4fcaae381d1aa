// Package highlight wraps query matches in result text with emphasis
// markers for presentation. It is independent of the index.
package highlight

import (
	"regexp"
	"strings"
)

const (
	OpenMark  = "<mark>"
	CloseMark = "</mark>"
)

// Highlight wraps every case-insensitive occurrence of query in text with
// OpenMark and CloseMark. The query is matched literally after trimming and
// dropping invalid UTF-8 bytes; a query left empty returns text unchanged.
func Highlight(text, query string) string {
	query = strings.TrimSpace(strings.ToValidUTF8(query, ""))
	if query == "" || text == "" {
		return text
	}
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(query))
	if err != nil {
		return text
	}
	return re.ReplaceAllStringFunc(text, func(match string) string {
		return OpenMark + match + CloseMark
	})
}

// Strip removes highlight markers, restoring the original text.
func Strip(text string) string {
	return strings.NewReplacer(OpenMark, "", CloseMark, "").Replace(text)
}
