// package links finds URLs in free-form chat text.
package links

import (
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// trailing is the set of characters stripped from the end of each match.
const trailing = ".,;:!?)]>"

// Extract returns every http(s) URL in text in the order it appears.
//
// Duplicates are kept. A match is delimited by whitespace and loses any
// trailing punctuation in [trailing].
func Extract(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		if u := strings.TrimRight(m, trailing); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
