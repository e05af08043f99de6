package linkedin

import (
	"strings"

	"golang.org/x/net/html"
)

// stripMarkup extracts the visible text from an HTML fragment. Job
// descriptions arrive as markup; templates and scoring want plain text.
// Script and style contents are dropped, block boundaries become spaces,
// and runs of whitespace collapse to one.
func stripMarkup(fragment string) string {
	tz := html.NewTokenizer(strings.NewReader(fragment))

	var b strings.Builder
	skip := 0
	for {
		switch tz.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := tz.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skip++
			}
		case html.EndTagToken:
			name, _ := tz.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				if skip > 0 {
					skip--
				}
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(tz.Text())
				b.WriteByte(' ')
			}
		}
	}
}
