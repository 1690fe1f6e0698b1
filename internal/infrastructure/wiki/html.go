package wiki

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// flattenHTML turns an HTML extract into the plain-text layout used by
// explaintext extracts: "<h2>History</h2>" becomes "== History ==" on its
// own line and every other element contributes its text.
func flattenHTML(extract string) (string, error) {
	if !strings.Contains(extract, "<") {
		return extract, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(extract))
	if err != nil {
		return "", fmt.Errorf("parse extract: %w", err)
	}

	var b strings.Builder
	doc.Find("body").Contents().Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		switch {
		case name == "#text":
			b.WriteString(s.Text())
		case strings.HasPrefix(name, "#"):
			// comments and doctypes
		case headingLevel(name) > 0:
			text := strings.TrimSpace(s.Text())
			if text == "" {
				return
			}
			marker := strings.Repeat("=", headingLevel(name))
			fmt.Fprintf(&b, "\n%s %s %s\n", marker, text, marker)
		default:
			if text := strings.TrimSpace(s.Text()); text != "" {
				b.WriteString(text)
				b.WriteString("\n")
			}
		}
	})

	return strings.TrimSpace(b.String()), nil
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}
