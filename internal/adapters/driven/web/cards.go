package web

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

// CardClass is the heading class that marks a listing card.
const CardClass = "simple-grid-grid-post-title"

// card is one listing entry.
type card struct {
	Link  string
	Title string
}

// Pre-compiled regular expressions for listing parsing.
var (
	headingTag  = regexp.MustCompile(`(?is)<h3\b([^>]*)>(.*?)</h3>`)
	classAttr   = regexp.MustCompile(`(?is)\bclass\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	anchorChild = regexp.MustCompile(`(?is)^\s*<a\b([^>]*)>(.*?)</a>`)
	hrefAttr    = regexp.MustCompile(`(?is)\bhref\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	allTags     = regexp.MustCompile(`<[^>]+>`)
	multiSpaces = regexp.MustCompile(`\s+`)
)

// parseCards extracts the cards of a listing page in document order.
// Relative links are resolved against pageURL.
func parseCards(content, pageURL string) []card {
	base, _ := url.Parse(pageURL)

	var cards []card
	for _, heading := range headingTag.FindAllStringSubmatch(content, -1) {
		if !hasClass(heading[1], CardClass) {
			continue
		}
		anchor := anchorChild.FindStringSubmatch(heading[2])
		if anchor == nil {
			continue
		}
		href := attrValue(hrefAttr, anchor[1])
		if href == "" {
			continue
		}
		link := resolve(base, html.UnescapeString(href))
		if link == "" {
			continue
		}
		cards = append(cards, card{
			Link:  link,
			Title: stripTags(anchor[2]),
		})
	}
	return cards
}

func hasClass(attrs, class string) bool {
	for _, c := range strings.Fields(attrValue(classAttr, attrs)) {
		if c == class {
			return true
		}
	}
	return false
}

func attrValue(re *regexp.Regexp, attrs string) string {
	m := re.FindStringSubmatch(attrs)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(m[2])
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// stripTags removes markup and collapses whitespace.
func stripTags(s string) string {
	s = allTags.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = multiSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
