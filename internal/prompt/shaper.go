package prompt

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	markdownBullet   = regexp.MustCompile(`(?m)^[ \t]*[-*•][ \t]+`)
	markdownNumbered = regexp.MustCompile(`(?m)^[ \t]*\d{1,2}[.)][ \t]+`)
	markdownHeading  = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]+`)
	markdownStrong   = regexp.MustCompile(`\*\*([^*\n]+?)\*\*|__([^_\n]+?)__`)
	// Single asterisks count only when they hug a word on both inner sides
	// and are not glued to a word outside, so "2*3" survives.
	markdownItalic = regexp.MustCompile(`(^|[^\w*])\*([^*\s](?:[^*\n]*?[^*\s])?)\*($|[^\w*])`)
)

// Shaper cleans a model answer before it is returned to the caller. The model
// is asked for a format but nothing guarantees it complies.
type Shaper struct {
	format Format
	policy *bluemonday.Policy
}

func NewShaper(format Format) *Shaper {
	if format == FormatHTML {
		return &Shaper{format: format, policy: safeHTMLPolicy()}
	}
	return &Shaper{format: FormatPlain, policy: bluemonday.StrictPolicy()}
}

func (s *Shaper) Shape(answer string) string {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return ""
	}

	if s.format == FormatHTML {
		return strings.TrimSpace(s.policy.Sanitize(answer))
	}

	text := html.UnescapeString(s.policy.Sanitize(answer))
	text = markdownHeading.ReplaceAllString(text, "")
	text = markdownBullet.ReplaceAllString(text, "")
	// A lone "2025. was" line is prose, not a list.
	if len(markdownNumbered.FindAllStringIndex(text, 2)) > 1 {
		text = markdownNumbered.ReplaceAllString(text, "")
	}
	text = markdownStrong.ReplaceAllString(text, "$1$2")
	text = markdownItalic.ReplaceAllString(text, "$1$2$3")
	return strings.TrimSpace(text)
}

func safeHTMLPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "strong", "em", "ul", "ol", "li")
	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}
