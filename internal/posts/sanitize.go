package posts

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var (
	safeURL = regexp.MustCompile(`(?i)^\s*(https?:|mailto:|tel:|/)`)

	colorValue   = `#([0-9a-f]{3}|[0-9a-f]{6})|rgba?\([\d\s.,%]+\)|hsla?\([\d\s.,%]+\)|[a-z]+`
	plainStyle   = regexp.MustCompile(`(?i)^(` + colorValue + `)$`)
	fontWeight   = regexp.MustCompile(`(?i)^(` + colorValue + `|normal|bold|[1-9]00)$`)
	fontSize     = regexp.MustCompile(`(?i)^(` + colorValue + `|\d+(\.\d+)?(px|rem|em|%|pt))$`)
	lineHeight   = regexp.MustCompile(`(?i)^(` + colorValue + `|\d+(\.\d+)?(px|rem|em|%|pt)?)$`)
	fontFamily   = regexp.MustCompile(`^[^<>]+$`)
	borderValue  = regexp.MustCompile(`(?i)^(` + colorValue + `|\d+(\.\d+)?(px|pt)?\s+(solid|dashed|dotted|double|none)\s+[#a-z0-9(),.\s%-]+)$`)
	borderWidth  = regexp.MustCompile(`(?i)^(` + colorValue + `|\d+(\.\d+)?(px|pt))$`)
	looseColor   = regexp.MustCompile(`(?i)^[#a-z0-9(),.\s%-]+$`)
	targetBlank  = regexp.MustCompile(`^_blank$`)
	cellAlign    = []string{"align", "valign"}
	cellGeometry = []string{"colspan", "rowspan", "width", "height", "align", "valign", "bgcolor"}
)

// Sanitizer strips post HTML down to the formatting the board editor emits.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer builds the allow-list policy.
func NewSanitizer() *Sanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "h2", "h3", "span", "font", "blockquote", "ul", "ol", "li",
		"table", "thead", "tbody", "tr", "th", "td", "colgroup", "col",
		"a", "img", "strong", "em", "u", "hr")

	p.AllowAttrs("href").Matching(safeURL).OnElements("a")
	p.AllowAttrs("target").Matching(targetBlank).OnElements("a")
	p.AllowAttrs("rel").OnElements("a")
	p.AllowAttrs("src").Matching(safeURL).OnElements("img")
	p.AllowAttrs("alt").OnElements("img")
	p.AllowAttrs("color", "size", "face").OnElements("font")
	p.AllowAttrs("border", "cellpadding", "cellspacing", "width", "height", "bgcolor", "align").OnElements("table")
	p.AllowAttrs(cellAlign...).OnElements("thead", "tbody")
	p.AllowAttrs("align", "valign", "bgcolor").OnElements("tr")
	p.AllowAttrs(cellGeometry...).OnElements("th", "td")
	p.AllowAttrs("span", "width").OnElements("colgroup", "col")
	p.AllowNoAttrs().OnElements("a", "font")

	p.AllowStyles("color", "background-color", "text-align").Matching(plainStyle).Globally()
	p.AllowStyles("font-weight").Matching(fontWeight).Globally()
	p.AllowStyles("font-size").Matching(fontSize).Globally()
	p.AllowStyles("line-height").Matching(lineHeight).Globally()
	p.AllowStyles("font-family").Matching(fontFamily).Globally()
	p.AllowStyles("border").Matching(borderValue).Globally()
	p.AllowStyles("border-width").Matching(borderWidth).Globally()
	p.AllowStyles("border-style").MatchingEnum("solid", "dashed", "dotted", "double", "none").Globally()
	p.AllowStyles("border-color", "background").Matching(looseColor).Globally()

	return &Sanitizer{policy: p}
}

// Sanitize returns the cleaned HTML. Script and style bodies are dropped.
func (s *Sanitizer) Sanitize(html string) string {
	if html == "" {
		return ""
	}
	return s.policy.Sanitize(html)
}
