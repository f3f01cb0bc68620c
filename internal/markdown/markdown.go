// Package markdown turns article HTML into markdown for terminal rendering.
package markdown

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Converter walks an HTML tree and emits markdown.
type Converter struct {
	// BaseURL resolves relative link and image targets when set.
	BaseURL *url.URL
	// SkipImages drops <img> elements instead of emitting ![alt](src).
	SkipImages bool
}

// NewConverter returns a converter resolving links against base. base may
// be empty.
func NewConverter(base string) *Converter {
	c := &Converter{}
	if u, err := url.Parse(base); err == nil && u.IsAbs() {
		c.BaseURL = u
	}
	return c
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// ConvertHTMLString converts an HTML document or fragment. Only the body is
// converted when one exists.
func (c *Converter) ConvertHTMLString(htmlStr string) string {
	if strings.TrimSpace(htmlStr) == "" {
		return ""
	}
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return ""
	}
	root := doc
	if body := findElement(doc, "body"); body != nil {
		root = body
	}
	out := c.convertChildren(root)
	return strings.TrimSpace(blankRuns.ReplaceAllString(out, "\n\n"))
}

// Convert converts a single node.
func (c *Converter) Convert(node *html.Node) string {
	if node == nil {
		return ""
	}
	return c.convertNode(node)
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, tag); found != nil {
			return found
		}
	}
	return nil
}

func (c *Converter) convertNode(node *html.Node) string {
	switch node.Type {
	case html.TextNode:
		return collapseSpace(node.Data)
	case html.ElementNode:
		return c.convertElement(node)
	case html.DocumentNode:
		return c.convertChildren(node)
	default:
		return ""
	}
}

func (c *Converter) convertElement(node *html.Node) string {
	tag := strings.ToLower(node.Data)
	switch tag {
	case "script", "style", "noscript", "iframe", "svg", "head", "template":
		return ""
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level, _ := strconv.Atoi(tag[1:])
		text := c.inline(node)
		if text == "" {
			return ""
		}
		return block(strings.Repeat("#", level) + " " + text)
	case "p":
		return block(c.inline(node))
	case "strong", "b":
		return wrap("**", c.convertChildren(node))
	case "em", "i":
		return wrap("*", c.convertChildren(node))
	case "del", "s", "strike":
		return wrap("~~", c.convertChildren(node))
	case "code":
		return wrap("`", c.convertChildren(node))
	case "a":
		return c.convertLink(node)
	case "img":
		return c.convertImage(node)
	case "br":
		return "\n"
	case "hr":
		return block("---")
	case "ul", "ol":
		return c.convertList(node, 0)
	case "pre":
		return block("```\n" + strings.Trim(textContent(node), "\n") + "\n```")
	case "blockquote":
		return c.convertBlockquote(node)
	case "figcaption":
		return block("*" + c.inline(node) + "*")
	default:
		return c.convertChildren(node)
	}
}

func (c *Converter) convertChildren(node *html.Node) string {
	var b strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		b.WriteString(c.convertNode(child))
	}
	return b.String()
}

func (c *Converter) inline(node *html.Node) string {
	return strings.TrimSpace(c.convertChildren(node))
}

func (c *Converter) convertLink(node *html.Node) string {
	text := strings.TrimSpace(c.convertChildren(node))
	href := c.resolve(attr(node, "href"))
	switch {
	case text == "":
		return ""
	case href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:"):
		return text
	}
	return "[" + text + "](" + href + ")"
}

func (c *Converter) convertImage(node *html.Node) string {
	if c.SkipImages {
		return ""
	}
	src := attr(node, "src")
	if src == "" || strings.HasPrefix(src, "data:") {
		return ""
	}
	return "![" + attr(node, "alt") + "](" + c.resolve(src) + ")"
}

func (c *Converter) convertList(node *html.Node, depth int) string {
	ordered := strings.EqualFold(node.Data, "ol")
	index := 1
	if start, err := strconv.Atoi(attr(node, "start")); err == nil {
		index = start
	}
	indent := strings.Repeat("  ", depth)

	var b strings.Builder
	for li := node.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || !strings.EqualFold(li.Data, "li") {
			continue
		}
		var text, nested strings.Builder
		for child := li.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.ElementNode && (child.Data == "ul" || child.Data == "ol") {
				nested.WriteString(c.convertList(child, depth+1))
				continue
			}
			text.WriteString(c.convertNode(child))
		}
		content := strings.TrimSpace(blankRuns.ReplaceAllString(text.String(), "\n"))
		if content == "" && nested.Len() == 0 {
			continue
		}
		marker := "- "
		if ordered {
			marker = strconv.Itoa(index) + ". "
			index++
		}
		b.WriteString(indent + marker + strings.ReplaceAll(content, "\n\n", "\n") + "\n")
		b.WriteString(nested.String())
	}
	if depth > 0 {
		return b.String()
	}
	if b.Len() == 0 {
		return ""
	}
	return "\n\n" + b.String() + "\n"
}

func (c *Converter) convertBlockquote(node *html.Node) string {
	content := strings.TrimSpace(blankRuns.ReplaceAllString(c.convertChildren(node), "\n\n"))
	if content == "" {
		return ""
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if line = strings.TrimSpace(line); line == "" {
			lines[i] = ">"
		} else {
			lines[i] = "> " + line
		}
	}
	return block(strings.Join(lines, "\n"))
}

func (c *Converter) resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || c.BaseURL == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return c.BaseURL.ResolveReference(u).String()
}

func attr(node *html.Node, key string) string {
	for _, a := range node.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func textContent(node *html.Node) string {
	if node.Type == html.TextNode {
		return node.Data
	}
	var b strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		b.WriteString(textContent(child))
	}
	return b.String()
}

func block(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return "\n\n" + s + "\n\n"
}

func wrap(marker, s string) string {
	if strings.TrimSpace(s) == "" {
		return s
	}
	return marker + s + marker
}

// collapseSpace folds runs of whitespace the way a browser lays out text.
func collapseSpace(s string) string {
	if s == "" {
		return ""
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return " "
	}
	out := strings.Join(fields, " ")
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

// FromHTML converts htmlStr with default options.
func FromHTML(htmlStr, baseURL string) string {
	return NewConverter(baseURL).ConvertHTMLString(htmlStr)
}
