// Package notice turns deactivation notices into plain text for analysis.
package notice

import (
	"strings"

	"golang.org/x/net/html"
)

// blockElements end a line of text
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"table": true, "ul": true, "ol": true, "blockquote": true, "hr": true,
}

// skippedElements never contribute text
var skippedElements = map[string]bool{
	"script": true, "style": true, "head": true, "title": true, "noscript": true,
}

// sourceBreaks flattens line breaks in markup source; only block elements end lines
var sourceBreaks = strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")

// LooksLikeHTML reports whether raw appears to be markup rather than text
func LooksLikeHTML(raw string) bool {
	lower := strings.ToLower(raw)
	for _, tag := range []string{"<html", "<body", "<p", "<div", "<br", "<table", "<span", "<b>", "<i>"} {
		if strings.Contains(lower, tag) {
			return true
		}
	}
	return false
}

// PlainText converts an HTML notice (typically an email body) into text with
// one paragraph per line. Plain text input only has its whitespace tidied.
func PlainText(raw string) string {
	if !LooksLikeHTML(raw) {
		return collapseLines(raw)
	}

	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return collapseLines(raw)
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(sourceBreaks.Replace(n.Data))
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			b.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			b.WriteString("\n")
		}
	}
	walk(doc)

	return collapseLines(b.String())
}

// collapseLines squeezes runs of spaces inside lines and drops blank lines
func collapseLines(s string) string {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
