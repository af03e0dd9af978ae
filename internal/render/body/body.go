// Package body renders the HTML bodies reddit returns (comment body_html,
// submission selftext_html) into wrapped plain-text lines for the terminal.
// Reddit bodies are markdown-generated, so the element set is small:
// paragraphs, quotes, code, lists, links and emphasis.
package body

import (
	"strconv"
	"strings"

	nethtml "golang.org/x/net/html"
)

const quotePrefix = "> "

// Lines parses the HTML fragment and returns display lines wrapped to
// width. Malformed input degrades to whatever the tokenizer recovers; it
// never fails.
func Lines(fragment string, width int) []string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil
	}
	if width < 10 {
		width = 10
	}

	root, err := nethtml.Parse(strings.NewReader(fragment))
	if err != nil {
		return wrapText(collapseWhitespace(fragment), width)
	}
	r := renderer{width: width}
	return trimBlankLines(r.renderNodes(bodyChildren(root)))
}

type renderer struct {
	width int
}

func (r renderer) renderNodes(nodes []*nethtml.Node) []string {
	lines := make([]string, 0, len(nodes)*2)
	var inline strings.Builder

	flush := func() {
		text := collapseWhitespace(inline.String())
		inline.Reset()
		if text == "" {
			return
		}
		lines = appendBlock(lines, wrapText(text, r.width))
	}

	for _, node := range nodes {
		switch node.Type {
		case nethtml.TextNode:
			inline.WriteString(node.Data)
		case nethtml.ElementNode:
			if block := r.renderBlock(node); block != nil {
				flush()
				lines = appendBlock(lines, block)
				continue
			}
			inline.WriteString(r.inlineText(node))
		}
	}
	flush()
	return lines
}

// renderBlock returns nil for inline elements.
func (r renderer) renderBlock(node *nethtml.Node) []string {
	switch strings.ToLower(node.Data) {
	case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6":
		text := collapseWhitespace(r.inlineChildren(node))
		if text == "" {
			return r.renderNodes(elementChildren(node))
		}
		return wrapText(text, r.width)
	case "blockquote":
		inner := r.renderNodes(elementChildren(node))
		if len(inner) == 0 {
			text := collapseWhitespace(r.inlineChildren(node))
			if text == "" {
				return []string{}
			}
			inner = wrapText(text, r.width-len(quotePrefix))
		}
		out := make([]string, 0, len(inner))
		for _, line := range inner {
			out = append(out, quotePrefix+line)
		}
		return out
	case "pre":
		raw := strings.ReplaceAll(rawText(node), "\r\n", "\n")
		raw = strings.Trim(raw, "\n")
		if raw == "" {
			return []string{}
		}
		out := []string{}
		for _, line := range strings.Split(raw, "\n") {
			out = append(out, "    "+strings.TrimRight(line, " \t"))
		}
		return out
	case "ul":
		return r.renderListItems(node, false)
	case "ol":
		return r.renderListItems(node, true)
	case "hr":
		return []string{strings.Repeat("-", min(r.width, 20))}
	case "table":
		// Rare in comment bodies; degrade to the flattened text.
		text := collapseWhitespace(r.inlineChildren(node))
		if text == "" {
			return []string{}
		}
		return wrapText(text, r.width)
	}
	return nil
}

func (r renderer) renderListItems(node *nethtml.Node, ordered bool) []string {
	out := []string{}
	n := 0
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != nethtml.ElementNode || !strings.EqualFold(child.Data, "li") {
			continue
		}
		n++
		marker := "- "
		if ordered {
			marker = strconv.Itoa(n) + ". "
		}
		text := collapseWhitespace(r.inlineChildren(child))
		if text == "" {
			continue
		}
		indent := strings.Repeat(" ", len(marker))
		for i, line := range wrapText(text, r.width-len(marker)) {
			if i == 0 {
				out = append(out, marker+line)
			} else {
				out = append(out, indent+line)
			}
		}
	}
	return out
}

func (r renderer) inlineChildren(node *nethtml.Node) string {
	var b strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		b.WriteString(r.inlineText(child))
	}
	return b.String()
}

func (r renderer) inlineText(node *nethtml.Node) string {
	switch node.Type {
	case nethtml.TextNode:
		return node.Data
	case nethtml.ElementNode:
		switch strings.ToLower(node.Data) {
		case "br":
			return " "
		case "a":
			text := collapseWhitespace(r.inlineChildren(node))
			href := strings.TrimSpace(attr(node, "href"))
			switch {
			case href == "" || strings.EqualFold(text, href):
				return text
			case text == "":
				return href
			default:
				return text + " (" + href + ")"
			}
		case "code":
			text := collapseWhitespace(r.inlineChildren(node))
			if text == "" {
				return ""
			}
			return "`" + text + "`"
		default:
			return r.inlineChildren(node)
		}
	}
	return ""
}

func bodyChildren(root *nethtml.Node) []*nethtml.Node {
	// html.Parse wraps fragments in html/head/body; unwrap to the body.
	var find func(*nethtml.Node) *nethtml.Node
	find = func(n *nethtml.Node) *nethtml.Node {
		if n.Type == nethtml.ElementNode && n.Data == "body" {
			return n
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if found := find(child); found != nil {
				return found
			}
		}
		return nil
	}
	body := find(root)
	if body == nil {
		return elementChildren(root)
	}
	return elementChildren(body)
}

func elementChildren(node *nethtml.Node) []*nethtml.Node {
	out := make([]*nethtml.Node, 0, 4)
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		out = append(out, child)
	}
	return out
}

func rawText(node *nethtml.Node) string {
	var b strings.Builder
	var walk func(*nethtml.Node)
	walk = func(n *nethtml.Node) {
		if n.Type == nethtml.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(node)
	return b.String()
}

func attr(node *nethtml.Node, name string) string {
	for _, a := range node.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

func appendBlock(lines, block []string) []string {
	if len(block) == 0 {
		return lines
	}
	if len(lines) > 0 && lines[len(lines)-1] != "" {
		lines = append(lines, "")
	}
	return append(lines, block...)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func trimBlankLines(lines []string) []string {
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	end := len(lines)
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}

func wrapText(text string, width int) []string {
	if width < 1 {
		return []string{text}
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	out := make([]string, 0, 4)
	line := ""
	for _, word := range words {
		for len(word) > width {
			if line != "" {
				out = append(out, line)
				line = ""
			}
			out = append(out, word[:width])
			word = word[width:]
		}
		switch {
		case line == "":
			line = word
		case len(line)+1+len(word) <= width:
			line += " " + word
		default:
			out = append(out, line)
			line = word
		}
	}
	if line != "" {
		out = append(out, line)
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
