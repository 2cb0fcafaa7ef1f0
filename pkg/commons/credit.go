package commons

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// CreditText strips the markup from an Artist value such as
// `<a href="//commons.wikimedia.org/wiki/User:X">X</a>` and collapses
// whitespace. Input that fails to parse is returned trimmed.
func CreditText(credit string) string {
	if credit == "" {
		return ""
	}

	nodes, err := html.ParseFragment(strings.NewReader(credit), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return strings.TrimSpace(credit)
	}

	var b strings.Builder
	for _, n := range nodes {
		collectText(n, &b)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	if n.Type == html.ElementNode {
		if n.DataAtom == atom.Style || n.DataAtom == atom.Script {
			return
		}
		if n.DataAtom == atom.Br {
			b.WriteString(" ")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
	if n.Type == html.ElementNode && (n.DataAtom == atom.Div || n.DataAtom == atom.P || n.DataAtom == atom.Li) {
		b.WriteString(" ")
	}
}
