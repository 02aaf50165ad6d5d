package extract

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// DefaultExclusions lists container elements whose direct text is never
// content: the document root, document metadata, and stylesheet bodies.
var DefaultExclusions = []string{"html", "head", "style"}

// Node is one text node together with the name of the element that directly
// contains it. Keeping the container around lets callers filter or regroup
// without reparsing.
type Node struct {
	Container string
	Text      string
}

// Nodes parses a payload as markup and returns every text node in document
// order. The content type, when known, drives charset detection; the archive
// labels its pages inconsistently, so the decoder sniffs when the label is
// absent or wrong.
func Nodes(payload []byte, contentType string) ([]Node, error) {
	var r io.Reader = bytes.NewReader(payload)
	if cr, err := charset.NewReader(r, contentType); err == nil {
		r = cr
	} else {
		r = bytes.NewReader(payload)
	}
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	var out []Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			container := ""
			if n.Parent != nil && n.Parent.Type == html.ElementNode {
				container = strings.ToLower(n.Parent.Data)
			}
			out = append(out, Node{Container: container, Text: n.Data})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out, nil
}

// Flatten joins the text of every node whose container is not excluded,
// writing a single separating space after each kept node. Only the direct
// container is consulted: text inside a <p> survives even when the <p> sits
// under an excluded element.
func Flatten(nodes []Node, excluded []string) string {
	skip := make(map[string]bool, len(excluded))
	for _, name := range excluded {
		skip[strings.ToLower(strings.TrimSpace(name))] = true
	}
	var b strings.Builder
	for _, n := range nodes {
		if skip[n.Container] {
			continue
		}
		b.WriteString(n.Text)
		b.WriteByte(' ')
	}
	return b.String()
}

// Text is the flattened form most callers want: parse, filter by the
// exclusion set, space-join.
func Text(payload []byte, contentType string, excluded []string) (string, error) {
	nodes, err := Nodes(payload, contentType)
	if err != nil {
		return "", err
	}
	return Flatten(nodes, excluded), nil
}
