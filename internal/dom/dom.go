// Package dom exposes a small navigable view over a rendered page. Extraction
// code depends on the Document and Element interfaces only, so tests can
// drive it with in-memory fakes.
package dom

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Kind names a structural element the extractors look for.
type Kind int

const (
	Table Kind = iota
	TableRow
	HeaderCell
	DataCell
	Paragraph
)

func (k Kind) String() string {
	switch k {
	case Table:
		return "table"
	case TableRow:
		return "row"
	case HeaderCell:
		return "header-cell"
	case DataCell:
		return "data-cell"
	case Paragraph:
		return "paragraph"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var selectors = map[Kind]cascadia.Selector{
	Table:      cascadia.MustCompile("table"),
	TableRow:   cascadia.MustCompile("tr"),
	HeaderCell: cascadia.MustCompile("th"),
	DataCell:   cascadia.MustCompile("td"),
	Paragraph:  cascadia.MustCompile("p"),
}

// Document is a rendered page.
type Document interface {
	Title() string
	// FindAll returns every descendant of the given kind in document order.
	FindAll(kind Kind) ([]Element, error)
}

// Element is one node within a Document.
type Element interface {
	// Text returns the raw text content of the element and its descendants.
	Text() (string, error)
	// FindAll returns descendants of the given kind in document order.
	FindAll(kind Kind) ([]Element, error)
}

// HTMLDocument implements Document over a parsed HTML tree.
type HTMLDocument struct {
	doc *goquery.Document
}

// Parse reads UTF-8 HTML from r.
func Parse(r io.Reader) (*HTMLDocument, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &HTMLDocument{doc: goquery.NewDocumentFromNode(root)}, nil
}

// ParseString is Parse for an in-memory page.
func ParseString(s string) (*HTMLDocument, error) {
	return Parse(strings.NewReader(s))
}

func (d *HTMLDocument) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

func (d *HTMLDocument) FindAll(kind Kind) ([]Element, error) {
	return findAll(d.doc.Selection, kind)
}

type htmlElement struct {
	sel *goquery.Selection
}

func (e htmlElement) Text() (string, error) { return e.sel.Text(), nil }

func (e htmlElement) FindAll(kind Kind) ([]Element, error) {
	return findAll(e.sel, kind)
}

func findAll(sel *goquery.Selection, kind Kind) ([]Element, error) {
	m, ok := selectors[kind]
	if !ok {
		return nil, fmt.Errorf("dom: unknown kind %v", kind)
	}
	found := sel.FindMatcher(m)
	out := make([]Element, 0, found.Length())
	found.Each(func(_ int, s *goquery.Selection) {
		out = append(out, htmlElement{sel: s})
	})
	return out, nil
}
