// Package xmldoc extracts the reference document (publication number,
// jurisdiction, classification and theme codes, claims) from patent XML.
package xmldoc

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/patsim/internal/domain"
	"github.com/kailas-cloud/patsim/internal/domain/patent"
)

// ErrNoPublicationNumber signals XML without a recognizable publication number.
var ErrNoPublicationNumber = fmt.Errorf("%w: publication number not found", domain.ErrInvalidQuery)

// node is a namespace-agnostic element tree.
type node struct {
	XMLName  xml.Name
	Text     string `xml:",chardata"`
	Children []node `xml:",any"`
}

// ParseFile reads a patent XML file.
func ParseFile(path string) (patent.Document, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return patent.Document{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse extracts a Document from patent XML.
func Parse(r io.Reader) (patent.Document, error) {
	var root node
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return patent.Document{}, fmt.Errorf("%w: empty document", domain.ErrInvalidQuery)
		}
		return patent.Document{}, fmt.Errorf("%w: malformed xml: %v", domain.ErrInvalidQuery, err)
	}

	country := countryCode(&root)
	pub, err := publicationNumber(&root, country)
	if err != nil {
		return patent.Document{}, err
	}

	doc, err := patent.New(pub, country, classificationCodes(&root), themeCodes(&root))
	if err != nil {
		return patent.Document{}, fmt.Errorf("%w: %v", domain.ErrInvalidQuery, err)
	}
	return doc.WithClaims(claims(&root)), nil
}

func publicationNumber(root *node, country string) (string, error) {
	if id := root.find("publication-reference", "document-id"); id != nil {
		if num := id.childText("doc-number"); num != "" {
			parts := []string{country, num}
			if kind := id.childText("kind"); kind != "" {
				parts = append(parts, kind)
			}
			return strings.Join(parts, "-"), nil
		}
	}
	if n := root.find("publication-number"); n != nil {
		if s := strings.TrimSpace(n.Text); s != "" {
			return s, nil
		}
	}
	return "", ErrNoPublicationNumber
}

func countryCode(root *node) string {
	if n := root.find("publication-reference", "document-id", "country"); n != nil {
		if s := strings.TrimSpace(n.Text); s != "" {
			return s
		}
	}
	return patent.DefaultCountry
}

func classificationCodes(root *node) []string {
	var codes []string
	for _, ipc := range root.findAll("classification-ipc") {
		if t := ipc.find("text"); t != nil {
			codes = append(codes, t.Text)
		}
	}
	for _, cpc := range root.findAll("classification-cpc") {
		section, class, subclass := cpc.descText("section"), cpc.descText("class"), cpc.descText("subclass")
		if section != "" && class != "" && subclass != "" {
			codes = append(codes, section+class+subclass)
		}
	}
	return codes
}

func themeCodes(root *node) []string {
	var codes []string
	for _, fi := range root.findAll("classification-national") {
		if t := fi.find("text"); t != nil {
			codes = append(codes, t.Text)
		}
	}
	for _, ft := range root.findAll("f-term") {
		codes = append(codes, ft.Text)
	}
	return codes
}

// claims returns one line per claim, whitespace collapsed.
func claims(root *node) string {
	var lines []string
	for _, c := range root.findAll("claim") {
		if text := strings.Join(strings.Fields(c.text()), " "); text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n")
}

// text concatenates the character data of n and its descendants.
func (n *node) text() string {
	var b strings.Builder
	var walk func(*node)
	walk = func(p *node) {
		b.WriteString(p.Text)
		b.WriteByte(' ')
		for i := range p.Children {
			walk(&p.Children[i])
		}
	}
	walk(n)
	return b.String()
}

// find returns the first descendant matching the first name whose child
// chain matches the remaining names.
func (n *node) find(path ...string) *node {
	for _, d := range n.findAll(path[0]) {
		if m := d.chain(path[1:]); m != nil {
			return m
		}
	}
	return nil
}

func (n *node) chain(path []string) *node {
	if len(path) == 0 {
		return n
	}
	for i := range n.Children {
		if n.Children[i].XMLName.Local == path[0] {
			if m := n.Children[i].chain(path[1:]); m != nil {
				return m
			}
		}
	}
	return nil
}

// findAll returns all descendants (not n itself) named name, in document order.
func (n *node) findAll(name string) []*node {
	var out []*node
	var walk func(*node)
	walk = func(p *node) {
		for i := range p.Children {
			c := &p.Children[i]
			if c.XMLName.Local == name {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func (n *node) childText(name string) string {
	if c := n.chain([]string{name}); c != nil {
		return strings.TrimSpace(c.Text)
	}
	return ""
}

func (n *node) descText(name string) string {
	if c := n.find(name); c != nil {
		return strings.TrimSpace(c.Text)
	}
	return ""
}
