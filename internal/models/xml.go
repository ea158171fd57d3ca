package models

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// XMLNode is a generic element tree for tracker XML bodies. Unfuddle answers
// some error paths with XML even when asked for JSON, so the wrapper keeps a
// navigable form of whatever came back.
type XMLNode struct {
	Name     string
	Attr     map[string]string
	Text     string
	Children []*XMLNode
}

// ParseXML builds an element tree from a raw body. Non-UTF-8 documents are
// converted via the declared charset.
func ParseXML(body string) (*XMLNode, error) {
	dec := xml.NewDecoder(strings.NewReader(body))
	dec.CharsetReader = charset.NewReaderLabel

	root := &XMLNode{}
	stack := []*XMLNode{root}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &XMLNode{Name: t.Name.Local}
			if len(t.Attr) > 0 {
				node.Attr = make(map[string]string, len(t.Attr))
				for _, attr := range t.Attr {
					node.Attr[attr.Name.Local] = attr.Value
				}
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, node)
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			current := stack[len(stack)-1]
			current.Text += strings.TrimSpace(string(t))
		}
	}

	if len(root.Children) == 0 {
		return nil, errors.New("no elements in document")
	}
	if len(root.Children) == 1 {
		return root.Children[0], nil
	}
	return root, nil
}

// Find returns the first descendant with the given element name, or the node
// itself when it matches.
func (n *XMLNode) Find(name string) *XMLNode {
	if n == nil {
		return nil
	}
	if n.Name == name {
		return n
	}
	for _, child := range n.Children {
		if found := child.Find(name); found != nil {
			return found
		}
	}
	return nil
}
