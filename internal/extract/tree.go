package extract

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"
)

// ErrMalformedInput is matched by every MalformedInputError.
var ErrMalformedInput = errors.New("malformed input")

// MalformedInputError reports a file that could not be parsed into a tree.
// It is scoped to that file; callers decide whether to skip it or stop.
type MalformedInputError struct {
	Source string
	Err    error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input %s: %v", e.Source, e.Err)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrMalformedInput) match.
func (e *MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }

// Node is one element of a parsed file. Text is nil when the element carried
// no character data at all.
type Node struct {
	Name     string
	Text     *string
	Children []*Node
}

// Parse reads a whole XML document into a Node tree. Encodings declared in the
// prolog (ISO-8859-1, windows-1252, ...) are converted to UTF-8.
func Parse(r io.Reader, source string) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var (
		root  *Node
		stack []*Node
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &MalformedInputError{Source: source, Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local}
			if len(stack) == 0 {
				if root != nil {
					return nil, &MalformedInputError{Source: source, Err: errors.New("multiple root elements")}
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			cur := stack[len(stack)-1]
			// only text ahead of the first child counts, as for a leaf
			if len(cur.Children) > 0 {
				continue
			}
			s := string(t)
			if cur.Text != nil {
				s = *cur.Text + s
			}
			cur.Text = &s
		}
	}

	if root == nil {
		return nil, &MalformedInputError{Source: source, Err: errors.New("document has no root element")}
	}
	if len(stack) != 0 {
		return nil, &MalformedInputError{Source: source, Err: io.ErrUnexpectedEOF}
	}
	return root, nil
}

// Child returns the first direct child with the given name.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// walk visits n and its descendants in document order. Returning false from
// fn stops the descent below that node.
func (n *Node) walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.walk(fn)
	}
}
