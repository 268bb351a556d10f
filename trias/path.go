package trias

import (
	"strings"

	"github.com/beevik/etree"
)

// Tolerant navigation over TRIAS documents. Paths are dot separated
// sequences of child element names, relative to the node passed
// in. A segment may carry a namespace, either as a URI in braces
// ("{http://www.siri.org.uk/siri}RequestorRef") or as a prefix
// ("siri:RequestorRef"). Dots inside braces are not separators.
//
// None of these functions fail on missing data. Absence is reported
// through the default value.

// Reports whether every segment of path resolves to a child.
func Exists(node *etree.Element, path string) bool {
	return resolve(node, splitPath(path)) != nil
}

// Text content of the element at path, with surrounding whitespace
// removed. Returns def if the element is missing or has no text.
func Value(node *etree.Element, path string, def string) string {
	el := resolve(node, splitPath(path))
	if el == nil {
		return def
	}

	text := strings.TrimSpace(el.Text())
	if text == "" {
		return def
	}

	return text
}

// Value of an attribute. The last segment of path names the
// attribute, the preceding segments the element carrying it.
func Attribute(node *etree.Element, path string, def string) string {
	segments := splitPath(path)
	if len(segments) == 0 {
		return def
	}

	el := resolve(node, segments[:len(segments)-1])
	if el == nil {
		return def
	}

	name := segments[len(segments)-1]
	for i := range el.Attr {
		if matchAttr(&el.Attr[i], name) {
			return el.Attr[i].Value
		}
	}

	return def
}

// All elements matching the last segment of path, below the element
// resolved by the preceding segments. Document order is preserved.
func Elements(node *etree.Element, path string) []*etree.Element {
	segments := splitPath(path)
	if len(segments) == 0 {
		return []*etree.Element{}
	}

	parent := resolve(node, segments[:len(segments)-1])
	if parent == nil {
		return []*etree.Element{}
	}

	name := segments[len(segments)-1]
	elements := []*etree.Element{}
	for _, child := range parent.ChildElements() {
		if matchElement(child, name) {
			elements = append(elements, child)
		}
	}

	return elements
}

// Reports whether the element at path exists and holds a true
// boolean ("true" or "1").
func Truthy(node *etree.Element, path string) bool {
	switch strings.ToLower(Value(node, path, "")) {
	case "true", "1":
		return true
	}
	return false
}

func resolve(node *etree.Element, segments []string) *etree.Element {
	if node == nil {
		return nil
	}

	current := node
	for _, segment := range segments {
		var next *etree.Element
		for _, child := range current.ChildElements() {
			if matchElement(child, segment) {
				next = child
				break
			}
		}
		if next == nil {
			return nil
		}
		current = next
	}

	return current
}

// Splits a path on dots that are not enclosed in braces.
func splitPath(path string) []string {
	if path == "" {
		return nil
	}

	segments := []string{}
	depth := 0
	start := 0
	for i, r := range path {
		switch r {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case '.':
			if depth == 0 {
				segments = append(segments, path[start:i])
				start = i + 1
			}
		}
	}

	return append(segments, path[start:])
}

// Breaks a segment into namespace URI, prefix and local name. At
// most one of uri and prefix is set.
func splitName(segment string) (uri string, prefix string, local string) {
	if strings.HasPrefix(segment, "{") {
		if end := strings.Index(segment, "}"); end > 0 {
			return segment[1:end], "", segment[end+1:]
		}
	}
	if i := strings.Index(segment, ":"); i >= 0 {
		return "", segment[:i], segment[i+1:]
	}
	return "", "", segment
}

func matchElement(el *etree.Element, segment string) bool {
	uri, prefix, local := splitName(segment)
	if el.Tag != local {
		return false
	}
	if uri != "" {
		return el.NamespaceURI() == uri
	}
	if prefix != "" {
		return el.Space == prefix
	}
	return true
}

func matchAttr(attr *etree.Attr, segment string) bool {
	uri, prefix, local := splitName(segment)
	if attr.Key != local {
		return false
	}
	if uri != "" {
		return attr.NamespaceURI() == uri
	}
	if prefix != "" {
		return attr.Space == prefix
	}
	return attr.Space == ""
}
