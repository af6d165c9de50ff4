package soap

import (
	"strings"

	"github.com/beevik/etree"
)

// XMLToObject converts a SOAP envelope into {"Header": ..., "Body": ...}.
// Namespace prefixes are dropped from keys, repeated elements become []any,
// leaves become strings and xsi:nil elements become nil. Attributes other than
// namespace declarations are collected under AttributesKey.
//
// A document whose root is not an Envelope is treated as a bare body payload.
func XMLToObject(data []byte) (map[string]any, error) {
	doc, err := readDocument(data)
	if err != nil {
		return nil, err
	}
	root := doc.Root()
	if root.Tag != "Envelope" {
		return map[string]any{
			"Body": map[string]any{root.Tag: elementValue(root)},
		}, nil
	}

	result := make(map[string]any, 2)
	if header := FindHeader(doc); header != nil {
		result["Header"] = ElementToMap(header)
	}
	if body := FindBody(doc); body != nil {
		result["Body"] = ElementToMap(body)
	} else {
		result["Body"] = map[string]any{}
	}
	return result, nil
}

// ElementToMap converts an element's children into a map keyed by local name.
// Repeated elements with the same tag become slices.
func ElementToMap(elem *etree.Element) map[string]any {
	if elem == nil {
		return nil
	}

	result := make(map[string]any)
	if attrs := attributes(elem); attrs != nil {
		result[AttributesKey] = attrs
	}

	children := elem.ChildElements()
	counts := make(map[string]int, len(children))
	for _, child := range children {
		counts[child.Tag]++
	}

	for _, child := range children {
		key := child.Tag
		value := elementValue(child)

		if counts[key] > 1 {
			if existing, ok := result[key].([]any); ok {
				result[key] = append(existing, value)
			} else {
				result[key] = []any{value}
			}
		} else {
			result[key] = value
		}
	}
	return result
}

func elementValue(elem *etree.Element) any {
	if isNil(elem) {
		return nil
	}
	if len(elem.ChildElements()) > 0 {
		return ElementToMap(elem)
	}
	text := elem.Text()
	if attrs := attributes(elem); attrs != nil {
		m := map[string]any{AttributesKey: attrs}
		if strings.TrimSpace(text) != "" {
			m[ValueKey] = text
		}
		return m
	}
	return text
}

func isNil(elem *etree.Element) bool {
	for _, attr := range elem.Attr {
		if attr.Key == "nil" && (attr.Space == "xsi" || attr.NamespaceURI() == XSINamespace) {
			return attr.Value == "true" || attr.Value == "1"
		}
	}
	return false
}

// attributes returns the element's non-namespace attributes, or nil.
func attributes(elem *etree.Element) map[string]any {
	var attrs map[string]any
	for _, attr := range elem.Attr {
		if attr.Space == "xmlns" || (attr.Space == "" && attr.Key == "xmlns") {
			continue
		}
		if attr.Key == "type" && (attr.Space == "xsi" || attr.NamespaceURI() == XSINamespace) {
			continue
		}
		if attrs == nil {
			attrs = make(map[string]any)
		}
		attrs[attr.Key] = attr.Value
	}
	return attrs
}
