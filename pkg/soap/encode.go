package soap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/getmockd/soapconnect/pkg/wsdl"
)

// Encoder serializes object values (maps, slices and scalars as produced by
// encoding/json) into SOAP body and header XML.
type Encoder struct {
	schema  Schema
	ignored map[string]bool
}

// NewEncoder creates an encoder. schema may be nil, in which case children are
// written in alphabetical key order. Prefixes listed in ignoredNamespaces are
// never emitted; elements in those namespaces are written with a default
// namespace declaration instead.
func NewEncoder(schema Schema, ignoredNamespaces []string) *Encoder {
	e := &Encoder{schema: schema, ignored: make(map[string]bool, len(ignoredNamespaces))}
	for _, p := range ignoredNamespaces {
		e.ignored[p] = true
	}
	return e
}

// ObjectToRPCXML writes an RPC wrapper element named after the operation with
// one unqualified child per part. A string value is used verbatim as the
// wrapper's content.
func (e *Encoder) ObjectToRPCXML(name string, v any, alias, ns string, parts []wsdl.Part) string {
	fields := make([]wsdl.Field, 0, len(parts))
	for _, p := range parts {
		fields = append(fields, wsdl.Field{Name: p.Name, Type: p.Type})
	}
	return e.writeRoot(name, v, alias, ns, fields, false)
}

// ObjectToDocumentXML writes a document/literal body element. typ is the
// element's declared type; when the schema knows it (or knows the element),
// children follow the schema's sequence.
func (e *Encoder) ObjectToDocumentXML(name string, v any, alias, ns, typ string) string {
	var (
		fields    []wsdl.Field
		qualified bool
	)
	if e.schema != nil {
		fields, qualified = e.schema.ElementFields(ns, name)
		if typ != "" {
			if typed := e.schema.TypeFields(typ); typed != nil {
				fields = typed
			}
		}
	}
	return e.writeRoot(name, v, alias, ns, fields, qualified)
}

// ObjectToXML writes an arbitrary element, used for structured SOAP headers.
// When ns is empty the element is written without a namespace.
func (e *Encoder) ObjectToXML(v any, name, prefix, ns string) string {
	return e.writeRoot(name, v, prefix, ns, nil, prefix != "")
}

func (e *Encoder) writeRoot(name string, v any, alias, ns string, fields []wsdl.Field, qualified bool) string {
	var buf bytes.Buffer
	w := &xmlWriter{buf: &buf}

	switch {
	case ns == "":
		w.childPrefix = ""
		w.open(name, v, "")
	case alias == "" || e.ignored[alias]:
		// Default namespace: unqualified children must opt out of it.
		w.resetDefaultNS = !qualified
		w.open(name, v, ` xmlns="`+escapeXML(ns)+`"`)
	default:
		if qualified {
			w.childPrefix = alias
		}
		w.open(alias+":"+name, v, ` xmlns:`+alias+`="`+escapeXML(ns)+`"`)
		name = alias + ":" + name
	}

	if s, ok := v.(string); ok {
		buf.WriteString(s)
	} else {
		w.writeChildren(v, fields, true)
	}
	buf.WriteString("</" + name + ">")
	return buf.String()
}

type xmlWriter struct {
	buf            *bytes.Buffer
	childPrefix    string
	resetDefaultNS bool
}

// open writes a start tag, including attributes found under AttributesKey.
func (w *xmlWriter) open(tag string, v any, nsDecl string) {
	w.buf.WriteString("<" + tag + nsDecl)
	if m, ok := v.(map[string]any); ok {
		if attrs, ok := m[AttributesKey].(map[string]any); ok {
			keys := sortedKeys(attrs)
			for _, k := range keys {
				if !isXMLName(k) {
					continue
				}
				w.buf.WriteString(" " + k + `="` + escapeXML(formatScalar(attrs[k])) + `"`)
			}
		}
	}
	w.buf.WriteString(">")
}

func (w *xmlWriter) writeChildren(v any, fields []wsdl.Field, top bool) {
	m, ok := v.(map[string]any)
	if !ok {
		if v != nil {
			w.buf.WriteString(escapeXML(formatScalar(v)))
		}
		return
	}
	if text, ok := m[ValueKey]; ok {
		w.buf.WriteString(escapeXML(formatScalar(text)))
		return
	}

	for _, key := range orderedKeys(m, fields) {
		var children []wsdl.Field
		for _, f := range fields {
			if f.Name == key {
				children = f.Children
				break
			}
		}
		w.writeValue(key, m[key], children, top)
	}
}

// writeValue writes a single value as an XML element. Slices repeat the
// element and nil values are omitted.
func (w *xmlWriter) writeValue(key string, value any, fields []wsdl.Field, top bool) {
	if value == nil {
		return
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		for i := 0; i < rv.Len(); i++ {
			w.writeValue(key, rv.Index(i).Interface(), fields, top)
		}
		return
	}
	if sm, ok := value.(map[string]string); ok {
		converted := make(map[string]any, len(sm))
		for k, v := range sm {
			converted[k] = v
		}
		value = converted
	}

	tag := key
	if w.childPrefix != "" {
		tag = w.childPrefix + ":" + key
	}
	decl := ""
	if top && w.resetDefaultNS {
		decl = ` xmlns=""`
	}
	w.open(tag, value, decl)
	w.writeChildren(value, fields, false)
	w.buf.WriteString("</" + tag + ">")
}

// orderedKeys returns the map's element keys: schema-declared fields first in
// declaration order, then any remaining keys sorted.
func orderedKeys(m map[string]any, fields []wsdl.Field) []string {
	keys := make([]string, 0, len(m))
	seen := make(map[string]bool, len(m))
	for _, f := range fields {
		if _, ok := m[f.Name]; ok && !seen[f.Name] {
			keys = append(keys, f.Name)
			seen[f.Name] = true
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if !seen[k] && k != AttributesKey && k != ValueKey {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// formatScalar renders a leaf value as element or attribute text. Floats are
// written in plain decimal notation since xsd:int and xsd:decimal reject
// exponents; json.Number keeps the literal it was decoded from.
func formatScalar(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case json.Number:
		return n.String()
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// isXMLName reports whether s is usable as an attribute name, optionally
// prefixed (xsi:type). Names cannot be escaped, so others are dropped.
func isXMLName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case unicode.IsLetter(r), r == '_', r == ':':
		case i > 0 && (unicode.IsDigit(r) || r == '-' || r == '.' || unicode.In(r, unicode.Mn, unicode.Mc)):
		default:
			return false
		}
	}
	return !strings.HasPrefix(s, ":") && !strings.HasSuffix(s, ":")
}

// escapeXML escapes special XML characters.
func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}
