package wsdl

// Document is a parsed WSDL 1.1 capability document. It is immutable once
// returned by Parse.
type Document struct {
	Name            string
	TargetNamespace string
	Services        []*Service
	Messages        []*Message

	namespaces map[string]string // prefix -> URI
	prefixes   map[string]string // URI -> first declared prefix
	portTypes  []*portTypeDef
	schemas    *schemaSet
}

type portTypeDef struct {
	name       string
	operations []*Operation
}

// NamespaceURI returns the URI bound to prefix on the definitions element.
func (d *Document) NamespaceURI(prefix string) (string, bool) {
	uri, ok := d.namespaces[prefix]
	return uri, ok
}

// Prefix returns the first prefix declared for uri on the definitions element.
// The default namespace yields an empty prefix with ok set.
func (d *Document) Prefix(uri string) (string, bool) {
	p, ok := d.prefixes[uri]
	return p, ok
}

// Namespaces returns a copy of the prefix to URI mapping.
func (d *Document) Namespaces() map[string]string {
	out := make(map[string]string, len(d.namespaces))
	for k, v := range d.namespaces {
		out[k] = v
	}
	return out
}

// FindOperation scans every port type in declaration order and returns the first
// operation with the given name. Duplicate names across port types resolve to the
// first declaration.
func (d *Document) FindOperation(name string) (*Operation, error) {
	for _, pt := range d.portTypes {
		for _, op := range pt.operations {
			if op.Name != name {
				continue
			}
			if op.err != nil {
				return nil, op.err
			}
			return op, nil
		}
	}
	return nil, ErrOperationNotFound
}

// PortTypes returns the declared port type names in order.
func (d *Document) PortTypes() []string {
	names := make([]string, 0, len(d.portTypes))
	for _, pt := range d.portTypes {
		names = append(names, pt.name)
	}
	return names
}

// Message returns the message with the given local name.
func (d *Document) Message(name string) *Message {
	for _, m := range d.Messages {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// TypeFields returns the content model of a named complex type.
func (d *Document) TypeFields(typ string) []Field {
	if d.schemas == nil {
		return nil
	}
	ct := d.schemas.complexType(typ)
	if ct == nil {
		return nil
	}
	return d.schemas.complexTypeFields(ct, 0)
}

// ElementFields returns the content model of a top-level schema element and
// whether its schema qualifies local elements.
func (d *Document) ElementFields(ns, name string) ([]Field, bool) {
	if d.schemas == nil {
		return nil, false
	}
	sc, el := d.schemas.element(ns, name)
	if el == nil {
		return nil, false
	}
	return d.schemas.elementFields(el, 0), sc.qualified
}
