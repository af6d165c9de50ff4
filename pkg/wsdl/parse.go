package wsdl

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

type bindingDef struct {
	name     string
	portType string
	style    Style
	version  SOAPVersion
	ops      map[string]bindingOp
}

type bindingOp struct {
	action string
	style  Style
}

// Parse parses a WSDL 1.1 document. Structural references are resolved eagerly,
// but unresolved ones only surface when the affected port or operation is looked up.
func Parse(data []byte) (*Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, &ParseError{Message: "failed to parse XML", Cause: err}
	}

	root := doc.Root()
	if root == nil {
		return nil, &ParseError{Message: "empty capability document"}
	}

	switch root.Tag {
	case "definitions":
	case "description":
		return nil, &ParseError{Message: "WSDL 2.0 is not supported; expected a WSDL 1.1 document"}
	default:
		return nil, &ParseError{Message: fmt.Sprintf("expected root element <definitions>, got <%s>", root.Tag)}
	}

	d := &Document{
		Name:            root.SelectAttrValue("name", ""),
		TargetNamespace: root.SelectAttrValue("targetNamespace", ""),
		namespaces:      make(map[string]string),
		prefixes:        make(map[string]string),
	}
	d.collectNamespaces(root)

	schemas := parseSchemas(root)
	d.schemas = schemas

	messages := make(map[string]*Message)
	for _, msgEl := range findElements(root, "message") {
		m := d.parseMessage(msgEl, schemas)
		d.Messages = append(d.Messages, m)
		messages[m.Name] = m
	}

	portTypes := make(map[string]*portTypeDef)
	for _, ptEl := range findElements(root, "portType") {
		pt := &portTypeDef{name: ptEl.SelectAttrValue("name", "")}
		for _, opEl := range findElements(ptEl, "operation") {
			pt.operations = append(pt.operations, parsePortTypeOperation(pt.name, opEl, messages))
		}
		d.portTypes = append(d.portTypes, pt)
		portTypes[pt.name] = pt
	}

	bindings := make(map[string]*bindingDef)
	for _, bindEl := range findElements(root, "binding") {
		b := parseBinding(bindEl)
		bindings[b.name] = b
	}

	for _, svcEl := range findElements(root, "service") {
		svc := &Service{Name: svcEl.SelectAttrValue("name", "")}
		for _, portEl := range findElements(svcEl, "port") {
			svc.Ports = append(svc.Ports, parsePort(svc.Name, portEl, bindings, portTypes))
		}
		d.Services = append(d.Services, svc)
	}

	return d, nil
}

func (d *Document) collectNamespaces(root *etree.Element) {
	for _, attr := range root.Attr {
		var prefix string
		switch {
		case attr.Space == "xmlns":
			prefix = attr.Key
		case attr.Space == "" && attr.Key == "xmlns":
			prefix = ""
		default:
			continue
		}
		d.namespaces[prefix] = attr.Value
		if _, seen := d.prefixes[attr.Value]; !seen {
			d.prefixes[attr.Value] = prefix
		}
	}
}

func (d *Document) parseMessage(msgEl *etree.Element, schemas *schemaSet) *Message {
	m := &Message{Name: msgEl.SelectAttrValue("name", "")}

	for _, partEl := range findElements(msgEl, "part") {
		if qname := partEl.SelectAttrValue("element", ""); qname != "" {
			prefix, local := splitQName(qname)
			uri := lookupNamespace(partEl, prefix)
			if uri == "" {
				uri = d.TargetNamespace
			}
			alias := prefix
			if alias == "" {
				alias, _ = d.Prefix(uri)
			}

			m.Parts = nil
			m.Element = local
			m.TargetNamespace = uri
			m.TargetNSAlias = alias
			if sc, el := schemas.element(uri, local); el != nil {
				m.Type = stripPrefix(el.SelectAttrValue("type", ""))
				m.Fields = schemas.elementFields(el, 0)
				m.Qualified = sc.qualified
			}
			break
		}
		m.Parts = append(m.Parts, Part{
			Name: partEl.SelectAttrValue("name", ""),
			Type: stripPrefix(partEl.SelectAttrValue("type", "")),
		})
	}

	if m.Element != "" {
		m.ElementName = m.Element
	} else {
		m.ElementName = m.Name
	}
	return m
}

func parsePortTypeOperation(portType string, opEl *etree.Element, messages map[string]*Message) *Operation {
	op := &Operation{Name: opEl.SelectAttrValue("name", ""), PortType: portType}

	if inp := findElement(opEl, "input"); inp != nil {
		name := stripPrefix(inp.SelectAttrValue("message", ""))
		if op.Input = messages[name]; op.Input == nil {
			op.err = malformed("operation %q references unknown input message %q", op.Name, name)
		}
	}
	if out := findElement(opEl, "output"); out != nil {
		name := stripPrefix(out.SelectAttrValue("message", ""))
		if op.Output = messages[name]; op.Output == nil && op.err == nil {
			op.err = malformed("operation %q references unknown output message %q", op.Name, name)
		}
	}

	switch {
	case op.Input.IsRPC():
		op.Style = StyleRPC
	case !op.Input.IsVoid():
		op.Style = StyleDocument
	}
	return op
}

func parseBinding(bindEl *etree.Element) *bindingDef {
	b := &bindingDef{
		name:     bindEl.SelectAttrValue("name", ""),
		portType: stripPrefix(bindEl.SelectAttrValue("type", "")),
		style:    StyleDocument,
		version:  SOAP11,
		ops:      make(map[string]bindingOp),
	}
	if soapBind, version := findSOAPElement(bindEl, "binding"); soapBind != nil {
		b.version = version
		b.style = Style(soapBind.SelectAttrValue("style", string(StyleDocument)))
	}
	for _, opEl := range findElements(bindEl, "operation") {
		bop := bindingOp{style: b.style}
		if soapOp, _ := findSOAPElement(opEl, "operation"); soapOp != nil {
			bop.action = soapOp.SelectAttrValue("soapAction", "")
			if s := soapOp.SelectAttrValue("style", ""); s != "" {
				bop.style = Style(s)
			}
		}
		b.ops[opEl.SelectAttrValue("name", "")] = bop
	}
	return b
}

func parsePort(service string, portEl *etree.Element, bindings map[string]*bindingDef, portTypes map[string]*portTypeDef) *Port {
	p := &Port{
		Name:    portEl.SelectAttrValue("name", ""),
		Service: service,
		Binding: stripPrefix(portEl.SelectAttrValue("binding", "")),
		Version: SOAP11,
	}
	if addr, _ := findSOAPElement(portEl, "address"); addr != nil {
		p.Location = addr.SelectAttrValue("location", "")
	}

	b := bindings[p.Binding]
	if b == nil {
		p.err = malformed("port %s/%s references unknown binding %q", service, p.Name, p.Binding)
		return p
	}
	p.Version = b.version

	pt := portTypes[b.portType]
	if pt == nil {
		p.err = malformed("binding %q references unknown port type %q", b.name, b.portType)
		return p
	}

	for _, op := range pt.operations {
		if op.err != nil {
			p.err = op.err
			return p
		}
		bound := *op
		if bop, ok := b.ops[op.Name]; ok {
			bound.SOAPAction = bop.action
			if bound.Style == "" {
				bound.Style = bop.style
			}
		}
		if bound.Style == "" {
			bound.Style = b.style
		}
		p.operations = append(p.operations, &bound)
	}
	return p
}

// findElements returns all direct child elements matching the local name (ignoring namespace prefix).
func findElements(parent *etree.Element, localName string) []*etree.Element {
	var results []*etree.Element
	for _, child := range parent.ChildElements() {
		if child.Tag == localName {
			results = append(results, child)
		}
	}
	return results
}

// findElement returns the first direct child element matching the local name.
func findElement(parent *etree.Element, localName string) *etree.Element {
	for _, child := range parent.ChildElements() {
		if child.Tag == localName {
			return child
		}
	}
	return nil
}

// findSOAPElement finds a SOAP binding extension element (soap:binding,
// soap12:address, ...) and reports which SOAP version its namespace denotes.
func findSOAPElement(parent *etree.Element, localName string) (*etree.Element, SOAPVersion) {
	for _, child := range parent.ChildElements() {
		if child.Tag != localName {
			continue
		}
		switch child.NamespaceURI() {
		case NamespaceSOAPBind11:
			return child, SOAP11
		case NamespaceSOAPBind12:
			return child, SOAP12
		}
		// Undeclared prefixes fall back to the conventional names.
		switch child.Space {
		case "soap", "wsoap":
			return child, SOAP11
		case "soap12":
			return child, SOAP12
		}
	}
	return nil, ""
}

// lookupNamespace resolves a prefix against the xmlns declarations in scope at el.
func lookupNamespace(el *etree.Element, prefix string) string {
	for e := el; e != nil; e = e.Parent() {
		for _, attr := range e.Attr {
			if prefix == "" && attr.Space == "" && attr.Key == "xmlns" {
				return attr.Value
			}
			if prefix != "" && attr.Space == "xmlns" && attr.Key == prefix {
				return attr.Value
			}
		}
	}
	return ""
}

func splitQName(qname string) (prefix, local string) {
	if idx := strings.IndexByte(qname, ':'); idx >= 0 {
		return qname[:idx], qname[idx+1:]
	}
	return "", qname
}

// stripPrefix removes a namespace prefix from a QName (e.g., "tns:Foo" → "Foo").
func stripPrefix(qname string) string {
	_, local := splitQName(qname)
	return local
}
