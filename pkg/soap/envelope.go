package soap

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

// Envelope errors.
var (
	ErrInvalidXML     = errors.New("invalid XML")
	ErrNotAnEnvelope  = errors.New("root element must be Envelope")
	ErrEmptyEnvelope  = errors.New("empty document")
	ErrBodyNotPresent = errors.New("envelope has no Body")
)

// Namespace returns the envelope namespace for a SOAP version.
func Namespace(version SOAPVersion) string {
	if version == SOAP12 {
		return SOAP12Namespace
	}
	return SOAP11Namespace
}

// ContentType returns the request Content-Type for a SOAP version. SOAP 1.2
// carries the action as a media type parameter instead of a SOAPAction header.
func ContentType(version SOAPVersion, action string) string {
	if version == SOAP12 {
		if action != "" {
			return SOAP12ContentType + `; action="` + action + `"`
		}
		return SOAP12ContentType
	}
	return SOAP11ContentType
}

// BuildEnvelope wraps a body fragment and optional header fragments in a SOAP
// envelope. Fragments are inserted verbatim.
func BuildEnvelope(version SOAPVersion, headers []string, body string) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString(`<soap:Envelope xmlns:soap="` + Namespace(version) + `">`)
	if len(headers) > 0 {
		buf.WriteString(`<soap:Header>`)
		for _, h := range headers {
			buf.WriteString(h)
		}
		buf.WriteString(`</soap:Header>`)
	}
	buf.WriteString(`<soap:Body>`)
	buf.WriteString(body)
	buf.WriteString(`</soap:Body>`)
	buf.WriteString(`</soap:Envelope>`)
	return buf.Bytes()
}

// ParseEnvelope parses a SOAP envelope and detects its version.
func ParseEnvelope(data []byte) (*etree.Document, SOAPVersion, error) {
	doc, err := readDocument(data)
	if err != nil {
		return nil, SOAP11, err
	}
	root := doc.Root()
	if root.Tag != "Envelope" {
		return nil, SOAP11, fmt.Errorf("%w, got %s", ErrNotAnEnvelope, root.Tag)
	}
	return doc, DetectVersion(doc), nil
}

// DetectVersion detects the SOAP version from the envelope namespace.
func DetectVersion(doc *etree.Document) SOAPVersion {
	root := doc.Root()
	if root == nil {
		return SOAP11
	}
	if root.NamespaceURI() == SOAP12Namespace {
		return SOAP12
	}
	for _, attr := range root.Attr {
		if (attr.Space == "xmlns" || attr.Key == "xmlns") && attr.Value == SOAP12Namespace {
			return SOAP12
		}
	}
	return SOAP11
}

// FindBody returns the envelope's Body element, or nil.
func FindBody(doc *etree.Document) *etree.Element {
	return findEnvelopeChild(doc, "Body")
}

// FindHeader returns the envelope's Header element, or nil.
func FindHeader(doc *etree.Document) *etree.Element {
	return findEnvelopeChild(doc, "Header")
}

func findEnvelopeChild(doc *etree.Document, tag string) *etree.Element {
	if doc == nil || doc.Root() == nil {
		return nil
	}
	for _, child := range doc.Root().ChildElements() {
		if child.Tag == tag {
			return child
		}
	}
	return nil
}

func readDocument(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidXML, err)
	}
	if doc.Root() == nil {
		return nil, ErrEmptyEnvelope
	}
	return doc, nil
}

// PrettyPrint re-indents an XML document. Input that does not parse is
// returned unchanged.
func PrettyPrint(data []byte) string {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return string(data)
	}
	doc.Indent(2)
	out, err := doc.WriteToString()
	if err != nil {
		return string(data)
	}
	return out
}
