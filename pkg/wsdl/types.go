package wsdl

import (
	"errors"
	"fmt"
)

// Style is the binding style of an operation's messages.
type Style string

const (
	// StyleDocument means the message body is a single schema element.
	StyleDocument Style = "document"
	// StyleRPC means the message body wraps a list of named parts.
	StyleRPC Style = "rpc"
)

// SOAPVersion is the envelope version a port speaks.
type SOAPVersion string

const (
	SOAP11 SOAPVersion = "1.1"
	SOAP12 SOAPVersion = "1.2"
)

// Binding and envelope namespace URIs.
const (
	NamespaceWSDL       = "http://schemas.xmlsoap.org/wsdl/"
	NamespaceSOAPBind11 = "http://schemas.xmlsoap.org/wsdl/soap/"
	NamespaceSOAPBind12 = "http://schemas.xmlsoap.org/wsdl/soap12/"
	NamespaceXSD        = "http://www.w3.org/2001/XMLSchema"
)

var (
	// ErrOperationNotFound is returned when no port type declares the operation.
	ErrOperationNotFound = errors.New("operation not found in capability document")

	// ErrMalformedDocument is returned when a structural reference (binding,
	// port type, message) cannot be resolved at lookup time.
	ErrMalformedDocument = errors.New("malformed capability document")
)

// ParseError describes why a capability document could not be parsed.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return "wsdl: " + e.Message + ": " + e.Cause.Error()
	}
	return "wsdl: " + e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is reports a ParseError as ErrMalformedDocument.
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformedDocument
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedDocument, fmt.Sprintf(format, args...))
}

// Service is a named group of ports.
type Service struct {
	Name  string
	Ports []*Port
}

// Port is a service endpoint bound to one port type through a binding.
type Port struct {
	Name     string
	Service  string
	Location string // soap:address location
	Binding  string
	Version  SOAPVersion

	operations []*Operation
	err        error
}

// Operations returns the operations reachable through this port, in port type
// declaration order. It fails with ErrMalformedDocument when the port's binding
// or port type is missing.
func (p *Port) Operations() ([]*Operation, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.operations, nil
}

// Operation is a single request/response exchange.
type Operation struct {
	Name       string
	PortType   string
	Input      *Message
	Output     *Message
	Style      Style
	SOAPAction string

	err error
}

// Part is a named RPC message part.
type Part struct {
	Name string
	Type string
}

// Field is an element of a complex type's content model, in declaration order.
type Field struct {
	Name     string
	Type     string
	Optional bool
	Repeated bool
	Children []Field
}

// Message is a resolved input or output message.
//
// Document style messages carry Element (and with it ElementName, Type and the
// target namespace of the element). RPC messages carry Parts. A message with
// neither is void.
type Message struct {
	Name            string
	ElementName     string
	Element         string
	Parts           []Part
	TargetNSAlias   string
	TargetNamespace string
	Type            string
	Fields          []Field
	Qualified       bool
}

// IsVoid reports whether the message has no body content.
func (m *Message) IsVoid() bool {
	return m == nil || (len(m.Parts) == 0 && m.Element == "")
}

// IsRPC reports whether the message declares discrete named parts.
func (m *Message) IsRPC() bool {
	return m != nil && len(m.Parts) > 0
}
