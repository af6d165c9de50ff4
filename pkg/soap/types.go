package soap

import (
	"github.com/getmockd/soapconnect/pkg/wsdl"
)

// SOAPVersion represents the SOAP protocol version.
type SOAPVersion = wsdl.SOAPVersion

const (
	// SOAP11 represents SOAP 1.1 protocol.
	SOAP11 = wsdl.SOAP11
	// SOAP12 represents SOAP 1.2 protocol.
	SOAP12 = wsdl.SOAP12
)

// SOAP namespace URIs
const (
	SOAP11Namespace = "http://schemas.xmlsoap.org/soap/envelope/"
	SOAP12Namespace = "http://www.w3.org/2003/05/soap-envelope"
	XSINamespace    = "http://www.w3.org/2001/XMLSchema-instance"
)

// ContentTypes for SOAP versions
const (
	SOAP11ContentType = "text/xml; charset=utf-8"
	SOAP12ContentType = "application/soap+xml; charset=utf-8"
)

// Reserved keys in the object form of an element.
const (
	// AttributesKey holds an element's attributes as a map of name to value.
	AttributesKey = "attributes"
	// ValueKey holds an element's text when it also carries attributes.
	ValueKey = "$value"
)

// Schema supplies content models so serializers can emit children in the
// order the schema declares them. *wsdl.Document implements it.
type Schema interface {
	TypeFields(typ string) []wsdl.Field
	ElementFields(ns, name string) (fields []wsdl.Field, qualified bool)
}
