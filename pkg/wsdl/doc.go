// Package wsdl parses WSDL 1.1 capability documents into an immutable model of
// services, ports, operations and messages.
//
// The parser is built on beevik/etree and is deliberately lenient: it accepts
// any well-formed <definitions> document and records unresolved references
// (a port whose binding is missing, an operation whose message is missing) so
// that they surface as ErrMalformedDocument only when the affected port or
// operation is looked up.
//
// # Binding style
//
// Each operation's style is derived from its input message:
//
//   - parts that reference XSD types (type="xsd:int") make it RPC style
//   - a single part that references a schema element makes it document style
//   - a message with no parts is void; the binding's declared style is kept
//
// Document style messages carry the element's namespace, the prefix the
// document uses for that namespace, the declared type and the element's
// content model so serializers can emit children in schema order.
//
// # Lookup
//
// FindOperation scans port types in declaration order and returns the first
// operation with a matching name. Operation names duplicated across port types
// therefore resolve to the first declaration.
package wsdl
