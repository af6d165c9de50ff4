package connector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"

	"github.com/getmockd/soapconnect/pkg/config"
	"github.com/getmockd/soapconnect/pkg/logging"
	"github.com/getmockd/soapconnect/pkg/soap"
	"github.com/getmockd/soapconnect/pkg/transport"
	"github.com/getmockd/soapconnect/pkg/wsdl"
)

// Invoker sends a SOAP call. *transport.Client implements it.
type Invoker interface {
	Invoke(ctx context.Context, call transport.Call) ([]byte, error)
}

// Table is the exposed operation surface of one connection. A table is fully
// built before it is published and is read-only afterwards.
type Table struct {
	doc      *wsdl.Document
	encoder  *soap.Encoder
	suffixes []string

	names    []string
	bindings map[string]*OperationBinding
}

// TableOptions configures BuildTable.
type TableOptions struct {
	// Endpoint overrides every port's soap:address when set.
	Endpoint          string
	Overrides         map[string]config.OperationOverride
	IgnoredNamespaces []string
	ResponseSuffixes  []string
	RemotingEnabled   bool
	Logger            *slog.Logger
}

// BuildTable walks every (service, port, operation) triple of doc and binds
// it to invoker.
func BuildTable(doc *wsdl.Document, invoker Invoker, opts TableOptions) (*Table, error) {
	logger := logging.OrNop(opts.Logger)
	suffixes := opts.ResponseSuffixes
	if len(suffixes) == 0 {
		suffixes = config.DefaultResponseSuffixes
	}

	t := &Table{
		doc:      doc,
		encoder:  soap.NewEncoder(doc, opts.IgnoredNamespaces),
		suffixes: sortSuffixes(suffixes),
		bindings: make(map[string]*OperationBinding),
	}
	resolver := NewResolver(opts.Overrides)

	for _, svc := range doc.Services {
		for _, port := range svc.Ports {
			ops, err := port.Operations()
			if err != nil {
				return nil, err
			}
			for _, op := range ops {
				logger.Debug("adding method", "service", svc.Name, "port", port.Name, "operation", op.Name)

				name := resolver.ResolveName(svc.Name, port.Name, op.Name, t.Has)
				if _, exists := t.bindings[name]; exists {
					logger.Warn("exposed method name collides, replacing earlier binding",
						"name", name, "service", svc.Name, "port", port.Name, "operation", op.Name)
				} else {
					t.names = append(t.names, name)
				}
				logger.Debug("method name", "name", name)

				endpoint := opts.Endpoint
				if endpoint == "" {
					endpoint = port.Location
				}
				b := &OperationBinding{
					Name:      name,
					Service:   svc.Name,
					Port:      port.Name,
					Operation: op,
					Endpoint:  endpoint,
					Version:   port.Version,
					table:     t,
				}
				if opts.RemotingEnabled {
					b.Remoting = defaultRemoting()
				}
				b.invoke = func(ctx context.Context, body string) ([]byte, error) {
					return invoker.Invoke(ctx, transport.Call{
						Operation:  b.Name,
						Endpoint:   b.Endpoint,
						SOAPAction: b.Operation.SOAPAction,
						Version:    b.Version,
						Body:       body,
					})
				}
				t.bindings[name] = b
			}
		}
	}
	return t, nil
}

// longest first so Output is tried before Out
func sortSuffixes(suffixes []string) []string {
	out := append([]string(nil), suffixes...)
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

// Names returns the exposed names in build order.
func (t *Table) Names() []string {
	return append([]string(nil), t.names...)
}

// Len returns the number of exposed operations.
func (t *Table) Len() int {
	return len(t.names)
}

// Lookup returns the binding exposed under name.
func (t *Table) Lookup(name string) (*OperationBinding, bool) {
	b, ok := t.bindings[name]
	return b, ok
}

// Bindings returns all bindings in build order.
func (t *Table) Bindings() []*OperationBinding {
	out := make([]*OperationBinding, 0, len(t.names))
	for _, n := range t.names {
		out = append(out, t.bindings[n])
	}
	return out
}

// Document returns the capability document the table was built from.
func (t *Table) Document() *wsdl.Document {
	return t.doc
}

// Has reports whether name is exposed or reserved.
func (t *Table) Has(name string) bool {
	if name == ReservedJSONToXML || name == ReservedXMLToJSON {
		return true
	}
	_, ok := t.bindings[name]
	return ok
}

// Call invokes the operation exposed under name.
func (t *Table) Call(ctx context.Context, name string, input any) (any, error) {
	b, ok := t.bindings[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, name)
	}
	return b.Call(ctx, input)
}

// operation resolves a string name, *wsdl.Operation or *OperationBinding.
// Strings name a capability document operation (first port type declaring it
// wins); exposed names such as overrides or service_port_operation are only
// tried when no document operation has that name.
func (t *Table) operation(ref any) (*wsdl.Operation, error) {
	switch r := ref.(type) {
	case *wsdl.Operation:
		if r == nil {
			return nil, fmt.Errorf("%w: nil operation", ErrMethodNotFound)
		}
		return r, nil
	case *OperationBinding:
		if r == nil {
			return nil, fmt.Errorf("%w: nil binding", ErrMethodNotFound)
		}
		return r.Operation, nil
	case string:
		op, err := t.doc.FindOperation(r)
		if !errors.Is(err, wsdl.ErrOperationNotFound) {
			return op, err
		}
		if b, ok := t.bindings[r]; ok {
			return b.Operation, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, r)
	default:
		return nil, fmt.Errorf("%w: unsupported operation reference %T", ErrMethodNotFound, ref)
	}
}

// JSONToXML encodes v as the request body of op, which is an operation name,
// *wsdl.Operation or *OperationBinding. A document operation name takes
// precedence over an exposed name that is spelled the same. Empty input and void messages encode
// to an empty string. A string v is returned verbatim for document style
// operations.
func (t *Table) JSONToXML(op any, v any) (string, error) {
	if isEmpty(v) {
		return "", nil
	}
	o, err := t.operation(op)
	if err != nil {
		return "", err
	}

	in := o.Input
	switch {
	case in.IsVoid():
		return "", nil
	case in.IsRPC():
		ns := t.doc.TargetNamespace
		alias, _ := t.doc.Prefix(ns)
		return t.encoder.ObjectToRPCXML(o.Name, v, alias, ns, in.Parts), nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return t.encoder.ObjectToDocumentXML(in.ElementName, v, in.TargetNSAlias, in.TargetNamespace, in.Type), nil
}

// XMLToJSON decodes a response envelope (or bare body element) and returns
// the payload of op. The payload is looked up under the output element name,
// then the input element name, then the output element name with one
// response suffix removed.
func (t *Table) XMLToJSON(op any, xml string) (any, error) {
	if strings.TrimSpace(xml) == "" {
		return map[string]any{}, nil
	}
	o, err := t.operation(op)
	if err != nil {
		return nil, err
	}
	if o.Output.IsVoid() {
		return map[string]any{}, nil
	}

	obj, err := soap.XMLToObject([]byte(xml))
	if err != nil {
		return nil, err
	}
	body, _ := obj["Body"].(map[string]any)
	if countElements(body) == 0 {
		return map[string]any{}, nil
	}

	for _, name := range t.candidates(o) {
		if v, ok := body[name]; ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: expected %s in response body", ErrResponseElementNotFound, o.Output.ElementName)
}

func (t *Table) candidates(o *wsdl.Operation) []string {
	out := o.Output.ElementName
	names := []string{out}
	if o.Input != nil && o.Input.ElementName != "" {
		names = append(names, o.Input.ElementName)
	}
	for _, s := range t.suffixes {
		if s != "" && len(out) > len(s) && strings.HasSuffix(out, s) {
			names = append(names, strings.TrimSuffix(out, s))
			break
		}
	}
	return names
}

func countElements(body map[string]any) int {
	n := len(body)
	if _, ok := body[soap.AttributesKey]; ok {
		n--
	}
	return n
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
