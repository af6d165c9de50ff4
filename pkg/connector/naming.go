package connector

import (
	"sort"

	"github.com/getmockd/soapconnect/pkg/config"
)

// Reserved names on the table surface. Operations named like these are
// exposed under their qualified name.
const (
	ReservedJSONToXML = "jsonToXML"
	ReservedXMLToJSON = "xmlToJSON"
)

// Resolver derives exposed method names from (service, port, operation)
// triples and the configured overrides.
type Resolver struct {
	overrides map[string]config.OperationOverride
	keys      []string
}

// NewResolver creates a resolver. Override keys are matched in sorted order.
func NewResolver(overrides map[string]config.OperationOverride) *Resolver {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &Resolver{overrides: overrides, keys: keys}
}

// ResolveName returns the exposed name for an operation.
//
// An override wins when its service and port match exactly and either its
// operation matches or it has no operation and its key equals the operation
// name. Otherwise the bare operation name is used unless taken reports it as
// already exposed, in which case the qualified service_port_operation name
// is returned.
func (r *Resolver) ResolveName(service, port, operation string, taken func(string) bool) string {
	for _, key := range r.keys {
		o := r.overrides[key]
		if o.Service != service || o.Port != port {
			continue
		}
		if o.Operation == operation || (o.Operation == "" && key == operation) {
			return key
		}
	}
	if taken != nil && taken(operation) {
		return QualifiedName(service, port, operation)
	}
	return operation
}

// QualifiedName joins a triple into service_port_operation.
func QualifiedName(service, port, operation string) string {
	return service + "_" + port + "_" + operation
}
