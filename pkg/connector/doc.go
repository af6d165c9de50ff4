// Package connector exposes the operations of a SOAP service, described by a
// WSDL 1.1 capability document, as a table of callable bindings.
//
// A Connector fetches and parses the document, binds the configured
// credential to its transport client and builds a Table. Each
// OperationBinding in the table encodes object input to XML, posts the
// envelope and decodes the response payload back to objects:
//
//	c := connector.New(settings, connector.WithLogger(logger))
//	table, err := c.Connect(ctx)
//	if err != nil {
//		return err
//	}
//	out, err := table.Call(ctx, "GetUser", map[string]any{"id": "42"})
//
// Connect callbacks always run on a goroutine other than the caller's, and
// concurrent connects share one in-flight attempt.
package connector
