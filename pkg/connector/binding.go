package connector

import (
	"context"

	"github.com/getmockd/soapconnect/pkg/soap"
	"github.com/getmockd/soapconnect/pkg/wsdl"
)

// Remoting describes a binding's accepted and returned shapes for hosts that
// dispatch calls themselves. It does not affect encoding.
type Remoting struct {
	Shared  bool          `json:"shared"`
	Accepts []RemotingArg `json:"accepts"`
	Returns RemotingArg   `json:"returns"`
}

// RemotingArg is one accepted or returned argument.
type RemotingArg struct {
	Arg      string        `json:"arg"`
	Type     string        `json:"type"`
	Required bool          `json:"required,omitempty"`
	Root     bool          `json:"root,omitempty"`
	HTTP     *RemotingHTTP `json:"http,omitempty"`
}

// RemotingHTTP tells the host where an argument comes from.
type RemotingHTTP struct {
	Source string `json:"source"`
}

func defaultRemoting() *Remoting {
	return &Remoting{
		Shared: true,
		Accepts: []RemotingArg{
			{Arg: "input", Type: "object", Required: true, HTTP: &RemotingHTTP{Source: "body"}},
		},
		Returns: RemotingArg{Arg: "output", Type: "object", Root: true},
	}
}

// OperationBinding is one exposed, callable operation. Bindings are created
// while a table is built and never change afterwards.
type OperationBinding struct {
	Name      string
	Service   string
	Port      string
	Operation *wsdl.Operation
	Endpoint  string
	Version   soap.SOAPVersion
	// Remoting is set when remoting metadata is enabled.
	Remoting *Remoting

	table  *Table
	invoke func(ctx context.Context, body string) ([]byte, error)
}

// Call encodes input, sends it to the operation's endpoint and decodes the
// response payload.
func (b *OperationBinding) Call(ctx context.Context, input any) (any, error) {
	body, err := b.JSONToXML(input)
	if err != nil {
		return nil, err
	}
	raw, err := b.invoke(ctx, body)
	if err != nil {
		return nil, err
	}
	return b.XMLToJSON(string(raw))
}

// JSONToXML encodes v as this operation's request body.
func (b *OperationBinding) JSONToXML(v any) (string, error) {
	return b.table.JSONToXML(b.Operation, v)
}

// XMLToJSON extracts this operation's response payload from xml.
func (b *OperationBinding) XMLToJSON(xml string) (any, error) {
	return b.table.XMLToJSON(b.Operation, xml)
}
