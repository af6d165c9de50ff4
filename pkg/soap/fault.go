package soap

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Fault is a SOAP Fault returned by a remote service.
type Fault struct {
	Version SOAPVersion
	Code    string
	Reason  string
	Actor   string
	// Detail is the raw inner XML of the detail element.
	Detail string
}

func (f *Fault) Error() string {
	if f.Code == "" {
		return "soap fault: " + f.Reason
	}
	return fmt.Sprintf("soap fault %s: %s", f.Code, f.Reason)
}

// ParseFault returns the Fault carried in an envelope body, or nil when the body
// holds a regular response.
func ParseFault(doc *etree.Document) *Fault {
	body := FindBody(doc)
	if body == nil {
		return nil
	}
	var faultEl *etree.Element
	for _, child := range body.ChildElements() {
		if child.Tag == "Fault" {
			faultEl = child
			break
		}
	}
	if faultEl == nil {
		return nil
	}

	version := DetectVersion(doc)
	f := &Fault{Version: version}
	if version == SOAP12 {
		f.Code = childText(faultEl, "Code", "Value")
		f.Reason = childText(faultEl, "Reason", "Text")
		f.Actor = childText(faultEl, "Role")
		f.Detail = innerXML(child(faultEl, "Detail"))
		return f
	}
	f.Code = childText(faultEl, "faultcode")
	f.Reason = childText(faultEl, "faultstring")
	f.Actor = childText(faultEl, "faultactor")
	f.Detail = innerXML(child(faultEl, "detail"))
	return f
}

func child(el *etree.Element, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

func childText(el *etree.Element, path ...string) string {
	for _, tag := range path {
		el = child(el, tag)
	}
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

func innerXML(el *etree.Element) string {
	if el == nil {
		return ""
	}
	doc := etree.NewDocument()
	for _, c := range el.ChildElements() {
		doc.AddChild(c.Copy())
	}
	s, err := doc.WriteToString()
	if err != nil {
		return ""
	}
	return s
}

// BuildFault renders a fault as a complete envelope. SOAP 1.1 codes Client and
// Server map to Sender and Receiver under SOAP 1.2.
func BuildFault(f *Fault) []byte {
	var body strings.Builder
	if f.Version == SOAP12 {
		code := f.Code
		switch code {
		case "soap:Client", "Client":
			code = "soap:Sender"
		case "soap:Server", "Server":
			code = "soap:Receiver"
		}
		body.WriteString(`<soap:Fault>`)
		body.WriteString(`<soap:Code><soap:Value>` + escapeXML(code) + `</soap:Value></soap:Code>`)
		body.WriteString(`<soap:Reason><soap:Text xml:lang="en">` + escapeXML(f.Reason) + `</soap:Text></soap:Reason>`)
		if f.Detail != "" {
			body.WriteString(`<soap:Detail>` + f.Detail + `</soap:Detail>`)
		}
		body.WriteString(`</soap:Fault>`)
		return BuildEnvelope(SOAP12, nil, body.String())
	}

	body.WriteString(`<soap:Fault>`)
	body.WriteString(`<faultcode>` + escapeXML(f.Code) + `</faultcode>`)
	body.WriteString(`<faultstring>` + escapeXML(f.Reason) + `</faultstring>`)
	if f.Detail != "" {
		body.WriteString(`<detail>` + f.Detail + `</detail>`)
	}
	body.WriteString(`</soap:Fault>`)
	return BuildEnvelope(SOAP11, nil, body.String())
}
