package soap

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/soapconnect/pkg/wsdl"
)

type stubSchema struct {
	types     map[string][]wsdl.Field
	elements  map[string][]wsdl.Field
	qualified bool
}

func (s stubSchema) TypeFields(typ string) []wsdl.Field { return s.types[typ] }

func (s stubSchema) ElementFields(_, name string) ([]wsdl.Field, bool) {
	f, ok := s.elements[name]
	return f, ok && s.qualified
}

func TestEncoder_RPC(t *testing.T) {
	enc := NewEncoder(nil, nil)
	parts := []wsdl.Part{{Name: "b", Type: "int"}, {Name: "a", Type: "int"}}

	got := enc.ObjectToRPCXML("Add", map[string]any{"a": 1, "b": 2}, "tns", "urn:calc", parts)
	assert.Equal(t, `<tns:Add xmlns:tns="urn:calc"><b>2</b><a>1</a></tns:Add>`, got,
		"parts are written in declaration order and unqualified")
}

func TestEncoder_RPCStringIsInnerXML(t *testing.T) {
	enc := NewEncoder(nil, nil)
	got := enc.ObjectToRPCXML("Add", "<a>1</a><b>2</b>", "tns", "urn:calc", nil)
	assert.Equal(t, `<tns:Add xmlns:tns="urn:calc"><a>1</a><b>2</b></tns:Add>`, got)
}

func TestEncoder_DocumentFollowsSchemaOrder(t *testing.T) {
	schema := stubSchema{
		elements: map[string][]wsdl.Field{
			"CreateUser": {
				{Name: "name"},
				{Name: "address", Children: []wsdl.Field{{Name: "street"}, {Name: "city"}}},
				{Name: "email"},
			},
		},
		qualified: true,
	}
	enc := NewEncoder(schema, nil)

	got := enc.ObjectToDocumentXML("CreateUser", map[string]any{
		"email":   "a@example.com",
		"zzExtra": "x",
		"address": map[string]any{"city": "Oslo", "street": "Main"},
		"name":    "Ada",
	}, "tns", "urn:users", "")

	assert.Equal(t, `<tns:CreateUser xmlns:tns="urn:users">`+
		`<tns:name>Ada</tns:name>`+
		`<tns:address><tns:street>Main</tns:street><tns:city>Oslo</tns:city></tns:address>`+
		`<tns:email>a@example.com</tns:email>`+
		`<tns:zzExtra>x</tns:zzExtra>`+
		`</tns:CreateUser>`, got)
}

func TestEncoder_DocumentTypeOverridesElement(t *testing.T) {
	schema := stubSchema{types: map[string][]wsdl.Field{"Req": {{Name: "limit"}, {Name: "offset"}}}}
	enc := NewEncoder(schema, nil)

	got := enc.ObjectToDocumentXML("List", map[string]any{"offset": 0, "limit": 10}, "tns", "urn:l", "Req")
	assert.Equal(t, `<tns:List xmlns:tns="urn:l"><limit>10</limit><offset>0</offset></tns:List>`, got)
}

func TestEncoder_IgnoredNamespaceUsesDefaultNamespace(t *testing.T) {
	enc := NewEncoder(nil, []string{"tns"})
	got := enc.ObjectToDocumentXML("Foo", map[string]any{"x": "1"}, "tns", "urn:f", "")
	assert.Equal(t, `<Foo xmlns="urn:f"><x xmlns="">1</x></Foo>`, got)
}

func TestEncoder_AttributesSlicesNilAndEscaping(t *testing.T) {
	enc := NewEncoder(nil, nil)
	got := enc.ObjectToDocumentXML("Order", map[string]any{
		AttributesKey: map[string]any{"id": "7"},
		"item":        []any{"a&b", "<c>"},
		"note":        nil,
		"price":       map[string]any{AttributesKey: map[string]any{"currency": "EUR"}, ValueKey: 9.5},
	}, "o", "urn:o", "")

	assert.Equal(t, `<o:Order xmlns:o="urn:o" id="7">`+
		`<item>a&amp;b</item><item>&lt;c&gt;</item>`+
		`<price currency="EUR">9.5</price>`+
		`</o:Order>`, got)
}

func TestEncoder_NumbersStayDecimal(t *testing.T) {
	enc := NewEncoder(nil, nil)
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"million as float64", float64(1000000), "1000000"},
		{"eight digits as float64", float64(12345678), "12345678"},
		{"fraction", 2.5, "2.5"},
		{"small fraction", 0.0000125, "0.0000125"},
		{"float32", float32(1.5), "1.5"},
		{"json.Number keeps literal", json.Number("12345678901234567890"), "12345678901234567890"},
		{"int", 42, "42"},
		{"bool", true, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := enc.ObjectToDocumentXML("Foo", map[string]any{"count": tt.value}, "tns", "urn:foo", "")
			assert.Equal(t, `<tns:Foo xmlns:tns="urn:foo"><count>`+tt.want+`</count></tns:Foo>`, got)
		})
	}

	got := enc.ObjectToDocumentXML("Foo", map[string]any{
		AttributesKey: map[string]any{"size": float64(1000000)},
	}, "tns", "urn:foo", "")
	assert.Equal(t, `<tns:Foo xmlns:tns="urn:foo" size="1000000"></tns:Foo>`, got)
}

func TestEncoder_DropsInvalidAttributeNames(t *testing.T) {
	enc := NewEncoder(nil, nil)
	got := enc.ObjectToDocumentXML("Order", map[string]any{
		AttributesKey: map[string]any{
			`id"><inject x="`: "1",
			"a b":             "2",
			"1st":             "3",
			"":                "4",
			"xsi:type":        "tns:Order",
			"data-id":         "5",
			"ünit":            "kg",
		},
	}, "o", "urn:o", "")

	assert.Equal(t, `<o:Order xmlns:o="urn:o" data-id="5" xsi:type="tns:Order" ünit="kg"></o:Order>`, got)
}

func TestEncoder_ObjectToXML(t *testing.T) {
	enc := NewEncoder(nil, nil)

	got := enc.ObjectToXML(map[string]any{"token": "abc"}, "Auth", "h", "urn:h")
	assert.Equal(t, `<h:Auth xmlns:h="urn:h"><h:token>abc</h:token></h:Auth>`, got)

	got = enc.ObjectToXML(map[string]any{"token": "abc"}, "Auth", "", "")
	assert.Equal(t, `<Auth><token>abc</token></Auth>`, got)
}

func TestXMLToObject(t *testing.T) {
	xml := []byte(`<?xml version="1.0"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"
  xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
  <soap:Header><h:Session xmlns:h="urn:h">s-1</h:Session></soap:Header>
  <soap:Body>
    <ns:ListUsersResponse xmlns:ns="urn:users">
      <ns:user id="1"><ns:name>Ada</ns:name></ns:user>
      <ns:user id="2"><ns:name>Bob</ns:name><ns:email xsi:nil="true"/></ns:user>
      <ns:total unit="rows">2</ns:total>
    </ns:ListUsersResponse>
  </soap:Body>
</soap:Envelope>`)

	obj, err := XMLToObject(xml)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"Session": "s-1"}, obj["Header"])

	body := obj["Body"].(map[string]any)
	resp := body["ListUsersResponse"].(map[string]any)
	users := resp["user"].([]any)
	require.Len(t, users, 2)

	first := users[0].(map[string]any)
	assert.Equal(t, "Ada", first["name"])
	assert.Equal(t, map[string]any{"id": "1"}, first[AttributesKey])

	second := users[1].(map[string]any)
	assert.Contains(t, second, "email")
	assert.Nil(t, second["email"])

	assert.Equal(t, map[string]any{AttributesKey: map[string]any{"unit": "rows"}, ValueKey: "2"}, resp["total"])
}

func TestXMLToObject_BareElementAndErrors(t *testing.T) {
	obj, err := XMLToObject([]byte(`<GetFoo><x>1</x></GetFoo>`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"GetFoo": map[string]any{"x": "1"}}, obj["Body"])

	_, err = XMLToObject([]byte(`<broken`))
	assert.ErrorIs(t, err, ErrInvalidXML)
}

func TestEnvelope_BuildAndParse(t *testing.T) {
	for _, version := range []SOAPVersion{SOAP11, SOAP12} {
		t.Run(string(version), func(t *testing.T) {
			data := BuildEnvelope(version, []string{`<h:Trace xmlns:h="urn:h">1</h:Trace>`}, `<Ping/>`)
			doc, got, err := ParseEnvelope(data)
			require.NoError(t, err)
			assert.Equal(t, version, got)
			require.NotNil(t, FindHeader(doc))
			require.NotNil(t, FindBody(doc))
			assert.Equal(t, "Ping", FindBody(doc).ChildElements()[0].Tag)
		})
	}

	_, _, err := ParseEnvelope([]byte(`<NotEnvelope/>`))
	assert.ErrorIs(t, err, ErrNotAnEnvelope)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, SOAP11ContentType, ContentType(SOAP11, "urn:Add"))
	assert.Equal(t, SOAP12ContentType+`; action="urn:Add"`, ContentType(SOAP12, "urn:Add"))
	assert.Equal(t, SOAP12ContentType, ContentType(SOAP12, ""))
}

func TestFault_RoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		fault    *Fault
		wantCode string
	}{
		{"soap 1.1", &Fault{Version: SOAP11, Code: "soap:Client", Reason: "bad <input>", Detail: "<e>1</e>"}, "soap:Client"},
		{"soap 1.2 maps Server", &Fault{Version: SOAP12, Code: "Server", Reason: "boom"}, "soap:Receiver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, _, err := ParseEnvelope(BuildFault(tt.fault))
			require.NoError(t, err)

			f := ParseFault(doc)
			require.NotNil(t, f)
			assert.Equal(t, tt.fault.Version, f.Version)
			assert.Equal(t, tt.wantCode, f.Code)
			assert.Equal(t, tt.fault.Reason, f.Reason)
			assert.Equal(t, tt.fault.Detail, f.Detail)
			assert.Contains(t, f.Error(), tt.fault.Reason)
		})
	}
}

func TestParseFault_RegularBody(t *testing.T) {
	doc, _, err := ParseEnvelope(BuildEnvelope(SOAP11, nil, `<AddResponse><result>3</result></AddResponse>`))
	require.NoError(t, err)
	assert.Nil(t, ParseFault(doc))
}

func TestPrettyPrint(t *testing.T) {
	out := PrettyPrint([]byte(`<a><b>1</b></a>`))
	assert.Contains(t, out, "\n  <b>1</b>")
	assert.Equal(t, "not xml <", PrettyPrint([]byte("not xml <")))
}
