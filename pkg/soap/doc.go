// Package soap translates between object values and SOAP 1.1/1.2 XML.
//
// Objects are the values encoding/json produces: map[string]any, []any and
// scalars. Encoding writes RPC wrappers, document/literal elements and
// structured header elements; decoding turns an envelope into
// {"Header": ..., "Body": ...} with local names as keys.
//
// # Encoding
//
//	enc := soap.NewEncoder(doc, nil)
//	body := enc.ObjectToDocumentXML("GetUser", map[string]any{"id": "42"},
//	    "tns", "http://example.com/users", "")
//	envelope := soap.BuildEnvelope(soap.SOAP11, nil, body)
//
// Children follow the schema's declared sequence when the Schema knows the
// element, and alphabetical order otherwise. The "attributes" key of an object
// becomes XML attributes and "$value" becomes element text.
//
// # Decoding
//
//	obj, err := soap.XMLToObject(response)
//	payload := obj["Body"].(map[string]any)["GetUserResponse"]
//
// Repeated elements become []any, leaves become strings and xsi:nil elements
// become nil. Faults are reported by ParseFault.
package soap
