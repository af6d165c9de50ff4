package wsdl

import (
	"github.com/beevik/etree"
)

// maxTypeDepth bounds complex type expansion for recursive schemas.
const maxTypeDepth = 8

type schemaSet struct {
	schemas []*schemaDef
}

type schemaDef struct {
	targetNamespace string
	qualified       bool
	elements        map[string]*etree.Element
	complexTypes    map[string]*etree.Element
}

func parseSchemas(root *etree.Element) *schemaSet {
	set := &schemaSet{}
	for _, typesEl := range findElements(root, "types") {
		for _, schemaEl := range findElements(typesEl, "schema") {
			set.schemas = append(set.schemas, parseSchema(schemaEl))
		}
	}
	return set
}

func parseSchema(el *etree.Element) *schemaDef {
	s := &schemaDef{
		targetNamespace: el.SelectAttrValue("targetNamespace", ""),
		qualified:       el.SelectAttrValue("elementFormDefault", "unqualified") == "qualified",
		elements:        make(map[string]*etree.Element),
		complexTypes:    make(map[string]*etree.Element),
	}
	for _, e := range findElements(el, "element") {
		if name := e.SelectAttrValue("name", ""); name != "" {
			s.elements[name] = e
		}
	}
	for _, ct := range findElements(el, "complexType") {
		if name := ct.SelectAttrValue("name", ""); name != "" {
			s.complexTypes[name] = ct
		}
	}
	return s
}

// element finds a top-level element, preferring the schema whose target
// namespace matches ns.
func (s *schemaSet) element(ns, name string) (*schemaDef, *etree.Element) {
	for _, sc := range s.schemas {
		if sc.targetNamespace == ns {
			if e, ok := sc.elements[name]; ok {
				return sc, e
			}
		}
	}
	for _, sc := range s.schemas {
		if e, ok := sc.elements[name]; ok {
			return sc, e
		}
	}
	return nil, nil
}

func (s *schemaSet) complexType(name string) *etree.Element {
	for _, sc := range s.schemas {
		if ct, ok := sc.complexTypes[name]; ok {
			return ct
		}
	}
	return nil
}

// elementFields returns the content model of a top-level or nested element.
func (s *schemaSet) elementFields(el *etree.Element, depth int) []Field {
	if depth > maxTypeDepth {
		return nil
	}
	if ct := findElement(el, "complexType"); ct != nil {
		return s.complexTypeFields(ct, depth)
	}
	if typ := stripPrefix(el.SelectAttrValue("type", "")); typ != "" {
		if ct := s.complexType(typ); ct != nil {
			return s.complexTypeFields(ct, depth)
		}
	}
	return nil
}

func (s *schemaSet) complexTypeFields(ct *etree.Element, depth int) []Field {
	var fields []Field

	if cc := findElement(ct, "complexContent"); cc != nil {
		if ext := findElement(cc, "extension"); ext != nil {
			if base := s.complexType(stripPrefix(ext.SelectAttrValue("base", ""))); base != nil {
				fields = append(fields, s.complexTypeFields(base, depth+1)...)
			}
			ct = ext
		}
	}

	group := findElement(ct, "sequence")
	if group == nil {
		group = findElement(ct, "all")
	}
	if group == nil {
		group = findElement(ct, "choice")
	}
	if group == nil {
		return fields
	}

	for _, elem := range findElements(group, "element") {
		name := elem.SelectAttrValue("name", "")
		if name == "" {
			name = stripPrefix(elem.SelectAttrValue("ref", ""))
		}
		f := Field{
			Name:     name,
			Type:     stripPrefix(elem.SelectAttrValue("type", "")),
			Optional: elem.SelectAttrValue("minOccurs", "1") == "0" || elem.SelectAttrValue("nillable", "") == "true",
			Repeated: isRepeated(elem.SelectAttrValue("maxOccurs", "1")),
		}
		f.Children = s.elementFields(elem, depth+1)
		fields = append(fields, f)
	}
	return fields
}

func isRepeated(maxOccurs string) bool {
	return maxOccurs != "1" && maxOccurs != "0" && maxOccurs != ""
}
