package document

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"observe/internal/domain"
)

// Param types accepted in execute documents.
const (
	ParamString  = "string"
	ParamInt     = "int"
	ParamDouble  = "double"
	ParamBoolean = "boolean"
)

// ExecuteDocument describes a function call and, in responses, its result.
// The root element is named after the instrument kind, e.g. telescope_execute.
type ExecuteDocument struct {
	XMLName      xml.Name
	FunctionName string  `xml:"function_name"`
	Params       []Param `xml:"function_params>param"`
	Result       string  `xml:"result"`
}

// Param is one positional argument. An empty Type means string.
type Param struct {
	Type  string `xml:"type,attr,omitempty"`
	Value string `xml:",chardata"`
}

// Native converts the parameter into the value sent over the wire.
func (p Param) Native() (any, error) {
	v := strings.TrimSpace(p.Value)
	switch p.Type {
	case "", ParamString:
		return p.Value, nil
	case ParamInt, "i4":
		return strconv.Atoi(v)
	case ParamDouble:
		return strconv.ParseFloat(v, 64)
	case ParamBoolean:
		return strconv.ParseBool(v)
	default:
		return nil, fmt.Errorf("unknown parameter type %q", p.Type)
	}
}

// Values converts every parameter with Native.
func Values(params []Param) ([]any, error) {
	out := make([]any, 0, len(params))
	for i, p := range params {
		v, err := p.Native()
		if err != nil {
			return nil, fmt.Errorf("%w: parameter %d: %v", domain.ErrBadRequest, i+1, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseExecute reads an execute request. The root element name is not checked.
func ParseExecute(r io.Reader) (ExecuteDocument, error) {
	var doc ExecuteDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return ExecuteDocument{}, fmt.Errorf("%w: malformed execute document: %w", domain.ErrBadRequest, err)
	}
	doc.FunctionName = strings.TrimSpace(doc.FunctionName)
	if doc.FunctionName == "" {
		return ExecuteDocument{}, fmt.Errorf("%w: function_name is required", domain.ErrBadRequest)
	}
	return doc, nil
}

// NewExecute builds the response document for a completed call.
func (k Kind) NewExecute(function string, params []Param, result string) ExecuteDocument {
	return ExecuteDocument{
		XMLName:      xml.Name{Local: k.ExecuteRoot},
		FunctionName: function,
		Params:       params,
		Result:       result,
	}
}
