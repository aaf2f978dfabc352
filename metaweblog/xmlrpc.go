// Package metaweblog bridges the legacy MetaWeblog XML-RPC protocol onto the
// fanray content store, so desktop clients (Open Live Writer and friends) can
// publish without the web UI.
//
// One HTTP endpoint carries every method; the method name travels inside the
// XML envelope. This file is the wire codec: parsing methodCall envelopes and
// serializing methodResponse envelopes, including faults.
package metaweblog

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Fault is an XML-RPC failure response: a stable numeric code legacy clients
// branch on, plus a human-readable message.
type Fault struct {
	Code    int
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("metaweblog: fault %d: %s", f.Code, f.Message)
}

// Fault codes. The negative codes follow the XML-RPC spec; the positive ones
// follow the WordPress conventions MetaWeblog clients already understand.
const (
	CodeParseError         = -32700
	CodeUnsupportedMethod  = -32601
	CodeInvalidParams      = -32602
	CodeInvalidCredentials = 403
	CodeNotFound           = 404
	CodeDuplicateSlug      = 481
	CodeInternal           = 500
)

// Value is one typed XML-RPC value. Exactly one typed field is set; a bare
// <value>text</value> with no type element is a string per the XML-RPC spec,
// captured in Text.
type Value struct {
	Str      *string  `xml:"string"`
	Int      *int     `xml:"int"`
	I4       *int     `xml:"i4"`
	Boolean  *string  `xml:"boolean"`
	Double   *float64 `xml:"double"`
	DateTime *string  `xml:"dateTime.iso8601"`
	Base64   *string  `xml:"base64"`
	Struct   *Struct  `xml:"struct"`
	Array    *Array   `xml:"array"`
	Text     string   `xml:",chardata"`
}

// Struct is an XML-RPC <struct>: named members in document order.
type Struct struct {
	Members []Member `xml:"member"`
}

// Member is one name/value pair inside a struct.
type Member struct {
	Name  string `xml:"name"`
	Value Value  `xml:"value"`
}

// Array is an XML-RPC <array>.
type Array struct {
	Values []Value `xml:"data>value"`
}

type param struct {
	Value Value `xml:"value"`
}

type methodCall struct {
	XMLName    xml.Name `xml:"methodCall"`
	MethodName string   `xml:"methodName"`
	Params     []param  `xml:"params>param"`
}

type responseParams struct {
	Params []param `xml:"param"`
}

type faultBody struct {
	Value Value `xml:"value"`
}

type methodResponse struct {
	XMLName xml.Name        `xml:"methodResponse"`
	Params  *responseParams `xml:"params,omitempty"`
	Fault   *faultBody      `xml:"fault,omitempty"`
}

// ParseCall reads one methodCall envelope. A body that is not well-formed
// XML-RPC yields a *Fault with CodeParseError.
func ParseCall(r io.Reader) (method string, args []Value, err error) {
	var call methodCall
	if err := xml.NewDecoder(r).Decode(&call); err != nil {
		return "", nil, &Fault{Code: CodeParseError, Message: "parse error: not a well-formed method call"}
	}
	if strings.TrimSpace(call.MethodName) == "" {
		return "", nil, &Fault{Code: CodeParseError, Message: "parse error: missing method name"}
	}
	args = make([]Value, len(call.Params))
	for i, p := range call.Params {
		args[i] = p.Value
	}
	return strings.TrimSpace(call.MethodName), args, nil
}

// WriteResponse serializes a single-value success envelope.
func WriteResponse(w io.Writer, v Value) error {
	resp := methodResponse{Params: &responseParams{Params: []param{{Value: v}}}}
	return writeEnvelope(w, resp)
}

// WriteFault serializes a fault envelope.
func WriteFault(w io.Writer, f *Fault) error {
	resp := methodResponse{Fault: &faultBody{Value: NewStruct(
		Member{Name: "faultCode", Value: NewInt(f.Code)},
		Member{Name: "faultString", Value: NewString(f.Message)},
	)}}
	return writeEnvelope(w, resp)
}

func writeEnvelope(w io.Writer, resp methodResponse) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	return xml.NewEncoder(w).Encode(resp)
}

// --- Constructors ---

// NewString wraps s as an explicit <string> value.
func NewString(s string) Value {
	return Value{Str: &s}
}

// NewInt wraps n as an <int> value.
func NewInt(n int) Value {
	return Value{Int: &n}
}

// NewBool wraps b as a <boolean> value, encoded "1"/"0" as legacy clients expect.
func NewBool(b bool) Value {
	s := "0"
	if b {
		s = "1"
	}
	return Value{Boolean: &s}
}

// NewDateTime wraps t in the compact ISO-8601 form XML-RPC uses.
func NewDateTime(t time.Time) Value {
	s := t.Format(iso8601)
	return Value{DateTime: &s}
}

// NewStruct builds a <struct> value from members.
func NewStruct(members ...Member) Value {
	return Value{Struct: &Struct{Members: members}}
}

// NewArray builds an <array> value.
func NewArray(values ...Value) Value {
	return Value{Array: &Array{Values: values}}
}

const iso8601 = "20060102T15:04:05"

// --- Accessors ---

// AsString returns the value as a string. Bare text counts as a string;
// typed non-string values do not.
func (v Value) AsString() (string, bool) {
	switch {
	case v.Str != nil:
		return *v.Str, true
	case v.Int != nil, v.I4 != nil, v.Boolean != nil, v.Double != nil,
		v.DateTime != nil, v.Base64 != nil, v.Struct != nil, v.Array != nil:
		return "", false
	}
	return strings.TrimSpace(v.Text), true
}

// AsInt returns the value as an int. String-typed digits are accepted since
// several legacy clients send post ids as strings.
func (v Value) AsInt() (int, bool) {
	switch {
	case v.Int != nil:
		return *v.Int, true
	case v.I4 != nil:
		return *v.I4, true
	}
	s, ok := v.AsString()
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// AsBool returns the value as a bool. XML-RPC encodes booleans as 0/1 but
// some clients send true/false.
func (v Value) AsBool() (bool, bool) {
	if v.Boolean == nil {
		return false, false
	}
	switch strings.TrimSpace(*v.Boolean) {
	case "1", "true":
		return true, true
	case "0", "false":
		return false, true
	}
	return false, false
}

// AsTime parses a dateTime.iso8601 value, accepting the compact form and the
// RFC 3339 variants clients send in practice.
func (v Value) AsTime() (time.Time, bool) {
	if v.DateTime == nil {
		return time.Time{}, false
	}
	s := strings.TrimSpace(*v.DateTime)
	for _, layout := range []string{iso8601, "2006-01-02T15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// AsStruct returns the struct members keyed by name.
func (v Value) AsStruct() (map[string]Value, bool) {
	if v.Struct == nil {
		return nil, false
	}
	m := make(map[string]Value, len(v.Struct.Members))
	for _, member := range v.Struct.Members {
		m[member.Name] = member.Value
	}
	return m, true
}

// AsArray returns the array elements.
func (v Value) AsArray() ([]Value, bool) {
	if v.Array == nil {
		return nil, false
	}
	return v.Array.Values, true
}

// AsBase64 decodes a base64 value. Whitespace is tolerated; clients wrap
// long payloads across lines.
func (v Value) AsBase64() ([]byte, bool) {
	if v.Base64 == nil {
		return nil, false
	}
	compact := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
			return -1
		}
		return r
	}, *v.Base64)
	b, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return nil, false
	}
	return b, true
}
