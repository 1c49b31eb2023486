// Package instrumentsim simulates instrument controllers speaking XML-RPC.
// It backs the mockinstrument command and tests.
package instrumentsim

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Fault is a canned XML-RPC fault reply.
type Fault struct {
	Code    int
	Message string
}

// Call is a recorded invocation.
type Call struct {
	Function string
	Params   []Param
}

// Param is a received parameter with its XML-RPC type.
type Param struct {
	Type  string
	Value string
}

// Controller answers XML-RPC calls with canned replies. A reply is a
// map[string]any (struct), a string, an int, a float64, a bool or a Fault.
type Controller struct {
	mu      sync.Mutex
	replies map[string]any
	delay   time.Duration
	calls   []Call
}

// NewController creates a controller with no replies.
func NewController() *Controller {
	return &Controller{replies: make(map[string]any)}
}

// Reply sets the reply returned for function.
func (c *Controller) Reply(function string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies[function] = v
}

// SetDelay makes every call wait d before answering.
func (c *Controller) SetDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delay = d
}

// Calls returns the invocations received so far.
func (c *Controller) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.calls)
}

type methodCall struct {
	MethodName string `xml:"methodName"`
	Params     []struct {
		Value rawValue `xml:"value"`
	} `xml:"params>param"`
}

type rawValue struct {
	String  *string `xml:"string"`
	Int     *string `xml:"int"`
	I4      *string `xml:"i4"`
	Double  *string `xml:"double"`
	Boolean *string `xml:"boolean"`
	Text    string  `xml:",chardata"`
}

func (v rawValue) param() Param {
	switch {
	case v.String != nil:
		return Param{Type: "string", Value: *v.String}
	case v.Int != nil:
		return Param{Type: "int", Value: *v.Int}
	case v.I4 != nil:
		return Param{Type: "int", Value: *v.I4}
	case v.Double != nil:
		return Param{Type: "double", Value: *v.Double}
	case v.Boolean != nil:
		return Param{Type: "boolean", Value: *v.Boolean}
	default:
		return Param{Type: "string", Value: v.Text}
	}
}

func (c *Controller) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var mc methodCall
	if err := xml.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&mc); err != nil {
		writeResponse(w, Fault{Code: -32700, Message: "parse error: " + err.Error()})
		return
	}

	call := Call{Function: mc.MethodName}
	for _, p := range mc.Params {
		call.Params = append(call.Params, p.Value.param())
	}

	c.mu.Lock()
	c.calls = append(c.calls, call)
	reply, ok := c.replies[mc.MethodName]
	delay := c.delay
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if !ok {
		reply = Fault{Code: -32601, Message: "unknown function " + mc.MethodName}
	}
	writeResponse(w, reply)
}

func writeResponse(w http.ResponseWriter, reply any) {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString("<methodResponse>")
	if f, ok := reply.(Fault); ok {
		b.WriteString("<fault>")
		writeValue(&b, map[string]any{"faultCode": f.Code, "faultString": f.Message})
		b.WriteString("</fault>")
	} else {
		b.WriteString("<params><param>")
		writeValue(&b, reply)
		b.WriteString("</param></params>")
	}
	b.WriteString("</methodResponse>")

	w.Header().Set("Content-Type", "text/xml")
	if _, err := io.WriteString(w, b.String()); err != nil {
		slog.Debug("writing xmlrpc response", "error", err)
	}
}

func writeValue(b *strings.Builder, v any) {
	b.WriteString("<value>")
	switch x := v.(type) {
	case string:
		b.WriteString("<string>")
		_ = xml.EscapeText(b, []byte(x))
		b.WriteString("</string>")
	case int:
		fmt.Fprintf(b, "<int>%d</int>", x)
	case int64:
		fmt.Fprintf(b, "<int>%d</int>", x)
	case float64:
		b.WriteString("<double>" + strconv.FormatFloat(x, 'f', -1, 64) + "</double>")
	case bool:
		if x {
			b.WriteString("<boolean>1</boolean>")
		} else {
			b.WriteString("<boolean>0</boolean>")
		}
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		b.WriteString("<struct>")
		for _, k := range keys {
			b.WriteString("<member><name>")
			_ = xml.EscapeText(b, []byte(k))
			b.WriteString("</name>")
			writeValue(b, x[k])
			b.WriteString("</member>")
		}
		b.WriteString("</struct>")
	case []any:
		b.WriteString("<array><data>")
		for _, item := range x {
			writeValue(b, item)
		}
		b.WriteString("</data></array>")
	default:
		b.WriteString("<string>")
		_ = xml.EscapeText(b, []byte(fmt.Sprint(x)))
		b.WriteString("</string>")
	}
	b.WriteString("</value>")
}
