// Package llm adapts model providers to the single-step contract used by the
// orchestrator: given the transcript and the capability catalog, return either
// final text or one capability call.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/morezero/member-query/pkg/catalog"
	"github.com/morezero/member-query/pkg/conversation"
)

// ErrMalformedResponse matches every *MalformedError via errors.Is.
var ErrMalformedResponse = errors.New("malformed model response")

// MalformedError reports a provider response that is neither final text nor a
// well-formed capability call.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string { return "malformed model response: " + e.Reason }

// Is matches ErrMalformedResponse.
func (e *MalformedError) Is(target error) bool { return target == ErrMalformedResponse }

// Call is a model request to invoke a capability.
type Call struct {
	ID        string
	Name      string
	Arguments map[string]interface{}
}

// Response holds exactly one of Text or Call.
type Response struct {
	Text string
	Call *Call
}

// IsCall reports whether the model requested a capability.
func (r *Response) IsCall() bool { return r != nil && r.Call != nil }

// Client sends one model round trip.
type Client interface {
	Complete(ctx context.Context, turns []conversation.Turn, tools []catalog.Descriptor) (*Response, error)
}

// ParseArguments decodes raw call arguments. Empty input is an empty object;
// anything other than a JSON object is a MalformedError.
func ParseArguments(raw []byte) (map[string]interface{}, error) {
	if strings.TrimSpace(string(raw)) == "" {
		return map[string]interface{}{}, nil
	}
	var args map[string]interface{}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &MalformedError{Reason: fmt.Sprintf("arguments are not a JSON object: %v", err)}
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	return args, nil
}

// newResponse normalizes provider output: a call wins over accompanying text,
// and an empty response is malformed.
func newResponse(text string, call *Call) (*Response, error) {
	if call != nil {
		if call.Name == "" {
			return nil, &MalformedError{Reason: "capability call without a name"}
		}
		return &Response{Call: call}, nil
	}
	if strings.TrimSpace(text) == "" {
		return nil, &MalformedError{Reason: "response has neither text nor a capability call"}
	}
	return &Response{Text: text}, nil
}

// requiredNames returns the "required" list of a reflected parameter schema.
func requiredNames(params map[string]interface{}) []string {
	switch v := params["required"].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}
