// Package conversation holds the ordered transcript of one orchestration run.
package conversation

import (
	"encoding/json"
	"fmt"
)

// Kind tags the variant of a Turn.
type Kind int

const (
	KindSystem Kind = iota
	KindUser
	KindAssistantText
	KindAssistantCallRequest
	KindCapabilityResult
)

var kindNames = map[Kind]string{
	KindSystem:               "system",
	KindUser:                 "user",
	KindAssistantText:        "assistant_text",
	KindAssistantCallRequest: "assistant_call_request",
	KindCapabilityResult:     "capability_result",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("unknown turn kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown turn kind %q", string(b))
}

// Turn is one entry of a transcript. Which fields are set depends on Kind:
// System, User and AssistantText carry Text; AssistantCallRequest carries
// CallID, Capability and Arguments; CapabilityResult carries CallID,
// Capability and Result.
type Turn struct {
	Kind       Kind                   `json:"kind"`
	Text       string                 `json:"text,omitempty"`
	CallID     string                 `json:"callId,omitempty"`
	Capability string                 `json:"capability,omitempty"`
	Arguments  map[string]interface{} `json:"arguments,omitempty"`
	Result     json.RawMessage        `json:"result,omitempty"`
}

// System returns a system instruction turn.
func System(text string) Turn { return Turn{Kind: KindSystem, Text: text} }

// User returns a user question turn.
func User(text string) Turn { return Turn{Kind: KindUser, Text: text} }

// AssistantText returns a final model answer turn.
func AssistantText(text string) Turn { return Turn{Kind: KindAssistantText, Text: text} }

// CallRequest returns a model request to invoke capability with args.
func CallRequest(callID, capability string, args map[string]interface{}) Turn {
	if args == nil {
		args = map[string]interface{}{}
	}
	return Turn{Kind: KindAssistantCallRequest, CallID: callID, Capability: capability, Arguments: args}
}

// CapabilityResult returns the serialized result of the call identified by callID.
func CapabilityResult(callID, capability string, result json.RawMessage) Turn {
	return Turn{Kind: KindCapabilityResult, CallID: callID, Capability: capability, Result: result}
}

// ArgumentsJSON returns the call arguments encoded as a JSON object.
func (t Turn) ArgumentsJSON() string {
	if len(t.Arguments) == 0 {
		return "{}"
	}
	b, err := json.Marshal(t.Arguments)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Content returns the text a model sees for this turn.
func (t Turn) Content() string {
	switch t.Kind {
	case KindAssistantCallRequest:
		return t.Capability + t.ArgumentsJSON()
	case KindCapabilityResult:
		return string(t.Result)
	default:
		return t.Text
	}
}
