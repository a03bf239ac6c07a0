package domain

import (
	"encoding/json"
	"fmt"
)

// Message roles used on the wire and in storage.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage is one turn of a request-time exchange. Exactly four shapes
// implement it; the orchestrator type-switches over them exhaustively.
type ChatMessage interface {
	Role() string
}

// SystemMessage carries framing/persona instructions.
type SystemMessage struct {
	Content string `json:"content"`
}

func (SystemMessage) Role() string { return RoleSystem }

// UserMessage carries caller input.
type UserMessage struct {
	Content string `json:"content"`
}

func (UserMessage) Role() string { return RoleUser }

// AssistantMessage is a model reply: either finalized content, or a batch of
// tool calls that must be resolved before the exchange can finish.
type AssistantMessage struct {
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

func (AssistantMessage) Role() string { return RoleAssistant }

// ToolMessage carries one tool result back to the model. ToolCallID must
// reference a tool call emitted by a preceding assistant message in the same
// exchange.
type ToolMessage struct {
	Content    string `json:"content"`
	ToolCallID string `json:"tool_call_id"`
}

func (ToolMessage) Role() string { return RoleTool }

// ToolCall is a function-invocation request emitted by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Function ToolFunction `json:"function"`
}

// ToolFunction names the tool and carries its arguments in emission order.
type ToolFunction struct {
	Name      string         `json:"name"`
	Arguments []ToolArgument `json:"arguments"`
}

// ToolArgument is one named argument. A slice rather than a map, so argument
// order survives the round trip.
type ToolArgument struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Exchange is the ordered ChatMessage sequence accumulated during one chat
// interaction. It marshals as a tagged envelope array keyed by role.
type Exchange []ChatMessage

// messageEnvelope is the tagged wire form of a ChatMessage.
type messageEnvelope struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// MarshalJSON encodes the exchange as an array of role-tagged envelopes.
func (e Exchange) MarshalJSON() ([]byte, error) {
	out := make([]messageEnvelope, 0, len(e))
	for _, m := range e {
		env := messageEnvelope{Role: m.Role()}
		switch v := m.(type) {
		case SystemMessage:
			env.Content = v.Content
		case UserMessage:
			env.Content = v.Content
		case AssistantMessage:
			env.Content = v.Content
			env.ToolCalls = v.ToolCalls
		case ToolMessage:
			env.Content = v.Content
			env.ToolCallID = v.ToolCallID
		default:
			return nil, fmt.Errorf("unknown chat message type %T", m)
		}
		out = append(out, env)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes an envelope array, rejecting unknown roles and tool
// messages without a tool_call_id.
func (e *Exchange) UnmarshalJSON(data []byte) error {
	var envs []messageEnvelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return err
	}
	msgs := make(Exchange, 0, len(envs))
	for i, env := range envs {
		switch env.Role {
		case RoleSystem:
			msgs = append(msgs, SystemMessage{Content: env.Content})
		case RoleUser:
			msgs = append(msgs, UserMessage{Content: env.Content})
		case RoleAssistant:
			msgs = append(msgs, AssistantMessage{Content: env.Content, ToolCalls: env.ToolCalls})
		case RoleTool:
			if env.ToolCallID == "" {
				return fmt.Errorf("message %d: tool message missing tool_call_id", i)
			}
			msgs = append(msgs, ToolMessage{Content: env.Content, ToolCallID: env.ToolCallID})
		default:
			return fmt.Errorf("message %d: unknown role %q", i, env.Role)
		}
	}
	*e = msgs
	return nil
}
