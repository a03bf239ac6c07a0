package llm

import (
	"bytes"
	"encoding/json"
	"strings"

	"poetloop/domain"
)

// fromExchange converts the domain exchange into wire messages.
func fromExchange(exchange domain.Exchange) []ChatMessage {
	out := make([]ChatMessage, 0, len(exchange))
	for _, m := range exchange {
		msg := ChatMessage{Role: m.Role()}
		switch v := m.(type) {
		case domain.SystemMessage:
			msg.Content = v.Content
		case domain.UserMessage:
			msg.Content = v.Content
		case domain.AssistantMessage:
			msg.Content = v.Content
			for _, call := range v.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, ToolCall{
					ID:   call.ID,
					Type: "function",
					Function: ToolCallFunction{
						Name:      call.Function.Name,
						Arguments: encodeArguments(call.Function.Arguments),
					},
				})
			}
		case domain.ToolMessage:
			msg.Content = v.Content
			msg.ToolCallID = v.ToolCallID
		}
		out = append(out, msg)
	}
	return out
}

// toAssistantMessage converts a wire assistant message into the domain shape.
func toAssistantMessage(msg *ChatMessage) domain.AssistantMessage {
	out := domain.AssistantMessage{Content: msg.Content}
	for _, call := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, domain.ToolCall{
			ID: call.ID,
			Function: domain.ToolFunction{
				Name:      call.Function.Name,
				Arguments: decodeArguments(call.Function.Arguments),
			},
		})
	}
	return out
}

// encodeArguments renders ordered arguments as a JSON object string,
// preserving key order.
func encodeArguments(args []domain.ToolArgument) string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, arg := range args {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(arg.Name)
		val, _ := json.Marshal(arg.Value)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.String()
}

// decodeArguments parses a JSON object string into ordered arguments. A
// streaming decoder is used so key order survives; non-string values keep
// their JSON text. Malformed input yields an empty argument list rather than
// an error: the tool executor reports bad arguments in its own reply.
func decodeArguments(raw string) []domain.ToolArgument {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}

	var args []domain.ToolArgument
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return args
		}
		key, ok := keyTok.(string)
		if !ok {
			return args
		}
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return args
		}
		var str string
		if err := json.Unmarshal(val, &str); err != nil {
			str = string(val)
		}
		args = append(args, domain.ToolArgument{Name: key, Value: str})
	}
	return args
}
