package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"poetloop/domain"
	"poetloop/policy"
	"poetloop/tools"
)

// scriptedGenerator replays a fixed sequence of replies and records every
// exchange it was sent.
type scriptedGenerator struct {
	replies   []domain.AssistantMessage
	exchanges []domain.Exchange
}

func (g *scriptedGenerator) Generate(ctx context.Context, exchange domain.Exchange) (domain.AssistantMessage, error) {
	g.exchanges = append(g.exchanges, append(domain.Exchange{}, exchange...))
	if len(g.exchanges) > len(g.replies) {
		return domain.AssistantMessage{}, fmt.Errorf("no scripted reply for call %d", len(g.exchanges))
	}
	return g.replies[len(g.exchanges)-1], nil
}

func newTestRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	if err := r.Register("echo.upper", func(ctx context.Context, args []domain.ToolArgument) (string, error) {
		for _, a := range args {
			if a.Name == "text" {
				return strings.ToUpper(a.Value), nil
			}
		}
		return "", fmt.Errorf("missing text")
	}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register("always.fails", func(ctx context.Context, args []domain.ToolArgument) (string, error) {
		return "", fmt.Errorf("broken")
	}); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRunDirectReply(t *testing.T) {
	gen := &scriptedGenerator{replies: []domain.AssistantMessage{
		{Content: "hello back"},
	}}
	o := NewOrchestrator(gen, newTestRegistry(t), nil, 0)

	reply, err := o.Run(context.Background(), domain.Exchange{domain.UserMessage{Content: "hello"}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if reply != "hello back" {
		t.Errorf("got reply %q", reply)
	}
	if len(gen.exchanges) != 1 {
		t.Errorf("expected 1 generation, got %d", len(gen.exchanges))
	}
}

func TestRunResolvesToolCalls(t *testing.T) {
	gen := &scriptedGenerator{replies: []domain.AssistantMessage{
		{ToolCalls: []domain.ToolCall{
			{ID: "call_1", Function: domain.ToolFunction{
				Name:      "echo.upper",
				Arguments: []domain.ToolArgument{{Name: "text", Value: "loud"}},
			}},
		}},
		{Content: "done"},
	}}
	o := NewOrchestrator(gen, newTestRegistry(t), nil, 0)

	reply, err := o.Run(context.Background(), domain.Exchange{domain.UserMessage{Content: "shout it"}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if reply != "done" {
		t.Errorf("got reply %q", reply)
	}

	// The second generation must see user, assistant tool-call batch, then
	// the tool reply, in that order.
	second := gen.exchanges[1]
	if len(second) != 3 {
		t.Fatalf("expected 3 messages in second exchange, got %d", len(second))
	}
	toolMsg, ok := second[2].(domain.ToolMessage)
	if !ok {
		t.Fatalf("expected tool message last, got %T", second[2])
	}
	if toolMsg.ToolCallID != "call_1" {
		t.Errorf("tool reply references %q", toolMsg.ToolCallID)
	}
	if toolMsg.Content != "LOUD" {
		t.Errorf("tool reply content %q", toolMsg.Content)
	}
}

func TestRunUnknownToolBecomesErrorReply(t *testing.T) {
	gen := &scriptedGenerator{replies: []domain.AssistantMessage{
		{ToolCalls: []domain.ToolCall{
			{ID: "call_1", Function: domain.ToolFunction{Name: "no.such.tool"}},
		}},
		{Content: "recovered"},
	}}
	o := NewOrchestrator(gen, newTestRegistry(t), nil, 0)

	reply, err := o.Run(context.Background(), domain.Exchange{domain.UserMessage{Content: "try"}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if reply != "recovered" {
		t.Errorf("got reply %q", reply)
	}

	toolMsg := gen.exchanges[1][2].(domain.ToolMessage)
	if !strings.Contains(toolMsg.Content, "unknown tool no.such.tool") {
		t.Errorf("expected unknown-tool reply, got %q", toolMsg.Content)
	}
}

func TestRunExecutorFailureBecomesErrorReply(t *testing.T) {
	gen := &scriptedGenerator{replies: []domain.AssistantMessage{
		{ToolCalls: []domain.ToolCall{
			{ID: "call_1", Function: domain.ToolFunction{Name: "always.fails"}},
		}},
		{Content: "ok"},
	}}
	o := NewOrchestrator(gen, newTestRegistry(t), nil, 0)

	if _, err := o.Run(context.Background(), domain.Exchange{domain.UserMessage{Content: "go"}}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	toolMsg := gen.exchanges[1][2].(domain.ToolMessage)
	if !strings.Contains(toolMsg.Content, "always.fails failed") {
		t.Errorf("expected failure reply, got %q", toolMsg.Content)
	}
}

func TestRunEmptyResponse(t *testing.T) {
	gen := &scriptedGenerator{replies: []domain.AssistantMessage{
		{Content: "   \n"},
	}}
	o := NewOrchestrator(gen, newTestRegistry(t), nil, 0)

	_, err := o.Run(context.Background(), domain.Exchange{domain.UserMessage{Content: "hi"}})
	if !errors.Is(err, domain.ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestRunToolLoopExceeded(t *testing.T) {
	loop := domain.AssistantMessage{ToolCalls: []domain.ToolCall{
		{ID: "call_x", Function: domain.ToolFunction{
			Name:      "echo.upper",
			Arguments: []domain.ToolArgument{{Name: "text", Value: "again"}},
		}},
	}}
	gen := &scriptedGenerator{replies: []domain.AssistantMessage{loop, loop, loop}}
	o := NewOrchestrator(gen, newTestRegistry(t), nil, 3)

	_, err := o.Run(context.Background(), domain.Exchange{domain.UserMessage{Content: "spin"}})
	if !errors.Is(err, domain.ErrToolLoopExceeded) {
		t.Errorf("expected ErrToolLoopExceeded, got %v", err)
	}
	if len(gen.exchanges) != 3 {
		t.Errorf("expected exactly 3 generations, got %d", len(gen.exchanges))
	}
}

func TestRunDropsOrphanToolReplies(t *testing.T) {
	gen := &scriptedGenerator{replies: []domain.AssistantMessage{
		{Content: "fine"},
	}}
	o := NewOrchestrator(gen, newTestRegistry(t), nil, 0)

	exchange := domain.Exchange{
		domain.UserMessage{Content: "hi"},
		domain.ToolMessage{Content: "stale", ToolCallID: "call_ghost"},
		domain.AssistantMessage{ToolCalls: []domain.ToolCall{
			{ID: "call_real", Function: domain.ToolFunction{Name: "echo.upper"}},
		}},
		domain.ToolMessage{Content: "kept", ToolCallID: "call_real"},
	}
	if _, err := o.Run(context.Background(), exchange); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	sent := gen.exchanges[0]
	if len(sent) != 3 {
		t.Fatalf("expected orphan dropped, got %d messages", len(sent))
	}
	for _, m := range sent {
		if tm, ok := m.(domain.ToolMessage); ok && tm.ToolCallID == "call_ghost" {
			t.Error("orphan tool reply survived")
		}
	}
}

func TestRunPolicyBlocksTool(t *testing.T) {
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("failed to build policy engine: %v", err)
	}

	gen := &scriptedGenerator{replies: []domain.AssistantMessage{
		{ToolCalls: []domain.ToolCall{
			{ID: "call_1", Function: domain.ToolFunction{Name: "dangerous.command"}},
		}},
		{Content: "blocked then answered"},
	}}
	o := NewOrchestrator(gen, newTestRegistry(t), engine, 0)

	reply, err := o.Run(context.Background(), domain.Exchange{domain.UserMessage{Content: "do it"}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if reply != "blocked then answered" {
		t.Errorf("got reply %q", reply)
	}

	toolMsg := gen.exchanges[1][2].(domain.ToolMessage)
	if !strings.Contains(toolMsg.Content, "blocked by policy") {
		t.Errorf("expected policy block reply, got %q", toolMsg.Content)
	}
}

func TestRunSynthesizesMissingCallID(t *testing.T) {
	gen := &scriptedGenerator{replies: []domain.AssistantMessage{
		{ToolCalls: []domain.ToolCall{
			{Function: domain.ToolFunction{
				Name:      "echo.upper",
				Arguments: []domain.ToolArgument{{Name: "text", Value: "x"}},
			}},
		}},
		{Content: "ok"},
	}}
	o := NewOrchestrator(gen, newTestRegistry(t), nil, 0)

	if _, err := o.Run(context.Background(), domain.Exchange{domain.UserMessage{Content: "go"}}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	toolMsg := gen.exchanges[1][2].(domain.ToolMessage)
	if !strings.HasPrefix(toolMsg.ToolCallID, "call_") {
		t.Errorf("expected synthesized call id, got %q", toolMsg.ToolCallID)
	}
}
