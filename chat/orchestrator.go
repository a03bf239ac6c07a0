// Package chat drives a single request/response exchange with a generation
// capability, resolving tool calls before producing the final reply.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"poetloop/domain"
	"poetloop/policy"
	"poetloop/tools"
)

// DefaultMaxRounds caps how many times an exchange may be resent after tool
// resolution before the exchange is abandoned.
const DefaultMaxRounds = 5

// Generator is the generation capability: one chat-completion turn in, one
// assistant message out.
type Generator interface {
	Generate(ctx context.Context, exchange domain.Exchange) (domain.AssistantMessage, error)
}

// PolicyEngine gates tool execution. Satisfied by *policy.Engine.
type PolicyEngine interface {
	Evaluate(ctx context.Context, input interface{}) (string, error)
}

// Orchestrator resolves tool calls against the registry and policy engine
// until the generator produces a finalized reply. It holds no state between
// calls and performs no persistence.
type Orchestrator struct {
	generator Generator
	registry  *tools.Registry
	policy    PolicyEngine
	maxRounds int
}

// NewOrchestrator creates an orchestrator. policyEngine may be nil, in which
// case every tool call is allowed through to the registry.
func NewOrchestrator(generator Generator, registry *tools.Registry, policyEngine PolicyEngine, maxRounds int) *Orchestrator {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	return &Orchestrator{
		generator: generator,
		registry:  registry,
		policy:    policyEngine,
		maxRounds: maxRounds,
	}
}

// Run drives one exchange to a final assistant reply. Orphan tool replies in
// the input are dropped before the first send. Tool calls are resolved in
// emission order; unknown or blocked tools become error tool replies rather
// than hard failures, so the model can recover.
func (o *Orchestrator) Run(ctx context.Context, exchange domain.Exchange) (string, error) {
	requestID := "chat_" + uuid.New().String()[:8]
	exchange = dropOrphanToolReplies(exchange)

	for round := 0; round < o.maxRounds; round++ {
		reply, err := o.generator.Generate(ctx, exchange)
		if err != nil {
			return "", fmt.Errorf("generation failed: %w", err)
		}

		if len(reply.ToolCalls) == 0 {
			if strings.TrimSpace(reply.Content) == "" {
				return "", domain.ErrEmptyResponse
			}
			return reply.Content, nil
		}

		log.Printf("chat %s: round %d produced %d tool calls", requestID, round+1, len(reply.ToolCalls))
		exchange = append(exchange, reply)
		for _, call := range reply.ToolCalls {
			exchange = append(exchange, o.resolveToolCall(ctx, call))
		}
	}

	return "", domain.ErrToolLoopExceeded
}

// resolveToolCall produces the tool reply for one call. Failures are
// reported inside the reply content.
func (o *Orchestrator) resolveToolCall(ctx context.Context, call domain.ToolCall) domain.ToolMessage {
	id := call.ID
	if id == "" {
		// Some backends omit call ids; synthesize one so the reply stays
		// addressable.
		id = "call_" + uuid.New().String()[:8]
	}
	name := call.Function.Name

	if o.policy != nil {
		decision, err := o.policy.Evaluate(ctx, policyInput(call))
		if err != nil {
			return domain.ToolMessage{
				ToolCallID: id,
				Content:    fmt.Sprintf("error: policy evaluation failed for %s: %v", name, err),
			}
		}
		if decision == policy.DecisionBlock {
			return domain.ToolMessage{
				ToolCallID: id,
				Content:    fmt.Sprintf("error: tool %s blocked by policy", name),
			}
		}
	}

	result, err := o.registry.Execute(ctx, name, call.Function.Arguments)
	if errors.Is(err, tools.ErrUnknownTool) {
		return domain.ToolMessage{ToolCallID: id, Content: "error: unknown tool " + name}
	}
	if err != nil {
		return domain.ToolMessage{ToolCallID: id, Content: fmt.Sprintf("error: tool %s failed: %v", name, err)}
	}
	return domain.ToolMessage{ToolCallID: id, Content: result}
}

func policyInput(call domain.ToolCall) map[string]interface{} {
	args := make(map[string]interface{}, len(call.Function.Arguments))
	for _, arg := range call.Function.Arguments {
		args[arg.Name] = arg.Value
	}
	return map[string]interface{}{
		"tool_name": call.Function.Name,
		"args":      args,
	}
}

// dropOrphanToolReplies removes tool messages whose tool_call_id does not
// reference a tool call emitted by a preceding assistant message, so they
// never reach the generation capability.
func dropOrphanToolReplies(exchange domain.Exchange) domain.Exchange {
	emitted := make(map[string]bool)
	out := make(domain.Exchange, 0, len(exchange))
	for _, m := range exchange {
		switch v := m.(type) {
		case domain.AssistantMessage:
			for _, call := range v.ToolCalls {
				emitted[call.ID] = true
			}
			out = append(out, m)
		case domain.ToolMessage:
			if emitted[v.ToolCallID] {
				out = append(out, m)
			}
		default:
			out = append(out, m)
		}
	}
	return out
}
