package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"poetloop/domain"
)

func init() {
	MustRegister("time.now", func(ctx context.Context, args []domain.ToolArgument) (string, error) {
		return time.Now().UTC().Format(time.RFC3339), nil
	})
	MustRegister("verse.word_count", func(ctx context.Context, args []domain.ToolArgument) (string, error) {
		text, ok := argValue(args, "text")
		if !ok {
			return "", fmt.Errorf("missing required argument: text")
		}
		return fmt.Sprintf("%d", len(strings.Fields(text))), nil
	})
	MustRegister("verse.line_count", func(ctx context.Context, args []domain.ToolArgument) (string, error) {
		text, ok := argValue(args, "text")
		if !ok {
			return "", fmt.Errorf("missing required argument: text")
		}
		count := 0
		for _, line := range strings.Split(text, "\n") {
			if strings.TrimSpace(line) != "" {
				count++
			}
		}
		return fmt.Sprintf("%d", count), nil
	})
	MustRegister("dangerous.command", func(ctx context.Context, args []domain.ToolArgument) (string, error) {
		return "", fmt.Errorf("tool execution disabled")
	})
}

func argValue(args []domain.ToolArgument, name string) (string, bool) {
	for _, arg := range args {
		if arg.Name == name {
			return arg.Value, true
		}
	}
	return "", false
}
