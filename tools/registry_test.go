package tools

import (
	"context"
	"errors"
	"testing"

	"poetloop/domain"
)

func TestRegisterAndExecute(t *testing.T) {
	r := NewRegistry()
	err := r.Register("greet", func(ctx context.Context, args []domain.ToolArgument) (string, error) {
		return "hello", nil
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	result, err := r.Execute(context.Background(), "greet", nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result != "hello" {
		t.Errorf("got %q", result)
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute(context.Background(), "missing", nil)
	if !errors.Is(err, ErrUnknownTool) {
		t.Errorf("expected ErrUnknownTool, got %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	exec := func(ctx context.Context, args []domain.ToolArgument) (string, error) { return "", nil }
	if err := r.Register("dup", exec); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register("dup", exec); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestRegisterValidation(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("", func(ctx context.Context, args []domain.ToolArgument) (string, error) { return "", nil }); err == nil {
		t.Error("expected empty name to fail")
	}
	if err := r.Register("nil-exec", nil); err == nil {
		t.Error("expected nil executor to fail")
	}
}

func TestBuiltinWordCount(t *testing.T) {
	result, err := DefaultRegistry.Execute(context.Background(), "verse.word_count",
		[]domain.ToolArgument{{Name: "text", Value: "one two three"}})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result != "3" {
		t.Errorf("got %q", result)
	}
}

func TestBuiltinLineCount(t *testing.T) {
	result, err := DefaultRegistry.Execute(context.Background(), "verse.line_count",
		[]domain.ToolArgument{{Name: "text", Value: "first\n\nsecond\nthird\n"}})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result != "3" {
		t.Errorf("got %q", result)
	}
}

func TestBuiltinMissingArgument(t *testing.T) {
	if _, err := DefaultRegistry.Execute(context.Background(), "verse.word_count", nil); err == nil {
		t.Error("expected missing argument error")
	}
}
