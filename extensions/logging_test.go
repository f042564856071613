package extensions

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	hotpatch "github.com/pumped-fn/hotpatch-go"
)

func TestLoggingExtension(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	p := hotpatch.New(hotpatch.WithExtension(NewLoggingExtension(handler)))

	add := func(call *hotpatch.Call, args ...any) (any, error) {
		return args[0].(int) + args[1].(int), nil
	}
	if err := p.Patch("add", add); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if val, err := p.Execute(context.Background(), "add", 2, 3); err != nil || val != 5 {
		t.Fatalf("Execute = %v, %v", val, err)
	}

	output := buf.String()
	for _, want := range []string{
		"hotpatch operation completed",
		"operation=patch",
		"operation=execute",
		"key=add",
		"patcher=" + p.ID(),
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in log output:\n%s", want, output)
		}
	}
}

func TestLoggingExtension_Failure(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError})

	p := hotpatch.New(hotpatch.WithExtension(NewLoggingExtension(handler)))

	if err := p.SetFinal("missing"); err == nil {
		t.Fatal("expected error")
	}
	p.MustPatch("quiet", func(call *hotpatch.Call, args ...any) (any, error) { return nil, nil })

	output := buf.String()
	if !strings.Contains(output, "hotpatch operation failed") {
		t.Errorf("expected failure record, got:\n%s", output)
	}
	if !strings.Contains(output, "operation=set-final") {
		t.Errorf("expected operation attr, got:\n%s", output)
	}
	if strings.Contains(output, "completed") {
		t.Errorf("expected debug records to be filtered, got:\n%s", output)
	}
}

func TestLoggingExtension_DefaultLogger(t *testing.T) {
	ext := NewLoggingExtension(nil)
	if ext.logger == nil {
		t.Fatal("expected default logger")
	}
	if ext.Name() != "logging" {
		t.Errorf("expected name logging, got %q", ext.Name())
	}
}
