package extensions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/m1gwings/treedrawer/tree"

	hotpatch "github.com/pumped-fn/hotpatch-go"
)

// RegistryDebugExtension logs the registry layout when an operation fails.
//
// Usage:
//
//	// Human-readable formatted output (with line breaks)
//	handler := extensions.NewHumanHandler(os.Stdout, slog.LevelError)
//	ext := extensions.NewRegistryDebugExtension(handler)
//
//	// Structured JSON logging (compact, machine-readable)
//	handler := slog.NewJSONHandler(os.Stdout, nil)
//	ext := extensions.NewRegistryDebugExtension(handler)
//
//	// Silent (for testing)
//	ext := extensions.NewRegistryDebugExtension(extensions.NewSilentHandler())
//
// Every key is drawn as a tree whose children are the chained functions.
type RegistryDebugExtension struct {
	hotpatch.BaseExtension

	mu sync.Mutex
	// Track keys as they're executed
	executedKeys map[string]bool
	failedKeys   map[string]error
	logger       *slog.Logger
}

// NewRegistryDebugExtension creates a new registry debug extension.
// logHandler: slog.Handler for logging (use HumanHandler for formatted output, or any other slog.Handler)
func NewRegistryDebugExtension(logHandler slog.Handler) *RegistryDebugExtension {
	return &RegistryDebugExtension{
		BaseExtension: hotpatch.NewBaseExtension("registry-debug"),
		executedKeys:  make(map[string]bool),
		failedKeys:    make(map[string]error),
		logger:        slog.New(logHandler),
	}
}

// Wrap tracks executions for debugging
func (e *RegistryDebugExtension) Wrap(ctx context.Context, next func() (any, error), op *hotpatch.Operation) (any, error) {
	result, err := next()

	if op.Kind == hotpatch.OpExecute {
		e.mu.Lock()
		if err == nil {
			e.executedKeys[op.Key] = true
			delete(e.failedKeys, op.Key)
		} else {
			e.failedKeys[op.Key] = err
		}
		e.mu.Unlock()
	}

	return result, err
}

// OnError logs the registry when an operation fails
func (e *RegistryDebugExtension) OnError(err error, op *hotpatch.Operation, p *hotpatch.Patcher) {
	e.logger.Error("Patch Registry Error",
		"key", op.Key,
		"error", err.Error(),
		"operation", string(op.Kind),
		"patcher", p.ID(),
		"registry", e.FormatRegistry(p, op.Key),
	)
}

// FormatRegistry draws every registered key of p. failedKey is highlighted.
func (e *RegistryDebugExtension) FormatRegistry(p *hotpatch.Patcher, failedKey string) string {
	keys := p.Keys()
	if len(keys) == 0 {
		return "\n(empty - no keys registered)\n"
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("\n")
	for _, key := range keys {
		info, ok := p.Lookup(key)
		if !ok {
			continue
		}

		t := tree.NewTree(tree.NodeString(e.keyLabel(info, failedKey)))
		for i := 0; i < info.Chain; i++ {
			step := fmt.Sprintf("step %d", i+1)
			if i == 0 {
				step += " (input: call args)"
			}
			t.AddChild(tree.NodeString(step))
		}
		sb.WriteString(fmt.Sprint(t))
		sb.WriteString("\n")
	}

	if _, registered := p.Lookup(failedKey); failedKey != "" && !registered {
		sb.WriteString(fmt.Sprintf("Key %q is not registered\n", failedKey))
	}

	return sb.String()
}

func (e *RegistryDebugExtension) keyLabel(info hotpatch.EntryInfo, failedKey string) string {
	label := info.Key
	if doc, ok := hotpatch.DocTag.Get(info); ok {
		label = fmt.Sprintf("%s - %s", label, doc)
	}
	if info.Final {
		label += " [final]"
	}

	switch {
	case info.Key == failedKey:
		label += " ❌ FAILED"
	case e.executedKeys[info.Key]:
		label += " ✓"
	default:
		if keyErr, failed := e.failedKeys[info.Key]; failed {
			label = fmt.Sprintf("%s ❌ (error: %v)", label, keyErr)
		}
	}
	return label
}

// SilentHandler is a slog.Handler that discards all log output
// Useful for testing when you don't want log output
type SilentHandler struct{}

// NewSilentHandler creates a new silent log handler
func NewSilentHandler() *SilentHandler {
	return &SilentHandler{}
}

func (h *SilentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return false
}

func (h *SilentHandler) Handle(ctx context.Context, record slog.Record) error {
	return nil
}

func (h *SilentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *SilentHandler) WithGroup(name string) slog.Handler {
	return h
}

// HumanHandler is a slog.Handler that formats logs for human readability
// with proper line breaks and visual formatting (especially for registry dumps)
type HumanHandler struct {
	mu     sync.Mutex
	writer io.Writer
	level  slog.Level
}

// NewHumanHandler creates a new human-readable log handler
func NewHumanHandler(writer io.Writer, level slog.Level) *HumanHandler {
	return &HumanHandler{
		writer: writer,
		level:  level,
	}
}

func (h *HumanHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *HumanHandler) Handle(ctx context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if record.Message == "Patch Registry Error" {
		return h.handleRegistryError(record)
	}

	if _, err := fmt.Fprintf(h.writer, "[%s] %s\n", record.Level, record.Message); err != nil {
		return err
	}
	var writeErr error
	record.Attrs(func(a slog.Attr) bool {
		if _, err := fmt.Fprintf(h.writer, "  %s: %v\n", a.Key, a.Value); err != nil {
			writeErr = err
			return false
		}
		return true
	})
	return writeErr
}

func (h *HumanHandler) handleRegistryError(record slog.Record) error {
	var key, errorMsg, operation, patcher, registry string

	record.Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case "key":
			key = a.Value.String()
		case "error":
			errorMsg = a.Value.String()
		case "operation":
			operation = a.Value.String()
		case "patcher":
			patcher = a.Value.String()
		case "registry":
			registry = a.Value.String()
		}
		return true
	})

	writes := []func() error{
		func() error { _, err := fmt.Fprintln(h.writer); return err },
		func() error { _, err := fmt.Fprintln(h.writer, strings.Repeat("=", 70)); return err },
		func() error { _, err := fmt.Fprintln(h.writer, "[RegistryDebug] Patch Registry Error"); return err },
		func() error { _, err := fmt.Fprintln(h.writer, strings.Repeat("=", 70)); return err },
		func() error { _, err := fmt.Fprintf(h.writer, "\nKey: %s\n", key); return err },
		func() error { _, err := fmt.Fprintf(h.writer, "Error: %s\n", errorMsg); return err },
		func() error { _, err := fmt.Fprintf(h.writer, "Operation: %s\n", operation); return err },
		func() error { _, err := fmt.Fprintf(h.writer, "Patcher: %s\n", patcher); return err },
		func() error { _, err := fmt.Fprintf(h.writer, "\nRegistry:%s", registry); return err },
		func() error { _, err := fmt.Fprintln(h.writer, strings.Repeat("=", 70)); return err },
		func() error { _, err := fmt.Fprintln(h.writer); return err },
	}

	for _, write := range writes {
		if err := write(); err != nil {
			return err
		}
	}

	return nil
}

func (h *HumanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	// For simplicity, return self (could create new handler with attrs if needed)
	return h
}

func (h *HumanHandler) WithGroup(name string) slog.Handler {
	// For simplicity, return self (could create new handler with group if needed)
	return h
}
