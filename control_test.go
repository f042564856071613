package hotpatch

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestControlSharesRegistry(t *testing.T) {
	ctx := context.Background()
	a := New()
	b := New()

	if err := a.Control(b, false); err != nil {
		t.Fatalf("Control: %v", err)
	}
	if !a.Shares(b) || !b.Shares(a) {
		t.Fatal("expected both handles to share one registry")
	}

	a.MustPatch("x", constant("from a"))
	if val, _ := b.Execute(ctx, "x"); val != "from a" {
		t.Errorf("expected b to see a's patch, got %v", val)
	}

	b.MustPatch("x", constant("from b"))
	if val, _ := a.Execute(ctx, "x"); val != "from b" {
		t.Errorf("expected a to see b's patch, got %v", val)
	}

	if err := b.SetFinal("x"); err != nil {
		t.Fatalf("SetFinal: %v", err)
	}
	if err := a.Patch("x", constant(1)); !errors.Is(err, ErrEntryFinal) {
		t.Errorf("expected final lock to be shared, got %v", err)
	}

	if err := b.SetEmptyLookupPolicy(SignalFailure); err != nil {
		t.Fatalf("SetEmptyLookupPolicy: %v", err)
	}
	if got := a.EmptyLookupPolicy(); got != SignalFailure {
		t.Errorf("expected policy to be shared, got %q", got)
	}
}

func TestControlKeepsOwnEntriesByDefault(t *testing.T) {
	ctx := context.Background()
	a := New()
	b := New()

	a.MustPatch("test", constant("a"))
	b.MustPatch("test3", constant("b3"))
	b.MustPatch("test", constant("b"))

	if err := a.Control(b, false); err != nil {
		t.Fatalf("Control: %v", err)
	}

	if val, _ := a.Execute(ctx, "test"); val != "a" {
		t.Errorf("expected a's function on a, got %v", val)
	}
	if val, _ := b.Execute(ctx, "test"); val != "a" {
		t.Errorf("expected a's function on b, got %v", val)
	}
	if val, _ := b.Execute(ctx, "test3"); val != "b3" {
		t.Errorf("expected copied key on b, got %v", val)
	}
	if diff := cmp.Diff([]string{"test", "test3"}, a.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
}

func TestControlAllowOverrides(t *testing.T) {
	ctx := context.Background()
	a := New()
	b := New()

	a.MustPatch("test", constant("a"))
	b.MustPatch("test3", constant("b3"))
	b.MustPatch("test", constant("b"))

	if err := a.Control(b, true); err != nil {
		t.Fatalf("Control: %v", err)
	}

	if val, _ := a.Execute(ctx, "test"); val != "b" {
		t.Errorf("expected b's function on a, got %v", val)
	}
	if val, _ := b.Execute(ctx, "test"); val != "b" {
		t.Errorf("expected b's function on b, got %v", val)
	}
	if val, _ := b.Execute(ctx, "test3"); val != "b3" {
		t.Errorf("expected copied key on b, got %v", val)
	}
}

func TestControlCopiesEntryState(t *testing.T) {
	ctx := context.Background()
	a := New()
	b := New()

	b.MustPatch("k", constant("orig"))
	b.MustPatch("k", constant("replaced"))
	if err := b.SetFinal("k"); err != nil {
		t.Fatalf("SetFinal: %v", err)
	}

	if err := a.Control(b, false); err != nil {
		t.Fatalf("Control: %v", err)
	}

	info, ok := a.Lookup("k")
	if !ok || !info.Final {
		t.Fatalf("expected copied final entry, got %+v, %v", info, ok)
	}
	if err := a.Restore("k"); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if val, _ := a.Execute(ctx, "k"); val != "orig" {
		t.Errorf("expected copied original, got %v", val)
	}
}

func TestControlDiscardsTargetPolicy(t *testing.T) {
	a := New()
	b := New(WithEmptyLookupPolicy(SignalFailure))

	if err := a.Control(b, true); err != nil {
		t.Fatalf("Control: %v", err)
	}
	if got := b.EmptyLookupPolicy(); got != ReturnNothing {
		t.Errorf("expected controller policy on target, got %q", got)
	}
}

func TestControlInvalidTarget(t *testing.T) {
	a := New()

	if err := a.Control(nil, false); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("expected ErrInvalidTarget for nil, got %v", err)
	}

	var typedNil *Patcher
	if err := a.Control(typedNil, false); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("expected ErrInvalidTarget for typed nil, got %v", err)
	}
}

func TestControlSelfAndRepeated(t *testing.T) {
	ctx := context.Background()
	a := New()
	b := New()
	a.MustPatch("k", constant(1))

	if err := a.Control(a, false); err != nil {
		t.Fatalf("Control(self): %v", err)
	}
	if err := a.Control(b, false); err != nil {
		t.Fatalf("Control: %v", err)
	}
	if err := a.Control(b, true); err != nil {
		t.Fatalf("Control again: %v", err)
	}
	if val, _ := b.Execute(ctx, "k"); val != 1 {
		t.Errorf("expected 1, got %v", val)
	}
}

func TestControlCopyIsIndependentOfOldRegistry(t *testing.T) {
	ctx := context.Background()
	a := New()
	b := New()
	c := New()

	// c shares b's registry before b is taken over by a
	if err := b.Control(c, false); err != nil {
		t.Fatalf("Control: %v", err)
	}
	b.MustPatch("k", constant("b"), WithChain())

	if err := a.Control(b, false); err != nil {
		t.Fatalf("Control: %v", err)
	}

	// Chaining through a must not leak into the registry c still holds
	a.MustPatch("k", func(call *Call, args ...any) (any, error) {
		return args[0].(string) + "+a", nil
	}, WithChain())

	if val, _ := a.Execute(ctx, "k"); val != "b+a" {
		t.Errorf("expected b+a, got %v", val)
	}
	if val, _ := c.Execute(ctx, "k"); val != "b" {
		t.Errorf("expected c's registry untouched, got %v", val)
	}
}
