package hotpatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Patcher is a handle onto a registry of patchable functions.
//
// The registry itself lives in a shared record: after Control, two handles
// point at the same record and every mutation made through one is visible
// through the other. Map access is serialized internally; the order in which
// concurrent callers observe each other's changes is not.
type Patcher struct {
	id         string
	cfg        atomic.Pointer[registryState]
	mu         sync.RWMutex
	extensions []Extension
}

// Controllable is implemented only by *Patcher. Control accepts it so that
// a foreign value can never be mistaken for a registry.
type Controllable interface {
	patcher() *Patcher
}

var _ Controllable = (*Patcher)(nil)

// New creates an empty patcher with the ReturnNothing policy
func New(opts ...Option) *Patcher {
	p := &Patcher{
		id: uuid.NewString(),
	}
	p.cfg.Store(newRegistryState())

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Patcher) patcher() *Patcher {
	return p
}

func (p *Patcher) shared() *registryState {
	return p.cfg.Load()
}

// ID returns a stable identifier for this handle
func (p *Patcher) ID() string {
	return p.id
}

// UseExtension registers an extension to the patcher
func (p *Patcher) UseExtension(ext Extension) error {
	p.mu.Lock()
	exts := make([]Extension, 0, len(p.extensions)+1)
	exts = append(exts, p.extensions...)
	exts = append(exts, ext)
	sort.SliceStable(exts, func(i, j int) bool {
		return exts[i].Order() < exts[j].Order()
	})
	p.extensions = exts
	p.mu.Unlock()

	return ext.Init(p)
}

// Dispose releases every registered extension
func (p *Patcher) Dispose() error {
	p.mu.RLock()
	exts := p.extensions
	p.mu.RUnlock()

	var errs []error
	for _, ext := range exts {
		if err := ext.Dispose(p); err != nil {
			errs = append(errs, fmt.Errorf("extension %s dispose: %w", ext.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// run chains the extensions around fn (last registered wraps first) and
// reports failures to every extension.
func (p *Patcher) run(ctx context.Context, op *Operation, fn func() (any, error)) (any, error) {
	p.mu.RLock()
	exts := p.extensions
	p.mu.RUnlock()

	if len(exts) == 0 {
		return fn()
	}

	next := fn
	for i := len(exts) - 1; i >= 0; i-- {
		ext := exts[i]
		currentNext := next
		next = func() (any, error) {
			return ext.Wrap(ctx, currentNext, op)
		}
	}

	result, err := next()
	if err != nil {
		for _, ext := range exts {
			ext.OnError(err, op, p)
		}
	}
	return result, err
}

// Patch registers fn under key. Without WithChain the key's chain is
// replaced by fn alone while the original function is kept for Restore.
// Patching a final key or passing a nil fn fails without changing anything.
func (p *Patcher) Patch(key string, fn Func, opts ...PatchOption) error {
	var o patchOptions
	for _, opt := range opts {
		opt(&o)
	}

	op := &Operation{Kind: OpPatch, Key: key, Patcher: p}
	_, err := p.run(context.Background(), op, func() (any, error) {
		return nil, p.patch(key, fn, o)
	})
	return err
}

func (p *Patcher) patch(key string, fn Func, o patchOptions) error {
	st := p.shared()
	st.mu.Lock()
	defer st.mu.Unlock()

	existing, ok := st.entries[key]
	if ok && existing.final {
		return newPatchError(OpPatch, key, ErrEntryFinal)
	}
	if fn == nil {
		return newPatchError(OpPatch, key, fmt.Errorf("%w: not a function", ErrInvalidArgument))
	}

	if !ok {
		st.entries[key] = newEntry(fn, o)
		return nil
	}

	if o.chain {
		methods := make([]Func, 0, len(existing.methods)+1)
		methods = append(methods, existing.methods...)
		existing.methods = append(methods, fn)
		if o.hasBound {
			existing.bound = o.bound
		}
		if len(o.tags) > 0 {
			tags := copyTags(existing.tags)
			if tags == nil {
				tags = make(map[any]any, len(o.tags))
			}
			for k, v := range o.tags {
				tags[k] = v
			}
			existing.tags = tags
		}
		return nil
	}

	replacement := newEntry(fn, o)
	replacement.original = existing.original
	st.entries[key] = replacement
	return nil
}

// MustPatch is like Patch but panics on error. It returns the receiver so
// registrations can be chained from init blocks.
func (p *Patcher) MustPatch(key string, fn Func, opts ...PatchOption) *Patcher {
	if err := p.Patch(key, fn, opts...); err != nil {
		panic(err)
	}
	return p
}

// Plugin chains every fn under key, in argument order. It stops at the first
// failure; functions chained before it stay registered.
func (p *Patcher) Plugin(key string, fns ...Func) error {
	for _, fn := range fns {
		if err := p.Patch(key, fn, WithChain()); err != nil {
			return err
		}
	}
	return nil
}

// Get resolves the chain registered under key without running it. For an
// unknown key the result depends on the empty-lookup policy: ReturnNothing
// yields (nil, nil), SignalFailure yields ErrEmptyLookup.
func (p *Patcher) Get(key string) (Callable, error) {
	op := &Operation{Kind: OpGet, Key: key, Patcher: p}
	result, err := p.run(context.Background(), op, func() (any, error) {
		return p.get(key)
	})
	if err != nil {
		return nil, err
	}
	callable, _ := result.(Callable)
	return callable, nil
}

func (p *Patcher) get(key string) (Callable, error) {
	callable, policy, found, err := p.lookup(key)
	if err != nil {
		return nil, err
	}
	if found {
		return callable, nil
	}

	switch policy {
	case ReturnNothing:
		return nil, nil
	case SignalFailure:
		return nil, newPatchError(OpGet, key, ErrEmptyLookup)
	default:
		return nil, newPatchError(OpGet, key, fmt.Errorf("%w: %q", ErrInvalidPolicy, string(policy)))
	}
}

// lookup snapshots the entry under the read lock and composes its chain
// outside of it.
func (p *Patcher) lookup(key string) (Callable, EmptyLookupPolicy, bool, error) {
	st := p.shared()
	st.mu.RLock()
	e, ok := st.entries[key]
	policy := st.policy
	var (
		methods []Func
		bound   any
		tags    map[any]any
	)
	if ok {
		methods = e.methods
		bound = e.bound
		tags = copyTags(e.tags)
	}
	st.mu.RUnlock()

	if !ok {
		return nil, policy, false, nil
	}

	fn, err := Sequence(methods...)
	if err != nil {
		return nil, policy, true, newPatchError(OpGet, key, err)
	}
	return bindCallable(p, key, fn, bound, tags), policy, true, nil
}

// Execute runs the chain registered under key with args. Unknown keys run a
// no-op that returns (nil, nil), whatever the empty-lookup policy. Errors
// returned by the patched functions are passed through unchanged.
func (p *Patcher) Execute(ctx context.Context, key string, args ...any) (any, error) {
	op := &Operation{Kind: OpExecute, Key: key, Patcher: p}
	return p.run(ctx, op, func() (any, error) {
		callable, _, found, err := p.lookup(key)
		if err != nil {
			return nil, err
		}
		if !found {
			callable = bindCallable(p, key, noop, nil, nil)
		}
		return callable(ctx, args...)
	})
}

// PatchInline registers fn under key unless the key is already patched, then
// executes key. Call sites use it to provide a default implementation that
// code running earlier may have overridden.
func (p *Patcher) PatchInline(ctx context.Context, key string, fn Func, args ...any) (any, error) {
	if !p.IsPatched(key) {
		if err := p.Patch(key, fn); err != nil {
			return nil, err
		}
	}
	return p.Execute(ctx, key, args...)
}

// IsPatched reports whether key has an entry
func (p *Patcher) IsPatched(key string) bool {
	st := p.shared()
	st.mu.RLock()
	_, ok := st.entries[key]
	st.mu.RUnlock()
	return ok
}

// Lookup returns a snapshot of the entry registered under key
func (p *Patcher) Lookup(key string) (EntryInfo, bool) {
	st := p.shared()
	st.mu.RLock()
	defer st.mu.RUnlock()

	e, ok := st.entries[key]
	if !ok {
		return EntryInfo{}, false
	}
	return e.info(key), true
}

// Keys returns all registered keys in lexicographic order
func (p *Patcher) Keys() []string {
	return p.shared().keys()
}

// Restore resets the chain of key to its original function
func (p *Patcher) Restore(key string) error {
	op := &Operation{Kind: OpRestore, Key: key, Patcher: p}
	_, err := p.run(context.Background(), op, func() (any, error) {
		st := p.shared()
		st.mu.Lock()
		defer st.mu.Unlock()

		e, ok := st.entries[key]
		if !ok {
			return nil, newPatchError(OpRestore, key, ErrEntryMissing)
		}
		if e.original == nil {
			return nil, newPatchError(OpRestore, key, ErrInvalidOriginal)
		}
		e.methods = []Func{e.original}
		return nil, nil
	})
	return err
}

// SetFinal locks key against any further Patch. The lock cannot be lifted.
func (p *Patcher) SetFinal(key string) error {
	op := &Operation{Kind: OpSetFinal, Key: key, Patcher: p}
	_, err := p.run(context.Background(), op, func() (any, error) {
		st := p.shared()
		st.mu.Lock()
		defer st.mu.Unlock()

		e, ok := st.entries[key]
		if !ok {
			return nil, newPatchError(OpSetFinal, key, ErrEntryMissing)
		}
		e.final = true
		return nil, nil
	})
	return err
}

// Control merges the target's registry into this one and makes the target
// share this patcher's registry from then on.
//
// Keys only the target knows are copied. For keys both know, this patcher's
// entry is kept unless allowOverrides is set. The target's empty-lookup
// policy is discarded.
func (p *Patcher) Control(target Controllable, allowOverrides bool) error {
	op := &Operation{Kind: OpControl, Patcher: p}
	_, err := p.run(context.Background(), op, func() (any, error) {
		return nil, p.control(target, allowOverrides)
	})
	return err
}

func (p *Patcher) control(target Controllable, allowOverrides bool) error {
	if target == nil {
		return newPatchError(OpControl, "", ErrInvalidTarget)
	}
	t := target.patcher()
	if t == nil {
		return newPatchError(OpControl, "", ErrInvalidTarget)
	}

	own := p.shared()
	foreign := t.shared()
	if own == foreign {
		return nil
	}

	foreign.mu.RLock()
	incoming := make(map[string]*entry, len(foreign.entries))
	for k, e := range foreign.entries {
		incoming[k] = e.clone()
	}
	foreign.mu.RUnlock()

	own.mu.Lock()
	for k, e := range incoming {
		if _, exists := own.entries[k]; exists && !allowOverrides {
			continue
		}
		own.entries[k] = e
	}
	own.mu.Unlock()

	t.cfg.Store(own)
	return nil
}

// Shares reports whether p and other operate on the same registry
func (p *Patcher) Shares(other *Patcher) bool {
	if other == nil {
		return false
	}
	return p.shared() == other.shared()
}

// EmptyLookupPolicy returns the policy Get applies to unknown keys
func (p *Patcher) EmptyLookupPolicy() EmptyLookupPolicy {
	st := p.shared()
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.policy
}

// SetEmptyLookupPolicy changes the policy for every handle sharing the
// registry. Only ReturnNothing and SignalFailure are accepted.
func (p *Patcher) SetEmptyLookupPolicy(policy EmptyLookupPolicy) error {
	op := &Operation{Kind: OpConfigure, Patcher: p}
	_, err := p.run(context.Background(), op, func() (any, error) {
		if !policy.Valid() {
			return nil, newPatchError(OpConfigure, "", fmt.Errorf("%w: unknown empty-lookup policy %q", ErrInvalidArgument, string(policy)))
		}
		st := p.shared()
		st.mu.Lock()
		st.policy = policy
		st.mu.Unlock()
		return nil, nil
	})
	return err
}
