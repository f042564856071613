// Package hotpatch provides a runtime registry of named, swappable functions.
//
// # Overview
//
// A Patcher maps string keys to chains of functions. Call sites invoke a key
// instead of a concrete function, which lets plugins, tests and feature
// overrides replace the behaviour behind the key at runtime:
//
//	p := hotpatch.New()
//
//	p.Patch("add", func(call *hotpatch.Call, args ...any) (any, error) {
//	    return args[0].(int) + args[1].(int), nil
//	})
//
//	sum, err := p.Execute(ctx, "add", 2, 3) // 5
//
// # Replacing and restoring
//
// Patching a key again replaces its chain. The function of the very first
// registration is remembered and Restore brings it back:
//
//	p.Patch("add", multiply)
//	p.Execute(ctx, "add", 2, 3) // 6
//	p.Restore("add")
//	p.Execute(ctx, "add", 2, 3) // 5
//
// # Chaining
//
// WithChain (or Plugin) appends instead of replacing. The first function of a
// chain receives the caller's arguments, every later one receives exactly one
// argument, the previous result:
//
//	p.Plugin("price", withTax, rounded)
//	p.Execute(ctx, "price", 10.0) // rounded(withTax(10.0))
//
// Sequence exposes the same composition for plain Func values.
//
// # Final keys
//
// SetFinal locks a key. Every later Patch of that key fails with
// ErrEntryFinal and leaves the entry untouched.
//
// # Unknown keys
//
// Execute on an unknown key runs a no-op and returns (nil, nil). Get consults
// the empty-lookup policy: ReturnNothing (default) returns a nil Callable,
// SignalFailure returns ErrEmptyLookup.
//
// PatchInline combines both: it registers a default only when nothing was
// patched yet and then executes the key.
//
//	func greet(ctx context.Context, name string) (any, error) {
//	    return p.PatchInline(ctx, "greet", defaultGreet, name)
//	}
//
// # Bound values
//
// WithBound stores an execution-context value on the entry. Every function of
// the chain reads it through Call.Bound.
//
// # Control
//
// Control merges another patcher's registry into the receiver and makes both
// handles share one registry afterwards:
//
//	host.Control(plugin, false) // host entries win on conflicts
//	plugin.Patch("x", fn)       // visible through host as well
//
// # Extensions
//
// Extensions wrap every operation and observe failures. The extensions
// sub-package ships slog based logging and a registry dump for debugging:
//
//	p := hotpatch.New(hotpatch.WithExtension(extensions.NewLoggingExtension(handler)))
//
// # Configuration
//
// The empty-lookup policy can be set with WithEmptyLookupPolicy or loaded
// from YAML:
//
//	cfg, err := hotpatch.LoadConfig(strings.NewReader("emptyLookup: signal-failure"))
//	p := hotpatch.New(hotpatch.WithConfig(cfg))
package hotpatch
