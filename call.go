package hotpatch

import "context"

// Func is a patchable function. The first function of a chain receives the
// caller's arguments; every following function receives exactly one
// argument, the result of its predecessor.
type Func func(call *Call, args ...any) (any, error)

// Callable is a resolved, ready-to-invoke chain returned by Get
type Callable func(ctx context.Context, args ...any) (any, error)

// Call is the execution context handed to every Func
type Call struct {
	ctx     context.Context
	key     string
	bound   any
	tags    map[any]any
	patcher *Patcher
}

// Context returns the context passed to Execute or to the Callable
func (c *Call) Context() context.Context {
	return c.ctx
}

// Key returns the key the function was invoked through
func (c *Call) Key() string {
	return c.key
}

// Bound returns the value attached with WithBound, or nil
func (c *Call) Bound() any {
	return c.bound
}

// Patcher returns the patcher that dispatched the call
func (c *Call) Patcher() *Patcher {
	return c.patcher
}

func noop(call *Call, args ...any) (any, error) {
	return nil, nil
}

func bindCallable(p *Patcher, key string, fn Func, bound any, tags map[any]any) Callable {
	return func(ctx context.Context, args ...any) (any, error) {
		if ctx == nil {
			ctx = context.Background()
		}
		return fn(&Call{
			ctx:     ctx,
			key:     key,
			bound:   bound,
			tags:    tags,
			patcher: p,
		}, args...)
	}
}
