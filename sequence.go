package hotpatch

// Sequence composes fns into a single Func that pipes each result into the
// next function. The list is copied, so the composition can be invoked any
// number of times, concurrently, and the caller may reuse fns.
//
// Arity contract: fns[0] receives all invocation arguments; fns[i] for i > 0
// receives exactly one argument, the value returned by fns[i-1]. The first
// error stops the pipeline and is returned with a nil result.
func Sequence(fns ...Func) (Func, error) {
	if len(fns) == 0 {
		return nil, newPatchError(OpSequence, "", ErrNoFunctions)
	}
	for _, fn := range fns {
		if fn == nil {
			return nil, newPatchError(OpSequence, "", ErrInvalidArgument)
		}
	}

	chain := make([]Func, len(fns))
	copy(chain, fns)

	if len(chain) == 1 {
		return chain[0], nil
	}

	return func(call *Call, args ...any) (any, error) {
		result, err := chain[0](call, args...)
		if err != nil {
			return nil, err
		}
		for _, fn := range chain[1:] {
			result, err = fn(call, result)
			if err != nil {
				return nil, err
			}
		}
		return result, nil
	}, nil
}
