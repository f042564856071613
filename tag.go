package hotpatch

// Tag is a type-safe key for entry metadata
type Tag[T any] struct {
	key string
}

// NewTag creates a new tag with the given key
func NewTag[T any](key string) Tag[T] {
	return Tag[T]{key: key}
}

// Key returns the tag's key (for debugging)
func (t Tag[T]) Key() string {
	return t.key
}

// Get retrieves the tag value from an entry snapshot
func (t Tag[T]) Get(info EntryInfo) (T, bool) {
	return lookupTag[T](info.Tags, t)
}

// GetOrDefault retrieves the tag value or returns a default
func (t Tag[T]) GetOrDefault(info EntryInfo, defaultVal T) T {
	if val, ok := t.Get(info); ok {
		return val
	}
	return defaultVal
}

// FromCall retrieves the tag value of the entry being invoked
func (t Tag[T]) FromCall(call *Call) (T, bool) {
	if call == nil {
		var zero T
		return zero, false
	}
	return lookupTag[T](call.tags, t)
}

func lookupTag[T any](tags map[any]any, t Tag[T]) (T, bool) {
	val, ok := tags[t]
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := val.(T)
	return typed, ok
}

// DocTag holds a human-readable description of a patch
var DocTag = NewTag[string]("hotpatch.doc")
