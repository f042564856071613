package hotpatch

import (
	"sort"
	"sync"
)

// entry is the per-key record. methods is never mutated in place: chaining
// and restoring always install a fresh slice, so readers may keep a slice
// header obtained under the read lock.
type entry struct {
	original Func
	methods  []Func
	bound    any
	final    bool
	tags     map[any]any
}

func newEntry(fn Func, o patchOptions) *entry {
	return &entry{
		original: fn,
		methods:  []Func{fn},
		bound:    o.bound,
		tags:     copyTags(o.tags),
	}
}

func (e *entry) clone() *entry {
	return &entry{
		original: e.original,
		methods:  append([]Func(nil), e.methods...),
		bound:    e.bound,
		final:    e.final,
		tags:     copyTags(e.tags),
	}
}

func (e *entry) info(key string) EntryInfo {
	return EntryInfo{
		Key:   key,
		Chain: len(e.methods),
		Final: e.final,
		Bound: e.bound,
		Tags:  copyTags(e.tags),
	}
}

func copyTags(tags map[any]any) map[any]any {
	if len(tags) == 0 {
		return nil
	}
	out := make(map[any]any, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}

// EntryInfo is a read-only snapshot of a registered key
type EntryInfo struct {
	Key   string
	Chain int // number of functions currently chained
	Final bool
	Bound any
	Tags  map[any]any
}

// registryState is the configuration shared by every patcher handle that
// controls or is controlled by another.
type registryState struct {
	mu      sync.RWMutex
	entries map[string]*entry
	policy  EmptyLookupPolicy
}

func newRegistryState() *registryState {
	return &registryState{
		entries: make(map[string]*entry),
		policy:  ReturnNothing,
	}
}

func (s *registryState) keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	return keys
}
