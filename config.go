package hotpatch

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// EmptyLookupPolicy selects what Get does for keys that were never patched
type EmptyLookupPolicy string

const (
	// ReturnNothing makes Get return a nil Callable and no error (default)
	ReturnNothing EmptyLookupPolicy = "return-nothing"
	// SignalFailure makes Get return ErrEmptyLookup
	SignalFailure EmptyLookupPolicy = "signal-failure"
)

// Valid reports whether p is one of the known policies
func (p EmptyLookupPolicy) Valid() bool {
	return p == ReturnNothing || p == SignalFailure
}

func (p EmptyLookupPolicy) String() string {
	return string(p)
}

// ParseEmptyLookupPolicy accepts the canonical names as well as the short
// forms "null" and "throw".
func ParseEmptyLookupPolicy(s string) (EmptyLookupPolicy, error) {
	switch s {
	case string(ReturnNothing), "null", "nothing":
		return ReturnNothing, nil
	case string(SignalFailure), "throw", "fail":
		return SignalFailure, nil
	default:
		return "", fmt.Errorf("%w: unknown empty-lookup policy %q", ErrInvalidArgument, s)
	}
}

func (p EmptyLookupPolicy) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: unknown empty-lookup policy %q", ErrInvalidArgument, string(p))
	}
	return []byte(p), nil
}

func (p *EmptyLookupPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseEmptyLookupPolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p *EmptyLookupPolicy) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return p.UnmarshalText([]byte(s))
}

func (p EmptyLookupPolicy) MarshalYAML() (any, error) {
	text, err := p.MarshalText()
	if err != nil {
		return nil, err
	}
	return string(text), nil
}

// Config is the declarative part of a patcher's configuration
type Config struct {
	EmptyLookup EmptyLookupPolicy `yaml:"emptyLookup"`
}

// DefaultConfig returns the configuration of a patcher created by New
func DefaultConfig() Config {
	return Config{EmptyLookup: ReturnNothing}
}

// LoadConfig decodes a YAML document. Missing fields keep their defaults and
// an empty document yields DefaultConfig.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("hotpatch: decode config: %w", err)
	}
	return cfg, nil
}

// Option is a modifier for patchers
type Option func(*Patcher)

// WithExtension returns an option that registers an extension to a patcher
func WithExtension(ext Extension) Option {
	return func(p *Patcher) {
		if err := p.UseExtension(ext); err != nil {
			panic(err)
		}
	}
}

// WithEmptyLookupPolicy returns an option that sets the initial policy
func WithEmptyLookupPolicy(policy EmptyLookupPolicy) Option {
	return func(p *Patcher) {
		if !policy.Valid() {
			panic(fmt.Sprintf("hotpatch: invalid empty-lookup policy %q", string(policy)))
		}
		p.shared().policy = policy
	}
}

// WithConfig returns an option that applies a decoded Config
func WithConfig(cfg Config) Option {
	return func(p *Patcher) {
		if cfg.EmptyLookup == "" {
			return
		}
		WithEmptyLookupPolicy(cfg.EmptyLookup)(p)
	}
}

// PatchOption is a modifier for a single Patch call
type PatchOption func(*patchOptions)

type patchOptions struct {
	chain    bool
	bound    any
	hasBound bool
	tags     map[any]any
}

// WithChain appends the function to the key's chain instead of replacing it
func WithChain() PatchOption {
	return func(o *patchOptions) {
		o.chain = true
	}
}

// WithBound attaches an execution-context value that every Func of the entry
// receives through Call.Bound.
func WithBound(v any) PatchOption {
	return func(o *patchOptions) {
		o.bound = v
		o.hasBound = true
	}
}

// WithTag attaches metadata to the entry
func WithTag[T any](tag Tag[T], val T) PatchOption {
	return func(o *patchOptions) {
		if o.tags == nil {
			o.tags = make(map[any]any)
		}
		o.tags[tag] = val
	}
}
