package hotpatch

import "context"

// Extension provides hooks into patcher operations
type Extension interface {
	// Name returns the extension's name
	Name() string

	// Order determines extension execution order (lower = earlier)
	Order() int

	// Init is called when the extension is registered to a patcher
	Init(p *Patcher) error

	// Wrap intercepts operations (patch, execute, restore, ...)
	Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error)

	// OnError is called after an operation fails
	OnError(err error, op *Operation, p *Patcher)

	// Dispose is called when the patcher is disposed
	Dispose(p *Patcher) error
}

// BaseExtension provides default implementations for Extension methods
type BaseExtension struct {
	name string
}

// NewBaseExtension creates a new base extension with the given name
func NewBaseExtension(name string) BaseExtension {
	return BaseExtension{name: name}
}

func (e *BaseExtension) Name() string {
	return e.name
}

func (e *BaseExtension) Order() int {
	return 100
}

func (e *BaseExtension) Init(p *Patcher) error {
	return nil
}

func (e *BaseExtension) Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error) {
	return next()
}

func (e *BaseExtension) OnError(err error, op *Operation, p *Patcher) {
}

func (e *BaseExtension) Dispose(p *Patcher) error {
	return nil
}

// Operation describes what operation is happening
type Operation struct {
	Kind    OperationKind
	Key     string
	Patcher *Patcher
}

// OperationKind represents the type of operation
type OperationKind string

const (
	// OpPatch indicates a function registration (chained or not)
	OpPatch OperationKind = "patch"
	// OpGet indicates a lookup
	OpGet OperationKind = "get"
	// OpExecute indicates an invocation by key
	OpExecute OperationKind = "execute"
	// OpRestore indicates a reset to the original function
	OpRestore OperationKind = "restore"
	// OpSetFinal indicates a final lock
	OpSetFinal OperationKind = "set-final"
	// OpControl indicates a registry merge between two patchers
	OpControl OperationKind = "control"
	// OpSequence indicates function composition
	OpSequence OperationKind = "sequence"
	// OpConfigure indicates a configuration change
	OpConfigure OperationKind = "configure"
)
