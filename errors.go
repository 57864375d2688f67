package corepy

import (
	"errors"

	"github.com/Legend-Vipin/corepy/internal/buffer"
)

// Sentinel errors returned by operations. Match with errors.Is.
var (
	// ErrNilBuffer is returned when an operand slice or base address is
	// nil. A non-nil empty slice is not an error; it takes the empty-input
	// result instead.
	ErrNilBuffer = buffer.ErrNilAddress

	// ErrBadAlignment is returned by the raw view constructors for base
	// addresses not aligned to the element size.
	ErrBadAlignment = buffer.ErrBadAlignment

	// ErrEmptyInput is returned by reductions that have no defined result
	// on empty input.
	ErrEmptyInput = errors.New("corepy: cannot compute mean of empty tensor")

	// ErrSizeMismatch is returned when operand lengths disagree with each
	// other or with the stated dimensions.
	ErrSizeMismatch = errors.New("corepy: operand size mismatch")

	// ErrBackendNotHandled is returned when the active policy names a
	// backend the CPU dispatch layer cannot serve, before any work or
	// dispatch record happens.
	ErrBackendNotHandled = errors.New("corepy: backend policy not handled by cpu dispatch")

	// ErrWorkerPanic is returned when a kernel panicked inside the worker
	// pool. The dispatch fails as a whole; the pool and the output buffer
	// remain usable, though the output contents are unspecified.
	ErrWorkerPanic = errors.New("corepy: worker panicked during dispatch")
)
