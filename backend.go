package corepy

import (
	"fmt"
	"time"

	"github.com/Legend-Vipin/corepy/internal/kernel"
)

// Policy selects how matmul dispatch chooses its backend. The numeric codes
// are stable and appear on the wire.
type Policy uint8

const (
	// PolicyDefault picks the backend per call from the size heuristic.
	PolicyDefault Policy = 0

	// PolicyOpenBLAS forces the vendor BLAS path.
	PolicyOpenBLAS Policy = 1

	// PolicyBLAS forces the vendor BLAS path through the generic
	// interface.
	PolicyBLAS Policy = 2

	// PolicyAccelerator is reserved for an accelerator backend. The CPU
	// dispatch layer refuses it with ErrBackendNotHandled instead of
	// silently running native.
	PolicyAccelerator Policy = 3
)

func (p Policy) String() string {
	switch p {
	case PolicyDefault:
		return "DEFAULT"
	case PolicyOpenBLAS:
		return "OPENBLAS"
	case PolicyBLAS:
		return "BLAS"
	case PolicyAccelerator:
		return "ACCELERATOR"
	}
	return fmt.Sprintf("Policy(%d)", uint8(p))
}

// PolicyFromCode maps a wire code to a policy. Unknown codes fall back to
// PolicyDefault.
func PolicyFromCode(code uint8) Policy {
	switch code {
	case 1:
		return PolicyOpenBLAS
	case 2:
		return PolicyBLAS
	case 3:
		return PolicyAccelerator
	}
	return PolicyDefault
}

// Code returns the stable wire code of the policy.
func (p Policy) Code() uint8 { return uint8(p) }

// Backend ids recorded by dispatch. Id 1 covers the whole vendor path; the
// linked implementation decides whether that is OpenBLAS or another CBLAS.
const (
	backendNative uint8 = 0
	backendVendor uint8 = 1
)

// backendName renders a backend id for Explain output.
func backendName(id uint8) string {
	switch id {
	case 0:
		return kernel.NativeLabel()
	case 1:
		return "OpenBLAS"
	case 2:
		return "BLAS"
	case 3:
		return "Accelerator"
	}
	return "Unknown"
}

// backendCPU is the backend label profile scopes open under. Dispatch may
// refine the actual backend afterwards; the profiler keeps the coarse
// label.
const backendCPU = "CPU"

// dispatchInfo is the detailed record of the most recent matmul dispatch.
type dispatchInfo struct {
	backendID uint8
	operation string
	m, n, k   int
	policy    Policy
	at        time.Time
}

// SetPolicy installs the dispatch policy for subsequent operations.
func (r *Runtime) SetPolicy(p Policy) {
	r.policy.Store(uint32(p.Code()))
}

// Policy returns the active dispatch policy. Stored codes outside the known
// range read back as PolicyDefault.
func (r *Runtime) Policy() Policy {
	return PolicyFromCode(uint8(r.policy.Load()))
}

// recordDispatch updates both dispatch tiers: the always-cheap last-backend
// id, and the detailed record Explain prefers. Called before the kernel
// runs, so a crashing kernel still leaves the routing decision observable.
func (r *Runtime) recordDispatch(id uint8, op string, m, n, k int, policy Policy) {
	r.lastSimple.Store(uint32(id))
	r.dispatchMu.Lock()
	r.lastDetailed = &dispatchInfo{
		backendID: id,
		operation: op,
		m:         m,
		n:         n,
		k:         k,
		policy:    policy,
		at:        time.Now(),
	}
	r.dispatchMu.Unlock()
	dispatchTotal.WithLabelValues(op, backendName(id)).Inc()
}

// Explain describes the most recent dispatch decision in one line. With a
// detailed record available it reports operation, backend, dimensions,
// policy and age; before any detailed record it falls back to naming the
// last backend alone.
func (r *Runtime) Explain() string {
	r.dispatchMu.Lock()
	info := r.lastDetailed
	r.dispatchMu.Unlock()

	if info != nil {
		return fmt.Sprintf("%s → %s (size=%dx%dx%d, policy=%s, %dµs ago)",
			info.operation,
			backendName(info.backendID),
			info.m, info.n, info.k,
			info.policy,
			time.Since(info.at).Microseconds(),
		)
	}

	switch uint8(r.lastSimple.Load()) {
	case 0:
		return "Default CPU backend"
	case 1:
		return "OpenBLAS backend"
	case 2:
		return "BLAS backend"
	case 3:
		return "Accelerator backend"
	default:
		return fmt.Sprintf("Unknown backend (%d)", r.lastSimple.Load())
	}
}

// VendorBLAS reports whether a vendor BLAS implementation is linked into
// this binary.
func VendorBLAS() bool { return kernel.Available() }
