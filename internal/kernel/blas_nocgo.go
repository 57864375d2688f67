//go:build !cgo

package kernel

// Without cgo there is no system BLAS to register; blas32 keeps its pure-Go
// implementation and the policy layer routes matmul to the native parallel
// path instead.
