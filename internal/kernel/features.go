package kernel

import "golang.org/x/sys/cpu"

// NativeLabel names the native execution path for dispatch records and
// explain strings. The AVX2 probe mirrors the labels the original AVX2
// kernels reported; on other architectures the generic label is used.
func NativeLabel() string {
	if cpu.X86.HasAVX2 {
		return "Corepy AVX2"
	}
	return "Corepy Native"
}
