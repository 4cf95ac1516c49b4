package guard

// Functions in this file stand in for the ingestion path: tests put this
// file's suffix in the unsafe set and call the guard from inside them.

const unsafeRegionFile = "core/guard/unsafe_region_test.go"

//go:noinline
func inUnsafeRegion(f func() bool) bool {
	return f()
}
