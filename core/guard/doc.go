// Package guard detects whether the current execution path runs inside the
// event ingestion path, where reporting an error would feed the same path
// again and loop.
//
// Two detection strategies are provided. ContextGuard reads an explicit
// reentrancy flag that the ingestion path sets on its context with MarkUnsafe.
// StackGuard walks the calling goroutine's stack and matches each frame's
// source file against a LocationSet of path suffixes. New combines both.
package guard
