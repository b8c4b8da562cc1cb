// Package ir provides the shared vocabulary types of the release-instruction
// runner.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal. This keeps ir
// the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Instruction views are recomputed on every invocation and never persisted
//   - Versions are int64 and only order instructions within one owner
//   - The execution status mapping is always read and written as a whole
//   - All JSON tags use snake_case
package ir
