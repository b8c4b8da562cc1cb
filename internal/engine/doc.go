// Package engine orders, runs and previews release instructions.
//
// An Engine combines three collaborators injected at construction:
//
//   - a Source that discovers instructions grouped by owner,
//   - the Callables registry that invokes them by name,
//   - a StatusStore that records which names have been executed.
//
// GetUpdates is the single view both the executor (ExecuteOne, ExecuteAll)
// and the reporter (Preview) consult. Owners keep discovery order and
// instructions are stably sorted by numeric version within each owner.
//
// Execution is strictly sequential. A failing instruction is never marked
// executed and aborts the rest of the batch with an *ExecutionError. A
// missing instruction or a status write that cannot be persisted is
// reported and the batch continues.
//
// Every runSingle attempt gets a per-run logical sequence number from
// Clock, stamped on the history record and on the structured log entry.
// Wall-clock time is never used for ordering.
package engine
