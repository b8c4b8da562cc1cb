package ir

// Version constants for the runner and its persisted data.
const (
	// RunnerVersion is the release-instruction runner version.
	RunnerVersion = "1.0.6"

	// StatusOption is the key-value store option holding the status mapping.
	StatusOption = "ri_executed"
)
