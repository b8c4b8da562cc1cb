package ir

// Owner describes a namespace (plugin) that contributes release instructions.
type Owner struct {
	// Key uniquely identifies the owner (the plugin directory name).
	Key string `json:"key"`

	// Name is the display name; the instruction prefix is derived from it.
	Name string `json:"name"`

	// Version is the owner's own declared version. Informational only.
	Version string `json:"version,omitempty"`

	// Description is free text from the owner's manifest.
	Description string `json:"description,omitempty"`

	// RI is the capability flag. Owners without it are never scanned.
	RI bool `json:"ri"`
}

// Prefix returns the instruction name prefix derived from the display name.
func (o Owner) Prefix() string {
	return Prefix(o.Name)
}

// Instruction identifies one unit of release work.
type Instruction struct {
	// Owner is the key of the contributing owner.
	Owner string `json:"owner"`

	// Name is the globally unique callable identifier.
	Name string `json:"name"`

	// Version orders instructions within Owner. Not contiguous.
	Version int64 `json:"version"`

	// Unit is the path of the source unit that defined the instruction.
	// Empty for instructions registered from Go code.
	Unit string `json:"unit,omitempty"`
}

// SourceUnit is a discoverable container of instruction definitions.
type SourceUnit struct {
	Owner string `json:"owner"`
	Path  string `json:"path"`
}

// Status maps instruction names to their executed flag.
type Status map[string]bool

// Executed reports whether name is present and true.
// A nil Status reports false for every name.
func (s Status) Executed(name string) bool {
	return s[name]
}

// Clone returns an independent copy, never nil.
func (s Status) Clone() Status {
	out := make(Status, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Outcome classifies what happened to one instruction in a run.
type Outcome string

const (
	// OutcomeExecuted means the callable returned and its status persisted.
	OutcomeExecuted Outcome = "executed"

	// OutcomeUnpersisted means the callable returned but the status write failed.
	OutcomeUnpersisted Outcome = "unpersisted"

	// OutcomeMissing means no callable with the requested name exists.
	OutcomeMissing Outcome = "missing"

	// OutcomeFailed means the callable returned an error.
	OutcomeFailed Outcome = "failed"
)

// Execution is one history record of a runSingle attempt.
type Execution struct {
	// ID is assigned by the store on append.
	ID int64 `json:"id,omitempty"`

	// RunID groups the records of one command invocation.
	RunID string `json:"run_id"`

	// Scope is the status scope (tenant) the run operated on.
	Scope string `json:"scope"`

	// Seq is the logical step within the run, starting at 1.
	Seq int64 `json:"seq"`

	Name    string  `json:"name"`
	Owner   string  `json:"owner,omitempty"`
	Version int64   `json:"version"`
	Outcome Outcome `json:"outcome"`
	Message string  `json:"message"`
}
