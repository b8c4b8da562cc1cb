package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Transcript is the deterministic record of a scenario run compared
// against golden files.
type Transcript struct {
	Scenario string       `json:"scenario"`
	Steps    []StepResult `json:"steps"`
	History  []HistoryRow `json:"history"`
	Status   any          `json:"status"`
}

// HistoryRow is a history record without its store-assigned ID.
type HistoryRow struct {
	RunID   string `json:"run_id"`
	Seq     int64  `json:"seq"`
	Name    string `json:"name"`
	Outcome string `json:"outcome"`
	Message string `json:"message,omitempty"`
}

// NewTranscript builds the transcript of result.
func NewTranscript(name string, result *Result) Transcript {
	rows := make([]HistoryRow, len(result.History))
	for i, e := range result.History {
		rows[i] = HistoryRow{RunID: e.RunID, Seq: e.Seq, Name: e.Name, Outcome: string(e.Outcome), Message: e.Message}
	}
	return Transcript{Scenario: name, Steps: result.Steps, History: rows, Status: result.Status}
}

// MarshalTranscript renders a transcript as indented JSON with a trailing
// newline. Map keys are sorted by encoding/json.
func MarshalTranscript(tr Transcript) ([]byte, error) {
	data, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario in a temp dir and compares its
// transcript against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, t.TempDir())
	if err != nil {
		return nil, err
	}

	data, err := MarshalTranscript(NewTranscript(scenario.Name, result))
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return result, nil
}
