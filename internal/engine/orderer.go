package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/ri/internal/discovery"
	"github.com/roach88/ri/internal/ir"
)

// GetUpdates discovers instructions and returns them grouped by owner, in
// discovery order, each group sorted by ascending version.
//
// The sort is stable, so equal versions keep discovery order. With
// excludeExecuted, instructions whose status is true are dropped and owners
// left empty are omitted.
func (e *Engine) GetUpdates(ctx context.Context, excludeExecuted bool) ([]discovery.Group, error) {
	groups, err := e.source.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}

	var st ir.Status
	if excludeExecuted {
		if st, err = e.status.GetAll(ctx); err != nil {
			return nil, err
		}
	}

	out := make([]discovery.Group, 0, len(groups))
	for _, g := range groups {
		insts := make([]ir.Instruction, 0, len(g.Instructions))
		for _, inst := range g.Instructions {
			if excludeExecuted && st.Executed(inst.Name) {
				continue
			}
			insts = append(insts, inst)
		}
		if len(insts) == 0 {
			continue
		}
		sort.SliceStable(insts, func(i, j int) bool {
			return insts[i].Version < insts[j].Version
		})
		out = append(out, discovery.Group{Owner: g.Owner, Instructions: insts})
	}
	return out, nil
}

// flatten returns the instructions of groups in execution order.
func flatten(groups []discovery.Group) []ir.Instruction {
	var out []ir.Instruction
	for _, g := range groups {
		out = append(out, g.Instructions...)
	}
	return out
}
