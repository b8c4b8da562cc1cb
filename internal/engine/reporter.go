package engine

import "context"

// Preview lists instructions without running anything.
//
// With all, every discovered instruction is listed with an "x" (executed)
// or " " (pending) marker. Otherwise only pending ones are listed, without
// markers. "Nothing to execute." is emitted when the list is empty or
// contains no pending instruction. Preview never writes status.
func (e *Engine) Preview(ctx context.Context, all bool) error {
	groups, err := e.GetUpdates(ctx, !all)
	if err != nil {
		return err
	}
	st, err := e.status.GetAll(ctx)
	if err != nil {
		return err
	}

	if all {
		e.out.Emit(SeverityPlain, MsgPreviewAll)
	} else {
		e.out.Emit(SeverityPlain, MsgPreviewPending)
	}

	count, pending := 0, 0
	for _, inst := range flatten(groups) {
		executed := st.Executed(inst.Name)
		if !executed {
			pending++
		}
		sev := SeverityPlain
		if all {
			sev = SeverityPending
			if executed {
				sev = SeverityExecuted
			}
		}
		e.out.Emit(sev, inst.Name+"()")
		count++
	}

	if count == 0 || pending == 0 {
		e.out.Emit(SeverityNotice, MsgNothingToExecute)
	}
	e.out.Emit(SeverityPlain, MsgEndOfList)
	return nil
}
