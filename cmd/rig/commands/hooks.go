package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/auralab/rig"
)

// printTrialHook prints one line per completed trial.
type printTrialHook struct {
	out io.Writer
}

func (h *printTrialHook) OnAfterTrial(ctx context.Context, event rig.AfterTrialEvent) {
	rec := event.Record
	fmt.Fprintf(h.out, "trial %d  target=%v  laser=%v", rec.TrialNum, rec.Extra["target"], rec.Extra[rig.FieldLaser])
	if lasered, _ := rec.Extra[rig.FieldLaser].(bool); lasered {
		fmt.Fprintf(h.out, "  duration=%v freq=%v duty=%v",
			rec.Extra[rig.FieldLaserDuration],
			rec.Extra[rig.FieldLaserFrequency],
			rec.Extra[rig.FieldLaserDutyCycle])
	}
	fmt.Fprintln(h.out)
}
