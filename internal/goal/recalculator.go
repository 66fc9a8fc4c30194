package goal

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/MrJamesThe3rd/stash/internal/undo"
)

// Recalculator runs RecalculateAll under the history lock shared with goal
// edits, so a stale tag can never overwrite progress written after a tag
// change. Concurrent callers share a run as long as it started after they
// called Run.
type Recalculator struct {
	svc     *Service
	history *undo.Manager
	group   singleflight.Group
	runs    atomic.Uint64
}

type recalcRun struct {
	result *RecalculateResult
	seq    uint64
}

func NewRecalculator(svc *Service, history *undo.Manager) *Recalculator {
	return &Recalculator{svc: svc, history: history}
}

// Run recalculates every goal. The run is detached from ctx cancellation
// once started, since other callers may be waiting on it.
func (r *Recalculator) Run(ctx context.Context) (*RecalculateResult, error) {
	since := r.runs.Load()

	for {
		v, err, shared := r.group.Do("all", func() (any, error) {
			run := &recalcRun{}

			err := r.history.Do(context.WithoutCancel(ctx), func(ctx context.Context) error {
				run.seq = r.runs.Add(1)

				var err error
				run.result, err = r.svc.RecalculateAll(ctx)

				return err
			})

			return run, err
		})

		run, _ := v.(*recalcRun)

		// A shared run that began before this call may have missed writes
		// the caller made just before calling Run.
		if shared && run != nil && run.seq <= since {
			r.svc.logger.Debug("shared recalculation predates caller, running again")
			continue
		}

		if err != nil {
			return nil, err
		}

		if shared {
			r.svc.logger.Debug("recalculation shared with a concurrent caller")
		}

		return run.result, nil
	}
}
