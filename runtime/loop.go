package runtime

import (
	"context"
)

// Loop drives an Orchestrator headlessly. It runs every effect on its own
// goroutine and applies the resulting events on the calling goroutine, so
// the Orchestrator is only ever touched by one goroutine.
type Loop struct {
	orch        *Orchestrator
	runner      EffectRunner
	events      chan Event
	outstanding int
}

// NewLoop creates a loop.
func NewLoop(orch *Orchestrator, runner EffectRunner) *Loop {
	return &Loop{
		orch:   orch,
		runner: runner,
		events: make(chan Event),
	}
}

// Orchestrator returns the driven orchestrator.
func (l *Loop) Orchestrator() *Orchestrator {
	return l.orch
}

// Submit submits text and runs until all resulting work has finished.
func (l *Loop) Submit(ctx context.Context, text string) error {
	effects, err := l.orch.Submit(text)
	if err != nil {
		return err
	}
	return l.Run(ctx, effects)
}

// Select selects a historical query and runs until its hydration finishes.
func (l *Loop) Select(ctx context.Context, queryID string) error {
	effects, err := l.orch.SelectHistorical(queryID)
	if err != nil {
		return err
	}
	return l.Run(ctx, effects)
}

// Run launches effects and processes events until no effect is outstanding
// or ctx is done. On cancellation it waits for launched effects to return
// before reporting ctx.Err().
func (l *Loop) Run(ctx context.Context, effects []Effect) error {
	l.launch(ctx, effects)

	for l.outstanding > 0 {
		select {
		case ev := <-l.events:
			l.outstanding--
			if ev != nil {
				l.launch(ctx, l.orch.Handle(ev))
			}
		case <-ctx.Done():
			l.drain()
			return ctx.Err()
		}
	}
	// Effects cut short by cancellation return nil events.
	return ctx.Err()
}

func (l *Loop) launch(ctx context.Context, effects []Effect) {
	for _, eff := range effects {
		l.outstanding++
		go func() {
			l.events <- l.runner.Run(ctx, eff)
		}()
	}
}

// drain discards results of effects launched before cancellation.
func (l *Loop) drain() {
	for l.outstanding > 0 {
		<-l.events
		l.outstanding--
	}
}
