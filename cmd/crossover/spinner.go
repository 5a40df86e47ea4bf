package main

import (
	"os"

	"github.com/rxtech-lab/argo-crossover/internal/broker"
	"github.com/schollz/progressbar/v3"
)

// spinner shows progress of an operation of unknown length on stderr.
type spinner struct {
	bar *progressbar.ProgressBar
}

func newSpinner(description string) *spinner {
	return &spinner{
		bar: progressbar.NewOptions(-1,
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish(),
		),
	}
}

// OnPoll advances the spinner with the status of a pending order.
func (s *spinner) OnPoll(state broker.OrderState) {
	s.bar.Describe("Waiting for order (" + state.RawStatus + ")")
	_ = s.bar.Add(1)
}

func (s *spinner) Finish() {
	_ = s.bar.Finish()
}
