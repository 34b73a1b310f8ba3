package cli

import (
	"io"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Spinner is an indeterminate progress indicator shown while a request is
// outstanding.
type Spinner struct {
	bar *progressbar.ProgressBar
}

// StartSpinner starts a spinner on w with the given description.
func StartSpinner(w io.Writer, description string) *Spinner {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetSpinnerChangeInterval(100*time.Millisecond),
		progressbar.OptionSetDescription("[cyan]"+description+"[reset]"),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionClearOnFinish(),
	)
	if err := bar.RenderBlank(); err != nil {
		slog.Debug("Failed to render spinner", "error", err)
	}
	return &Spinner{bar: bar}
}

// Stop clears the spinner. It is safe to call more than once.
func (s *Spinner) Stop() {
	if s == nil || s.bar == nil {
		return
	}
	if err := s.bar.Finish(); err != nil {
		slog.Debug("Failed to finish spinner", "error", err)
	}
	if err := s.bar.Exit(); err != nil {
		slog.Debug("Failed to stop spinner", "error", err)
	}
	s.bar = nil
}
