package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// InterruptHandler cancels a command on SIGINT or SIGTERM and explains what
// that means for a transaction that may already be with the bank.
type InterruptHandler struct {
	writer      io.Writer
	inFlight    func() bool
	notify      func(chan<- os.Signal)
	interrupted bool
	mu          sync.Mutex
}

// NewInterruptHandler creates a new interrupt handler. inFlight reports
// whether a money-moving call is outstanding; it may be nil.
func NewInterruptHandler(writer io.Writer, inFlight func() bool) *InterruptHandler {
	if writer == nil {
		writer = os.Stderr
	}
	return &InterruptHandler{
		writer:   writer,
		inFlight: inFlight,
		notify: func(c chan<- os.Signal) {
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		},
	}
}

// HandleInterrupts returns a context canceled on the first interrupt. The
// returned stop func releases the signal handler.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	sigChan := make(chan os.Signal, 1)
	h.notify(sigChan)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigChan:
			h.mu.Lock()
			if !h.interrupted {
				h.interrupted = true
				h.showInterruptMessage()
			}
			h.mu.Unlock()
			cancel()
		case <-done:
		}
	}()

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			signal.Stop(sigChan)
			close(done)
			cancel()
		})
	}
}

func (h *InterruptHandler) showInterruptMessage() {
	msg := "\n" + FormatWarning("Interrupted.")

	if h.inFlight != nil && h.inFlight() {
		msg += "\n" + FormatInfo("A request was in flight and may still complete at the bank.")
		msg += "\n" + FormatInfo("Check `till transactions` before trying again.")
	}

	if _, err := fmt.Fprintln(h.writer, msg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write interrupt message: %v\n", err)
	}
}

// WasInterrupted returns true if the process was interrupted.
func (h *InterruptHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}
