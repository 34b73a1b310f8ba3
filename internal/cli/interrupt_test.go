package cli

import (
	"bytes"
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer provides thread-safe access to a bytes.Buffer.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (s *syncBuffer) Write(p []byte) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func newTestHandler(t *testing.T, inFlight func() bool) (*InterruptHandler, *syncBuffer, func() chan<- os.Signal) {
	t.Helper()

	output := &syncBuffer{}
	h := NewInterruptHandler(output, inFlight)

	var (
		mu  sync.Mutex
		sig chan<- os.Signal
	)
	h.notify = func(c chan<- os.Signal) {
		mu.Lock()
		defer mu.Unlock()
		sig = c
	}
	return h, output, func() chan<- os.Signal {
		mu.Lock()
		defer mu.Unlock()
		return sig
	}
}

func TestHandleInterrupts_CancelsContext(t *testing.T) {
	h, output, sig := newTestHandler(t, nil)

	ctx, stop := h.HandleInterrupts(context.Background())
	defer stop()

	select {
	case <-ctx.Done():
		t.Fatal("context should not be canceled initially")
	default:
	}

	sig() <- os.Interrupt

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not canceled")
	}

	assert.Eventually(t, h.WasInterrupted, time.Second, 10*time.Millisecond)
	assert.Contains(t, output.String(), "Interrupted.")
	assert.NotContains(t, output.String(), "in flight")
}

func TestHandleInterrupts_WarnsWhenInFlight(t *testing.T) {
	h, output, sig := newTestHandler(t, func() bool { return true })

	ctx, stop := h.HandleInterrupts(context.Background())
	defer stop()

	sig() <- os.Interrupt
	<-ctx.Done()

	require.Eventually(t, func() bool {
		return strings.Contains(output.String(), "till transactions")
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, strings.Count(output.String(), "Interrupted."))
}

func TestHandleInterrupts_StopWithoutSignal(t *testing.T) {
	h, output, _ := newTestHandler(t, nil)

	ctx, stop := h.HandleInterrupts(context.Background())
	stop()
	stop()

	<-ctx.Done()
	assert.False(t, h.WasInterrupted())
	assert.Empty(t, output.String())
}
