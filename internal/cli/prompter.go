package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/Veraticus/till/internal/model"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// Prompter asks the user questions on a terminal.
type Prompter struct {
	writer  io.Writer
	reader  *bufio.Reader
	readMu  sync.Mutex
	assumeY bool
}

// NewPrompter creates a prompter reading from reader and writing to writer.
// Nil values select stdin and stdout.
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Prompter{reader: bufio.NewReader(reader), writer: writer}
}

// AssumeYes makes every confirmation succeed without reading input.
func (p *Prompter) AssumeYes(yes bool) {
	p.assumeY = yes
}

// Writer is where the prompter prints.
func (p *Prompter) Writer() io.Writer {
	return p.writer
}

// ConfirmIntent shows the summary and asks for explicit confirmation. Only
// "y" or "yes" confirms; anything else, including an empty line, declines.
func (p *Prompter) ConfirmIntent(ctx context.Context, summary model.IntentSummary) (bool, error) {
	if _, err := fmt.Fprintln(p.writer, RenderSummary(summary)); err != nil {
		return false, fmt.Errorf("failed to write summary: %w", err)
	}

	if p.assumeY {
		return true, nil
	}

	answer, err := p.Ask(ctx, "Confirm? [y/N]")
	if err != nil {
		return false, err
	}

	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Ask prints label and returns the trimmed line the user types.
func (p *Prompter) Ask(ctx context.Context, label string) (string, error) {
	if _, err := fmt.Fprint(p.writer, FormatPrompt(label)+" "); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}

	line, err := p.readLine(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// AskRequired repeats the question until a non-empty answer is given.
func (p *Prompter) AskRequired(ctx context.Context, label string) (string, error) {
	for {
		answer, err := p.Ask(ctx, label)
		if err != nil {
			return "", err
		}
		if answer != "" {
			return answer, nil
		}
		if _, err := fmt.Fprintln(p.writer, FormatError("A value is required.")); err != nil {
			slog.Warn("Failed to write error message", "error", err)
		}
	}
}

// readLine reads one line, returning early with ErrInputCancelled when ctx
// is done. The pending read keeps the reader until it completes.
func (p *Prompter) readLine(ctx context.Context) (string, error) {
	type result struct {
		err   error
		value string
	}
	resultCh := make(chan result, 1)

	go func() {
		p.readMu.Lock()
		defer p.readMu.Unlock()

		value, err := p.reader.ReadString('\n')
		if errors.Is(err, io.EOF) && value != "" {
			err = nil
		}
		resultCh <- result{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-resultCh:
		if errors.Is(res.err, io.EOF) {
			return "", fmt.Errorf("input terminated: %w", res.err)
		}
		return res.value, res.err
	}
}
