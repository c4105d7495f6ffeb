package util

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gosuri/uilive"
	channerics "github.com/niceyeti/channerics/channels"
)

// TerminalPrinter redraws a fixed block of lines in place, one line per
// ParallelOutput, every frequency.
type TerminalPrinter struct {
	outputs   []*ParallelOutput
	frequency time.Duration
	doneCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	writer  *uilive.Writer
	writers []io.Writer
}

func NewTerminalPrinter(out io.Writer, frequency time.Duration) *TerminalPrinter {
	w := uilive.New()
	w.Out = out
	return &TerminalPrinter{
		outputs:   make([]*ParallelOutput, 0),
		frequency: frequency,
		doneCh:    make(chan struct{}),
		writer:    w,
		writers:   make([]io.Writer, 0),
	}
}

// NewOutput adds a line. All outputs must be added before Start.
func (t *TerminalPrinter) NewOutput() *ParallelOutput {
	out := NewParallelOutput()
	if len(t.outputs) == 0 {
		t.writers = append(t.writers, t.writer)
	} else {
		t.writers = append(t.writers, t.writer.Newline())
	}
	t.outputs = append(t.outputs, out)
	return out
}

func (t *TerminalPrinter) Start(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-t.doneCh:
		}
		close(done)
	}()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for range channerics.NewTicker(done, t.frequency) {
			t.print()
		}
		t.print()
	}()
}

// Stop prints the outputs one last time and waits for the printer to exit.
func (t *TerminalPrinter) Stop() {
	t.stopOnce.Do(func() { close(t.doneCh) })
	t.wg.Wait()
}

// Write replaces the whole block with out.
func (t *TerminalPrinter) Write(out string) {
	fmt.Fprint(t.writer, out)
	t.writer.Flush()
}

func (t *TerminalPrinter) print() {
	for i, output := range t.outputs {
		fmt.Fprint(t.writers[i], output.Get()+"\n")
	}
	t.writer.Flush()
}

// ParallelOutput is one line of a TerminalPrinter, updated from any goroutine.
type ParallelOutput struct {
	mu        *sync.Mutex
	printable string
}

func NewParallelOutput() *ParallelOutput {
	return &ParallelOutput{
		mu: new(sync.Mutex),
	}
}

func (p *ParallelOutput) Set(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printable = s
}

func (p *ParallelOutput) Get() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.printable
}
