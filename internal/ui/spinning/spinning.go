// Package spinning provides a friendly spinning symbol to show while the program is busy
// (e.g.: replaying memories), and the handling of interrupts (Ctrl+C).
package spinning

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
	"k8s.io/klog/v2"
)

// Spinning shows a message followed by a spinning symbol until Done is called.
type Spinning struct {
	wg     sync.WaitGroup
	cancel func()
}

var (
	ThemeAscii = []rune(`|/-\`)
	ThemeMoon  = []rune("\U0001F311\U0001F312\U0001F313\U0001F314\U0001F315\U0001F316\U0001F317\U0001F318")

	// Theme defaults to ThemeAscii, but it can be set to anything else.
	Theme = ThemeAscii

	// Period between updates of the spinning symbol.
	Period = 200 * time.Millisecond
)

// SafeInterrupt will capture SigInt (Ctrl+C) and SigTerm and call the provided onInterrupt.
// If the program haven't exited after gracePeriod, it will call Reset to reset the terminal
// and exit.
func SafeInterrupt(onInterrupt func(), gracePeriod time.Duration) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigChan
		fmt.Println()
		klog.Errorf("Got interrupted (signal %q), shutting down... (%s)", s, gracePeriod)
		if onInterrupt != nil {
			go onInterrupt()
		}

		// Wait for gracePeriod before exiting.
		time.Sleep(gracePeriod)
		Reset()
		klog.Fatalf("Graceful shutting down %s period expired, exiting.", gracePeriod)
	}()
}

// Reset terminal: make cursor visible, restore default terminal colors.
func Reset() {
	fmt.Print("\033[?25h\033[39;49;0m\n") // Restore cursor and colors.
}

// New starts spinning on stdout, if it is a terminal, after printing message.
// It stops when Spinning.Done is called, or ctx is cancelled.
func New(ctx context.Context, message string) *Spinning {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return &Spinning{}
	}
	return NewWithWriter(ctx, os.Stdout, message)
}

// NewWithWriter is like New, but it always spins, writing to w.
func NewWithWriter(ctx context.Context, w io.Writer, message string) *Spinning {
	s := &Spinning{}
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(Period)
		defer ticker.Stop()
		_, _ = fmt.Fprint(w, "\033[?25l")                    // Hide cursor.
		defer func() { _, _ = fmt.Fprint(w, "\033[?25h") }() // Restore cursor.

		_, _ = fmt.Fprintf(w, "%s  ", message)
		for spinningIdx := 0; ; spinningIdx = (spinningIdx + 1) % len(Theme) {
			_, _ = fmt.Fprintf(w, "\b\b%c ", Theme[spinningIdx])
			select {
			case <-ctx.Done():
				// Erase the line.
				_, _ = fmt.Fprint(w, "\r\033[0K")
				return
			case <-ticker.C:
				// continue
			}
		}
	}()
	return s
}

// Done stops the spinning and waits for the line to be cleared. It's safe to call it more than once.
func (s *Spinning) Done() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.wg.Wait()
}
