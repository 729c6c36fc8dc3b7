package spinning

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// syncBuffer is a bytes.Buffer safe for concurrent use.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinning(t *testing.T) {
	Period = time.Millisecond
	var buf syncBuffer
	s := NewWithWriter(context.Background(), &buf, "Replaying")
	time.Sleep(20 * time.Millisecond)
	s.Done()
	s.Done()
	out := buf.String()
	assert.Contains(t, out, "Replaying")
	assert.Contains(t, out, "\033[?25h") // Cursor restored.
	assert.Contains(t, out, "\r\033[0K") // Line cleared.
}

func TestSpinningCancelled(t *testing.T) {
	var buf syncBuffer
	ctx, cancel := context.WithCancel(context.Background())
	s := NewWithWriter(ctx, &buf, "")
	cancel()
	s.Done()
	assert.Contains(t, buf.String(), "\r\033[0K")
}
