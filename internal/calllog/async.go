package calllog

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const defaultQueueSize = 512

// AsyncLogger decouples call-log writes from bundle delivery: Log enqueues
// and returns immediately, a single writer goroutine drains the queue, and a
// full queue drops the entry rather than stalling the response.
type AsyncLogger struct {
	sink    Logger
	onError func(error)

	queue   chan Entry
	closed  bool
	mu      sync.RWMutex
	once    sync.Once
	wg      sync.WaitGroup
	pending sync.WaitGroup
}

func NewAsyncLogger(sink Logger, queueSize int, onError func(error)) *AsyncLogger {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	l := &AsyncLogger{
		sink:    sink,
		onError: onError,
		queue:   make(chan Entry, queueSize),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

func (l *AsyncLogger) run() {
	defer l.wg.Done()
	for entry := range l.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
		err := l.sink.Log(ctx, entry)
		cancel()
		if err != nil && l.onError != nil {
			l.onError(err)
		}
		l.pending.Done()
	}
}

func (l *AsyncLogger) Log(_ context.Context, entry Entry) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return fmt.Errorf("call logger is closed")
	}
	l.pending.Add(1)
	select {
	case l.queue <- entry:
		return nil
	default:
		l.pending.Done()
		return fmt.Errorf("call log queue is full")
	}
}

// Close stops accepting entries and waits for the queue to drain or ctx to
// expire.
func (l *AsyncLogger) Close(ctx context.Context) error {
	l.once.Do(func() {
		l.mu.Lock()
		l.closed = true
		close(l.queue)
		l.mu.Unlock()
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.wg.Wait()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitIdle blocks until every accepted entry has been written. Test hook.
func (l *AsyncLogger) WaitIdle(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.pending.Wait()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
