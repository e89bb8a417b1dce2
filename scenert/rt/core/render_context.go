package core

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"sync/atomic"
)

// RenderContext executes scene commands on the rendering side. Scene graph
// mutation is only legal from inside a command, on the goroutine running it.
type RenderContext struct {
	commands chan func()
	// owner is the goroutine running the current command, 0 when idle.
	owner  atomic.Uint64
	inline bool
}

// NewRenderContext returns a queued context; Start runs its commands.
func NewRenderContext(queueSize int) *RenderContext {
	return &RenderContext{commands: make(chan func(), queueSize)}
}

// NewInlineRenderContext runs every command immediately on the caller.
func NewInlineRenderContext() *RenderContext {
	return &RenderContext{inline: true}
}

// Start drains commands until ctx is done.
func (rc *RenderContext) Start(ctx context.Context) {
	if rc.inline {
		return
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case cmd := <-rc.commands:
				rc.run(cmd)
			}
		}
	}()
}

func (rc *RenderContext) run(cmd func()) {
	id := goroutineID()
	if rc.owner.Load() == id {
		cmd()
		return
	}
	rc.owner.Store(id)
	defer rc.owner.Store(0)
	cmd()
}

// Enqueue submits a command. Commands run in submission order.
func (rc *RenderContext) Enqueue(cmd func()) {
	if rc.inline {
		rc.run(cmd)
		return
	}
	rc.commands <- cmd
}

// Flush blocks until every command enqueued before it has run.
func (rc *RenderContext) Flush() {
	if rc.inline {
		return
	}
	done := make(chan struct{})
	rc.commands <- func() { close(done) }
	<-done
}

// InRenderContext reports whether the caller is the goroutine running the
// current command.
func (rc *RenderContext) InRenderContext() bool {
	owner := rc.owner.Load()
	return owner != 0 && owner == goroutineID()
}

// goroutineID parses the id from the "goroutine N [" header of the caller's stack.
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		panic("render context: unreadable goroutine id " + strconv.Quote(string(b)))
	}
	return id
}
