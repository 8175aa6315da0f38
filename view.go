package harvest

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
)

// View is the lifetime scope of one page. Controllers built for a page take
// the view's Context as their scope and register their stop hooks with Own.
// Close cancels the context, so in-flight collaborator calls are abandoned,
// runs every stop hook, and suppresses any later change notification. A
// completion that arrives after Close is ignored.
type View struct {
	id     string
	name   string
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	stops    []func()
	onChange func()
}

// NewView opens a view scope derived from parent.
func NewView(parent context.Context, name string) *View {
	ctx, cancel := context.WithCancel(parent)
	v := &View{
		id:     uuid.NewString(),
		name:   name,
		ctx:    ctx,
		cancel: cancel,
	}
	capitan.Emit(ctx, ViewOpened,
		KeyName.Field(name),
		KeyView.Field(v.id),
	)
	return v
}

// ID returns the unique id of this view instance.
func (v *View) ID() string { return v.id }

// Name returns the page name the view was opened for.
func (v *View) Name() string { return v.name }

// Context returns the view's scope. It is canceled by Close.
func (v *View) Context() context.Context { return v.ctx }

// OnChange sets the callback invoked by Notify. The callback typically asks
// the presentation layer to re-render.
func (v *View) OnChange(fn func()) *View {
	v.mu.Lock()
	v.onChange = fn
	v.mu.Unlock()
	return v
}

// Notify invokes the change callback unless the view is closed.
func (v *View) Notify() {
	v.mu.Lock()
	fn := v.onChange
	closed := v.closed
	v.mu.Unlock()

	if closed || fn == nil {
		return
	}
	fn()
}

// Own registers a stop hook run by Close, in reverse registration order.
// Registering on a closed view runs the hook immediately.
func (v *View) Own(stop func()) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		stop()
		return
	}
	v.stops = append(v.stops, stop)
	v.mu.Unlock()
}

// Alive reports whether the view is still open.
func (v *View) Alive() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.closed
}

// Close tears the view down. It is safe to call more than once.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	stops := v.stops
	v.stops = nil
	v.onChange = nil
	v.mu.Unlock()

	v.cancel()
	for i := len(stops) - 1; i >= 0; i-- {
		stops[i]()
	}

	capitan.Emit(context.Background(), ViewClosed,
		KeyName.Field(v.name),
		KeyView.Field(v.id),
	)
}
