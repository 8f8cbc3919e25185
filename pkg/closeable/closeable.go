// Package closeable provides cancellation tokens for deferred work.
//
// A token represents one cancellable registration. Closing a token is
// always idempotent: the first Close takes effect, every later Close is
// a no-op. Tokens compose into groups (Composite) and can be redirected
// to track a replaceable unit of work (Serial).
package closeable

import "sync"

// Closeable is a handle that cancels exactly the registration it was
// issued for. Close is safe to call more than once and from any
// goroutine; only the first call has an effect.
type Closeable interface {
	Close()
}

// noOp is the already-complete token. Closing it does nothing.
type noOp struct{}

func (noOp) Close() {}

// NoOp is returned for work that has already run and therefore cannot
// be cancelled.
var NoOp Closeable = noOp{}

// funcCloseable invokes a function at most once.
type funcCloseable struct {
	once sync.Once
	f    func()
}

func (c *funcCloseable) Close() {
	c.once.Do(c.f)
}

// Func wraps f into a Closeable that invokes it at most once, no matter
// how many times or from how many goroutines Close is called.
func Func(f func()) Closeable {
	return &funcCloseable{f: f}
}

// Composite is a dynamic group of child tokens. Closing the group
// closes every current child exactly once and moves the group into a
// permanently closed state: any token added afterwards is closed
// immediately instead of being retained.
type Composite struct {
	mu       sync.Mutex
	closed   bool
	children map[Closeable]struct{}
}

// NewComposite creates a group containing the given children.
func NewComposite(children ...Closeable) *Composite {
	c := &Composite{children: make(map[Closeable]struct{}, len(children))}
	for _, child := range children {
		c.children[child] = struct{}{}
	}
	return c
}

// Add puts child under the group's control. If the group is already
// closed, child is closed immediately and not retained.
func (c *Composite) Add(child Closeable) {
	if child == nil {
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		child.Close()
		return
	}
	c.children[child] = struct{}{}
	c.mu.Unlock()
}

// Remove detaches child from the group without closing it. Removing a
// token that is not in the group is a no-op.
func (c *Composite) Remove(child Closeable) {
	c.mu.Lock()
	delete(c.children, child)
	c.mu.Unlock()
}

// Close closes all current children and marks the group closed.
// Children are closed outside the group's lock so a child may safely
// call back into Add or Remove.
func (c *Composite) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	snapshot := make([]Closeable, 0, len(c.children))
	for child := range c.children {
		snapshot = append(snapshot, child)
	}
	c.children = make(map[Closeable]struct{})
	c.mu.Unlock()

	for _, child := range snapshot {
		child.Close()
	}
}

// Closed reports whether the group has been closed.
func (c *Composite) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Len returns the number of children currently in the group.
func (c *Composite) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.children)
}

// Serial holds at most one underlying token at a time and forwards
// Close to whichever is currently held. Replacing the underlying token
// while the Serial is open does not close the previous one; that is the
// caller's responsibility. Once the Serial is closed, every token set
// afterwards is closed immediately.
type Serial struct {
	mu      sync.Mutex
	closed  bool
	current Closeable
}

// NewSerial creates an empty redirectable token.
func NewSerial() *Serial {
	return &Serial{}
}

// Set redirects the Serial to token. If the Serial is already closed,
// token is closed immediately instead.
func (s *Serial) Set(token Closeable) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		if token != nil {
			token.Close()
		}
		return
	}
	s.current = token
	s.mu.Unlock()
}

// Get returns the currently held token, or nil if none is held.
func (s *Serial) Get() Closeable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Close closes the currently held token, if any, and marks the Serial
// closed.
func (s *Serial) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	current := s.current
	s.current = nil
	s.mu.Unlock()

	if current != nil {
		current.Close()
	}
}

// Closed reports whether the Serial has been closed.
func (s *Serial) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
