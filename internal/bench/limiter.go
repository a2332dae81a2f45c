package bench

// Limiter bounds in-flight extraction calls within one suite. Tasks past the
// cap block in Acquire until a slot frees; a failed task releases its slot
// like any other, so siblings are never blocked by failures.
type Limiter struct {
	slots chan struct{}
}

// NewLimiter creates a Limiter admitting at most max concurrent tasks.
func NewLimiter(max int) *Limiter {
	if max < 1 {
		max = 1
	}
	return &Limiter{slots: make(chan struct{}, max)}
}

// Acquire blocks until a slot is free.
func (l *Limiter) Acquire() {
	l.slots <- struct{}{}
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	<-l.slots
}
