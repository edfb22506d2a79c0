package sshagent

import "context"

// CompletionSlot is a one-shot handoff from a worker to exactly one
// awaiter: it transitions from pending to either fulfilled or failed
// exactly once. It is the Go realization of §3's CompletionSlot<T> —
// a buffered channel of capacity 1 gives the single write + single
// read semantics without extra locking.
type CompletionSlot[T any] struct {
	ch chan slotResult[T]
}

type slotResult[T any] struct {
	val T
	err error
}

// newCompletionSlot creates a slot ready to receive exactly one
// resolution.
func newCompletionSlot[T any]() *CompletionSlot[T] {
	return &CompletionSlot[T]{ch: make(chan slotResult[T], 1)}
}

// resolve fulfills the slot with a value. A slot takes exactly one
// resolution; a second resolve or reject is not detected, and it blocks
// while the first result has not yet been received.
func (s *CompletionSlot[T]) resolve(v T) {
	s.ch <- slotResult[T]{val: v}
}

// reject fails the slot with an error.
func (s *CompletionSlot[T]) reject(err error) {
	var zero T
	s.ch <- slotResult[T]{val: zero, err: err}
}

// Wait blocks until the slot is resolved or ctx is done. If ctx is done
// first, the slot itself is left unresolved from this waiter's point of
// view — the eventual resolution, if any, is simply never observed
// (§5: "a caller that abandons its completion slot forfeits the
// response").
func (s *CompletionSlot[T]) Wait(ctx context.Context) (T, error) {
	select {
	case r := <-s.ch:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
