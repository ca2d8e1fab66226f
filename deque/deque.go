/*
Package deque keeps the most recent forcing samples of a stream.

ArrDeque is a ring over one array of model.Sample, oldest sample first.
Samples enter at the back; once the ring is full each push evicts the
oldest one. The hub integrates over the whole window, or its newest n
samples, on every run.
*/
package deque

import "glacier/model"

type Deque interface {
	// number of samples held
	Size() int

	// number of samples held once full
	Capacity() int

	// forward traversal of [start, end), oldest first, clamped to the
	// samples held
	TraverseRange(start, end int, f func(i int, s model.Sample))

	// AddLast appends s, false when full
	AddLast(s model.Sample) bool

	// RemoveFirst drops the oldest sample, false when empty
	RemoveFirst() (model.Sample, bool)

	// Push appends s and evicts the oldest sample when full
	Push(s model.Sample) (evicted model.Sample, ok bool)

	// Clear drops every sample, the capacity stays
	Clear()

	// Forcing copies the samples into series form
	Forcing() model.Forcing

	// Last copies the newest n samples into series form, all of them when
	// n is not positive or exceeds the size
	Last(n int) model.Forcing

	IsFull() bool

	IsEmpty() bool
}
