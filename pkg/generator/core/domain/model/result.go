package model

// BatchSlice holds the per-kind counts taken by one invocation.
type BatchSlice struct {
	taken [kindCount]int
}

// Take records n items of kind.
func (s *BatchSlice) Take(kind EntityKind, n int) {
	if kind.valid() && n > 0 {
		s.taken[kind] += n
	}
}

// Taken returns the count taken for kind.
func (s BatchSlice) Taken(kind EntityKind) int {
	if !kind.valid() {
		return 0
	}
	return s.taken[kind]
}

// Total returns the count taken across kinds.
func (s BatchSlice) Total() int {
	total := 0
	for _, n := range s.taken {
		total += n
	}
	return total
}

// BatchResult summarizes one coordinator invocation.
type BatchResult struct {
	// Created is true when at least one creation call succeeded.
	Created bool
	// Slice is what this invocation took.
	Slice BatchSlice
	// Requeued is true when a continuation was handed to the scheduler.
	Requeued bool
	// Remaining is the request after this invocation's decrements.
	Remaining *GenerationRequest
}
