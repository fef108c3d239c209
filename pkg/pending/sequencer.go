package pending

import "sync/atomic"

// Sequencer hands out strictly increasing sequence numbers.
type Sequencer struct {
	last atomic.Int64
}

// NewSequencer returns a sequencer whose first Next is start+1.
func NewSequencer(start int64) *Sequencer {
	s := &Sequencer{}
	s.last.Store(start)
	return s
}

// Next returns the next sequence number.
func (s *Sequencer) Next() int64 { return s.last.Add(1) }

// Current returns the last number handed out.
func (s *Sequencer) Current() int64 { return s.last.Load() }

// Advance moves the sequencer forward to at least v. It never moves back.
func (s *Sequencer) Advance(v int64) {
	for {
		cur := s.last.Load()
		if v <= cur || s.last.CompareAndSwap(cur, v) {
			return
		}
	}
}
