package domain

// Reply is anything a pending request can be completed with.
type Reply interface {
	Sequence() int64
}

// Completion reports that a truck finished a command.
type Completion struct {
	TruckID   int32
	X         int32
	Y         int32
	StatusTag string
	Seq       int64
}

// Sequence implements Reply.
func (c Completion) Sequence() int64 { return c.Seq }

// Delivery reports that a package was dropped off.
type Delivery struct {
	TruckID   int32
	PackageID int64
	Seq       int64
}

// Sequence implements Reply.
func (d Delivery) Sequence() int64 { return d.Seq }

// StatusUpdate is the answer to a truck query.
type StatusUpdate struct {
	TruckID   int32
	X         int32
	Y         int32
	StatusTag string
	Seq       int64
}

// Sequence implements Reply.
func (s StatusUpdate) Sequence() int64 { return s.Seq }

// ErrorEntry is an explicit rejection from the world. It carries two
// sequence numbers: OriginSeq names the failed command, Seq is the entry's own.
type ErrorEntry struct {
	Message   string
	OriginSeq int64
	Seq       int64
}

// Sequence implements Reply.
func (e ErrorEntry) Sequence() int64 { return e.Seq }

// Ack is the generic marker a pending request resolves to when the world
// acknowledges receipt of a command.
type Ack struct {
	Seq int64
}

// Sequence implements Reply.
func (a Ack) Sequence() int64 { return a.Seq }

// Batch is one decoded inbound frame. Entry kinds are kept in separate
// slices; the dispatcher visits them in declaration order.
type Batch struct {
	Completions []Completion
	Deliveries  []Delivery
	Statuses    []StatusUpdate
	Errors      []ErrorEntry
	Acks        []int64

	// Finished is set when the world announces the session is over.
	Finished bool
}

// Size returns the number of entries in the batch.
func (b *Batch) Size() int {
	return len(b.Completions) + len(b.Deliveries) + len(b.Statuses) + len(b.Errors) + len(b.Acks)
}

// Empty returns true if the batch has no entries.
func (b *Batch) Empty() bool {
	return b.Size() == 0
}

// EntrySeqs returns the sequence numbers of every entry the world expects us
// to acknowledge. Acks themselves are never acknowledged.
func (b *Batch) EntrySeqs() []int64 {
	n := len(b.Completions) + len(b.Deliveries) + len(b.Statuses) + len(b.Errors)
	if n == 0 {
		return nil
	}
	seqs := make([]int64, 0, n)
	for _, c := range b.Completions {
		seqs = append(seqs, c.Seq)
	}
	for _, d := range b.Deliveries {
		seqs = append(seqs, d.Seq)
	}
	for _, s := range b.Statuses {
		seqs = append(seqs, s.Seq)
	}
	for _, e := range b.Errors {
		seqs = append(seqs, e.Seq)
	}
	return seqs
}
