package reasoner

import "sync"

// AnswerTable is a node's monotone, append-only log of produced records. It
// memoises a node's output for every future reader and coordinates
// subscribers waiting on the next not-yet-recorded index.
//
// AnswerTable is safe for concurrent use, but in practice it is only ever
// touched from the owning node's Driver (readers consult At; the node
// itself appends records after draining subscribers) — the mutex here
// exists to make that single-writer discipline enforceable rather than
// assumed, and to let tests exercise the table directly without a Driver.
type AnswerTable struct {
	mu          sync.Mutex
	records     []Message
	complete    bool
	subscribers map[*Port]struct{}
}

// NewAnswerTable returns an empty table.
func NewAnswerTable() *AnswerTable {
	return &AnswerTable{subscribers: make(map[*Port]struct{})}
}

// Size returns the number of records, including a terminal record if
// present.
func (t *AnswerTable) Size() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int64(len(t.records))
}

// IsComplete reports whether the last record is terminal.
func (t *AnswerTable) IsComplete() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.complete
}

// At returns the record at i, or ok=false if i == size and the table is
// not yet complete. Precondition: i <= size; violating it is a protocol
// error (nodeID identifies the owner for the resulting error).
func (t *AnswerTable) At(nodeID int64, i int64) (Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.atLocked(nodeID, i)
}

func (t *AnswerTable) atLocked(nodeID int64, i int64) (Message, bool) {
	n := int64(len(t.records))
	if i > n {
		panic(NewProtocolViolationError(nodeID, "AnswerTable.At: index beyond size"))
	}
	if i == n {
		return Message{}, false
	}
	return t.records[i], true
}

// Subscribe registers port as waiting for the record at index i.
// Precondition: i == size && !complete. Idempotent per port.
func (t *AnswerTable) Subscribe(nodeID int64, port *Port, i int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.complete || i != int64(len(t.records)) {
		panic(NewProtocolViolationError(nodeID, "AnswerTable.Subscribe: precondition violated"))
	}
	t.subscribers[port] = struct{}{}
}

// drainSubscribersLocked returns and clears the subscriber set. Callers must
// already hold t.mu.
func (t *AnswerTable) drainSubscribersLocked() []*Port {
	if len(t.subscribers) == 0 {
		return nil
	}
	out := make([]*Port, 0, len(t.subscribers))
	for p := range t.subscribers {
		out = append(out, p)
	}
	t.subscribers = make(map[*Port]struct{})
	return out
}

// appendLocked appends msg (built from the current size via build) and,
// if msg is terminal, sets complete. Returns the appended message and the
// drained subscriber set, which the caller must notify outside of any lock
// it holds on the owning node.
func (t *AnswerTable) appendLocked(nodeID int64, build func(index int64) Message) (Message, []*Port) {
	if t.complete {
		panic(NewProtocolViolationError(nodeID, "AnswerTable: append after terminal record"))
	}
	index := int64(len(t.records))
	subs := t.drainSubscribersLocked()
	msg := build(index)
	t.records = append(t.records, msg)
	if msg.IsTerminal() {
		t.complete = true
	}
	return msg, subs
}

// RecordAnswer appends an Answer record and returns it along with the
// subscribers to notify.
func (t *AnswerTable) RecordAnswer(nodeID int64, cm ConceptMap) (Message, []*Port) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.appendLocked(nodeID, func(i int64) Message { return NewAnswer(i, cm) })
}

// RecordConclusion appends a Conclusion record and returns it along with
// the subscribers to notify.
func (t *AnswerTable) RecordConclusion(nodeID int64, cm ConceptMap) (Message, []*Port) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.appendLocked(nodeID, func(i int64) Message { return NewConclusion(i, cm) })
}

// RecordDone appends a Done record and returns it along with the
// subscribers to notify.
func (t *AnswerTable) RecordDone(nodeID int64) (Message, []*Port) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.appendLocked(nodeID, func(i int64) Message { return NewDone(i) })
}

// RecordTerminateSCC appends a TerminateSCC record and returns it along
// with the subscribers to notify.
func (t *AnswerTable) RecordTerminateSCC(nodeID int64, expected Inversion) (Message, []*Port) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.appendLocked(nodeID, func(i int64) Message { return NewTerminateSCC(expected, i) })
}
