package reasoner

import "fmt"

// Kind tags the variant held by a Message.
type Kind int

const (
	// KindAnswer carries an ordinary answer binding at Index.
	KindAnswer Kind = iota
	// KindConclusion carries a rule-conclusion binding at Index.
	KindConclusion
	// KindDone announces that no further records will ever be appended
	// at or after Index (Index equals the table size at completion).
	KindDone
	// KindHitInversion propagates a candidate saturation witness.
	KindHitInversion
	// KindTerminateSCC is a committed termination decision for the SCC
	// anchored at Expected.NodeID.
	KindTerminateSCC
)

func (k Kind) String() string {
	switch k {
	case KindAnswer:
		return "Answer"
	case KindConclusion:
		return "Conclusion"
	case KindDone:
		return "Done"
	case KindHitInversion:
		return "HitInversion"
	case KindTerminateSCC:
		return "TerminateSCC"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// NoSaturationIndex is the sentinel index carried by the early HitInversion
// probe ActorNode.readAnswerAt sends whenever a pull finds nothing cached at
// the requested index. A receiver must never treat it as a saturation
// witness when evaluating ThroughAllPaths && Index == table.Size().
const NoSaturationIndex int64 = -1

// Inversion is a candidate saturation witness: a claim that node NodeID has
// produced exactly Index answers and, if ThroughAllPaths is true, that
// every upstream path reachable from the witnessing node agrees.
type Inversion struct {
	NodeID          int64
	ThroughAllPaths bool
	Index           int64
}

// Equal reports whether two inversions are the identical witness (same
// node, same index, same ThroughAllPaths flag). This is the equality used
// by checkInversionStatusChange and handleTerminateSCC to recognise that an
// aggregate hasn't changed, or that a TerminateSCC commit matches what this
// node last forwarded.
func (i Inversion) Equal(o Inversion) bool {
	return i.NodeID == o.NodeID && i.ThroughAllPaths == o.ThroughAllPaths && i.Index == o.Index
}

// Less implements the total order from spec Section 4.3: smaller NodeID is
// better (older wins); for equal id, larger Index is better; for equal id
// and index, ThroughAllPaths=true beats false. Less reports whether i is
// strictly better than o.
func (i Inversion) Less(o Inversion) bool {
	if i.NodeID != o.NodeID {
		return i.NodeID < o.NodeID
	}
	if i.Index != o.Index {
		return i.Index > o.Index
	}
	return i.ThroughAllPaths && !o.ThroughAllPaths
}

func (i Inversion) String() string {
	return fmt.Sprintf("Inversion(node=%d, allPaths=%v, index=%d)", i.NodeID, i.ThroughAllPaths, i.Index)
}

// Message is the tagged union exchanged between nodes on a Port. Only the
// fields relevant to Kind are populated; dispatch on Kind, never on which
// fields happen to be non-zero.
type Message struct {
	Kind Kind

	// Index is meaningful for KindAnswer, KindConclusion, KindDone, and
	// KindTerminateSCC (the table size at the moment of the decision).
	Index int64

	// Answer holds the binding for KindAnswer.
	Answer ConceptMap

	// Conclusion holds the binding for KindConclusion.
	Conclusion ConceptMap

	// Probe holds the propagated witness for KindHitInversion.
	Probe Inversion

	// Expected holds the witness a KindTerminateSCC claims to satisfy.
	Expected Inversion
}

// NewAnswer builds a KindAnswer message.
func NewAnswer(index int64, cm ConceptMap) Message {
	return Message{Kind: KindAnswer, Index: index, Answer: cm}
}

// NewConclusion builds a KindConclusion message.
func NewConclusion(index int64, cm ConceptMap) Message {
	return Message{Kind: KindConclusion, Index: index, Conclusion: cm}
}

// NewDone builds a KindDone message.
func NewDone(index int64) Message {
	return Message{Kind: KindDone, Index: index}
}

// NewHitInversion builds a KindHitInversion message.
func NewHitInversion(nodeID int64, throughAllPaths bool, index int64) Message {
	return Message{Kind: KindHitInversion, Probe: Inversion{NodeID: nodeID, ThroughAllPaths: throughAllPaths, Index: index}}
}

// NewTerminateSCC builds a KindTerminateSCC message.
func NewTerminateSCC(expected Inversion, index int64) Message {
	return Message{Kind: KindTerminateSCC, Expected: expected, Index: index}
}

// IsTerminal reports whether the message is a terminal record (Done or
// TerminateSCC): at most one may ever be appended to an AnswerTable, and it
// must be the last record.
func (m Message) IsTerminal() bool {
	return m.Kind == KindDone || m.Kind == KindTerminateSCC
}

func (m Message) String() string {
	switch m.Kind {
	case KindAnswer:
		return fmt.Sprintf("Answer(%d, %s)", m.Index, m.Answer)
	case KindConclusion:
		return fmt.Sprintf("Conclusion(%d, %s)", m.Index, m.Conclusion)
	case KindDone:
		return fmt.Sprintf("Done(%d)", m.Index)
	case KindHitInversion:
		return fmt.Sprintf("HitInversion(%s)", m.Probe)
	case KindTerminateSCC:
		return fmt.Sprintf("TerminateSCC(%s, %d)", m.Expected, m.Index)
	default:
		return m.Kind.String()
	}
}
