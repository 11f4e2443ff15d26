package reasoner

import "sync/atomic"

// State is the finite-state of a Port as seen by its owner.
type State int

const (
	// StateReady means the port is idle and ReadNext may be called.
	StateReady State = iota
	// StatePulling means a readAnswerAt request is outstanding.
	StatePulling
	// StateDone is terminal: the remote will never send anything more.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "READY"
	case StatePulling:
		return "PULLING"
	case StateDone:
		return "DONE"
	default:
		return "INVALID"
	}
}

var portIDs atomic.Int64

// Port is a half-duplex pull channel between two nodes. It is owned by
// exactly one node (owner) and points at exactly one other node (remote);
// there may be multiple ports between the same pair. All of a Port's
// mutable state (state, lastRequestedIndex, receivedInversion) is written
// only by code running on owner's Driver — ReadNext is called by owner's
// own logic, and RecordReceive is called from within owner.deliver, both of
// which are always scheduled on owner's Driver. This single-writer
// discipline is what lets the rest of the node avoid locking (spec Section
// 5, "Shared resources").
type Port struct {
	id     int64
	owner  *ActorNode
	remote *ActorNode

	state              State
	lastRequestedIndex int64
	receivedInversion  *Inversion
}

// newPort creates a port owned by owner pointing at remote, registers it in
// owner's upstream set and remote's downstream set, and returns it. It must
// be called on owner's Driver.
func newPort(owner, remote *ActorNode) *Port {
	p := &Port{
		id:                 portIDs.Add(1),
		owner:              owner,
		remote:             remote,
		state:              StateReady,
		lastRequestedIndex: -1,
	}
	owner.registerUpstream(p)
	remote.registerDownstream(p)
	return p
}

// ID returns the port's identity, stable for its lifetime. Used as a map
// key and for logging; carries no ordering meaning.
func (p *Port) ID() int64 { return p.id }

// State returns the port's current state.
func (p *Port) State() State { return p.state }

// LastRequestedIndex returns the last index requested via ReadNext, or -1
// if ReadNext has never been called.
func (p *Port) LastRequestedIndex() int64 { return p.lastRequestedIndex }

// ReceivedInversion returns the most recent HitInversion witnessed on this
// port, or nil if none has arrived.
func (p *Port) ReceivedInversion() *Inversion { return p.receivedInversion }

// ReadNext requests the next answer from remote. Precondition: state ==
// READY. Must be called on owner's Driver.
func (p *Port) ReadNext() {
	if p.state != StateReady {
		panic(NewProtocolViolationError(p.owner.ID(), "Port.ReadNext: port not READY"))
	}
	p.state = StatePulling
	p.lastRequestedIndex++
	index := p.lastRequestedIndex
	remote := p.remote
	remote.scheduleReadAnswerAt(p, index)
}

// RecordReceive applies the state transition implied by an incoming
// message, per spec Section 4.2. It must be called on owner's Driver,
// before any type-specific handler runs.
func (p *Port) RecordReceive(msg Message) {
	switch msg.Kind {
	case KindAnswer, KindConclusion:
		if p.state != StatePulling || msg.Index != p.lastRequestedIndex {
			panic(NewProtocolViolationError(p.owner.ID(), "Port.RecordReceive: unexpected Answer/Conclusion"))
		}
		p.state = StateReady
	case KindHitInversion:
		probe := msg.Probe
		p.receivedInversion = &probe
	case KindDone, KindTerminateSCC:
		p.state = StateDone
	default:
		panic(NewIllegalMessageError(p.owner.ID(), msg.Kind))
	}
}
