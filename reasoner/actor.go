package reasoner

import (
	"github.com/dmitrii-ubskii/typedb/internal/actorpool"
	"go.uber.org/zap"
)

// Behavior supplies the parts of a node's handling that differ between
// resolvable kinds (spec Section 4.4): how to react to an incoming Answer
// or Conclusion, and how to kick off local work when a pull finds nothing
// cached. ActorNode implements everything else (port bookkeeping, the
// inversion-status termination protocol, dispatch) generically.
type Behavior interface {
	// HandleAnswer is called after an Answer on one of the node's
	// upstream ports has been recorded in the port (RecordReceive), but
	// before the termination protocol re-evaluates forwardedInversion.
	HandleAnswer(port *Port, index int64, cm ConceptMap)

	// HandleConclusion is the Conclusion analogue of HandleAnswer.
	HandleConclusion(port *Port, index int64, cm ConceptMap)

	// Produce is invoked when readAnswerAt finds nothing cached at the
	// requested index: it should do whatever local work (traversal,
	// rule application, pulling upstream ports) might eventually append
	// a new record to the node's own AnswerTable.
	Produce()

	// HandlePortDone is called when one of the node's upstream ports
	// transitions to DONE, via either a Done or a TerminateSCC message,
	// before the base re-evaluates whether the node as a whole is done.
	// msg is the terminal record that caused the transition.
	HandlePortDone(port *Port, msg Message)
}

// ActorNode is the generic actor base shared by every resolvable node kind
// (spec Section 4.3). It owns exactly one AnswerTable, tracks its upstream
// and downstream ports, and implements the pull handler, the
// incoming-message dispatcher, and the inversion-status termination
// protocol. Kind-specific behavior is supplied via Behavior.
type ActorNode struct {
	id       int64
	kind     string
	registry *NodeRegistry
	driver   *actorpool.Driver
	table    *AnswerTable
	logger   *zap.Logger

	behavior Behavior

	// upstream/downstream hold ports while they are still active; *Done
	// holds them once DONE has been observed (upstream, mutated by this
	// node when it receives a terminal message) or once this node has
	// itself sent a terminal message on them (downstream, mutated by
	// this node as the sender). Both pairs are touched only from this
	// node's Driver.
	upstream       map[*Port]struct{}
	upstreamDone   map[*Port]struct{}
	downstream     map[*Port]struct{}
	downstreamDone map[*Port]struct{}

	// forwardedInversion is the last aggregate this node forwarded (or
	// committed), per spec Section 4.3.
	forwardedInversion *Inversion
}

// NewActorNode constructs a node bound to pool via registry and wires
// behavior as the kind-specific hook target. kind is a short label
// ("retrievable", "concludable", ...) used in logs and metrics.
func NewActorNode(id int64, kind string, registry *NodeRegistry, behavior Behavior) *ActorNode {
	n := &ActorNode{
		id:             id,
		kind:           kind,
		registry:       registry,
		table:          NewAnswerTable(),
		behavior:       behavior,
		upstream:       make(map[*Port]struct{}),
		upstreamDone:   make(map[*Port]struct{}),
		downstream:     make(map[*Port]struct{}),
		downstreamDone: make(map[*Port]struct{}),
	}
	n.logger = registry.logger.With(zap.Int64("nodeId", id), zap.String("kind", kind))
	n.driver = actorpool.NewDriver(registry.pool, func(r any) {
		n.logger.Error("recovered panic, aborting registry", zap.Any("panic", r))
		registry.Terminate(asFatal(id, r))
	})
	registry.metrics.nodeCreated(kind)
	return n
}

// ID returns the node's identifier. Lower ids were created earlier and
// have higher priority in the termination protocol.
func (n *ActorNode) ID() int64 { return n.id }

// Table returns the node's answer table.
func (n *ActorNode) Table() *AnswerTable { return n.table }

// Driver returns the node's execution driver, used to schedule
// cross-node calls onto it.
func (n *ActorNode) Driver() *actorpool.Driver { return n.driver }

// Logger returns a logger pre-tagged with this node's id and kind.
func (n *ActorNode) Logger() *zap.Logger { return n.logger }

func (n *ActorNode) registerUpstream(p *Port)   { n.upstream[p] = struct{}{} }
func (n *ActorNode) registerDownstream(p *Port) { n.downstream[p] = struct{}{} }

// NewUpstreamPort opens a port from this node to remote. Must be called on
// this node's Driver (typically from Behavior.Produce).
func (n *ActorNode) NewUpstreamPort(remote *ActorNode) *Port {
	return newPort(n, remote)
}

// scheduleReadAnswerAt is invoked by Port.ReadNext on the *remote* node
// (i.e. on n, where n is being pulled from) to enqueue the pull handler.
func (n *ActorNode) scheduleReadAnswerAt(port *Port, index int64) {
	n.driver.Execute(func() {
		n.readAnswerAt(port, index)
	})
}

// readAnswerAt implements spec Section 4.3's pull handler. It always runs
// on n's own Driver.
func (n *ActorNode) readAnswerAt(port *Port, index int64) {
	if n.registry.Aborted() {
		return
	}
	if msg, ok := n.table.At(n.id, index); ok {
		n.sendOnPort(port, msg)
		return
	}
	if port.owner.ID() >= n.id {
		n.sendOnPort(port, NewHitInversion(n.id, true, NoSaturationIndex))
	}
	n.table.Subscribe(n.id, port, index)
	n.behavior.Produce()
}

// deliver implements spec Section 4.3's incoming-message handler. It
// always runs on n's own Driver, for a message arriving on one of n's own
// (upstream) ports.
func (n *ActorNode) deliver(port *Port, msg Message) {
	if n.registry.Aborted() {
		return
	}
	port.RecordReceive(msg)
	if port.state == StateDone {
		n.markUpstreamDone(port)
	}

	switch msg.Kind {
	case KindAnswer:
		n.behavior.HandleAnswer(port, msg.Index, msg.Answer)
		n.checkInversionStatusChange()
	case KindConclusion:
		n.behavior.HandleConclusion(port, msg.Index, msg.Conclusion)
		n.checkInversionStatusChange()
	case KindHitInversion:
		n.checkInversionStatusChange()
	case KindDone:
		n.behavior.HandlePortDone(port, msg)
		n.afterUpstreamPortDone()
	case KindTerminateSCC:
		n.behavior.HandlePortDone(port, msg)
		n.handleTerminateSCC(msg.Expected)
		n.afterUpstreamPortDone()
	default:
		panic(NewIllegalMessageError(n.id, msg.Kind))
	}
}

// sendOnPort delivers msg to port's owner, scheduled on the owner's
// driver. If msg is terminal, n records locally that it has finished
// talking to this downstream port so it is never sent to twice.
func (n *ActorNode) sendOnPort(port *Port, msg Message) {
	if msg.IsTerminal() {
		n.markDownstreamDone(port)
	}
	owner := port.owner
	owner.driver.Execute(func() {
		owner.deliver(port, msg)
	})
}

func (n *ActorNode) markDownstreamDone(port *Port) {
	if _, ok := n.downstream[port]; ok {
		delete(n.downstream, port)
		n.downstreamDone[port] = struct{}{}
	}
}

func (n *ActorNode) markUpstreamDone(port *Port) {
	if _, ok := n.upstream[port]; ok {
		delete(n.upstream, port)
		n.upstreamDone[port] = struct{}{}
	}
}

// broadcastDownstream sends msg to every currently-active downstream port.
// Ports that sendOnPort marks done as a side effect (because msg is
// terminal) naturally drop out of future broadcasts.
func (n *ActorNode) broadcastDownstream(msg Message) {
	ports := make([]*Port, 0, len(n.downstream))
	for p := range n.downstream {
		ports = append(ports, p)
	}
	for _, p := range ports {
		n.sendOnPort(p, msg)
	}
}

// afterUpstreamPortDone runs after an upstream port transitions to DONE
// (whether via Done or a non-committing TerminateSCC): if every upstream
// port is now done, the node has nothing left to wait on and completes;
// otherwise the inversion aggregate may have changed now that one fewer
// port contributes to it.
func (n *ActorNode) afterUpstreamPortDone() {
	if n.table.IsComplete() {
		return
	}
	if len(n.upstream) == 0 {
		n.onTermination()
	} else {
		n.checkInversionStatusChange()
	}
}

// recordAnswer appends an Answer to n's table and notifies subscribers. It
// is the hook Behavior implementations use to publish a freshly produced
// or freshly deduplicated binding.
func (n *ActorNode) recordAnswer(cm ConceptMap) {
	msg, subs := n.table.RecordAnswer(n.id, cm)
	n.registry.metrics.answerProduced()
	for _, s := range subs {
		n.sendOnPort(s, msg)
	}
}

// recordConclusion appends a Conclusion to n's table and notifies
// subscribers.
func (n *ActorNode) recordConclusion(cm ConceptMap) {
	msg, subs := n.table.RecordConclusion(n.id, cm)
	n.registry.metrics.answerProduced()
	for _, s := range subs {
		n.sendOnPort(s, msg)
	}
}

// onTermination records Done and notifies whatever subscribers were
// already waiting on the next index. Spec Section 4.3: plain completion
// (no cycle involved) never needs to proactively broadcast, since every
// downstream port either pulls again (and finds the terminal record via
// Table.At) or is already subscribed.
func (n *ActorNode) onTermination() {
	msg, subs := n.table.RecordDone(n.id)
	n.logger.Debug("node complete", zap.Int64("size", msg.Index))
	n.registry.metrics.nodeTerminated("done")
	for _, s := range subs {
		n.sendOnPort(s, msg)
	}
}
