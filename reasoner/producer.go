package reasoner

import "context"

// Producer bridges an external consumer to a single root node (spec
// Section 4.7, C8). It is itself an ActorNode behavior so that the
// generic Port/message plumbing can treat it exactly like any other node
// on the graph, even though it never produces answers of its own.
type Producer struct {
	node *ActorNode
	port *Port
	queue ConsumerQueue
	demand int64

	rootPattern string
	rootBounds  string
	registry    *NodeRegistry

	recycled bool
}

// NewProducer opens a port from a fresh, uncached actor onto root and
// returns the Producer wrapping it. rootPattern/rootBounds must be the
// same cache key root was obtained with, so Recycle can release the
// registry's reference to it.
func NewProducer(registry *NodeRegistry, root *ActorNode, rootPattern, rootBounds string) *Producer {
	var p *Producer
	registry.NewUncachedNode("producer", func(n *ActorNode) Behavior {
		p = &Producer{
			node:        n,
			registry:    registry,
			rootPattern: rootPattern,
			rootBounds:  rootBounds,
		}
		p.port = n.NewUpstreamPort(root)
		return p
	})
	registry.OnAbort(func(e FatalError) {
		p.node.Driver().Execute(func() {
			if p.queue != nil && !p.recycled {
				p.queue.PushDone(e)
			}
		})
	})
	return p
}

// Request increases outstanding demand by requested and, if the port is
// currently READY, pulls the next answer. ctx is accepted for interface
// symmetry with the Storage/Planner collaborators and to let future
// cancellation plumb through; the in-memory core has no blocking points to
// cancel mid-pull (spec Section 5).
func (p *Producer) Request(ctx context.Context, queue ConsumerQueue, requested int64) {
	p.node.Driver().Execute(func() {
		if p.recycled {
			return
		}
		p.queue = queue
		p.demand += requested
		p.pullIfDemanded()
	})
}

func (p *Producer) pullIfDemanded() {
	if p.demand > 0 && p.port.State() == StateReady {
		p.port.ReadNext()
	}
}

// Recycle releases the producer's reference on root, letting it become
// collectible once nothing else holds it. Further Request calls are a
// no-op afterwards.
func (p *Producer) Recycle() {
	p.node.Driver().Execute(func() {
		p.recycled = true
	})
	p.registry.Release(p.rootPattern, p.rootBounds)
}

func (p *Producer) HandleAnswer(port *Port, index int64, cm ConceptMap) {
	p.queue.PushAnswer(cm)
	p.demand--
	p.pullIfDemanded()
}

// HandleConclusion never fires: a Producer's port always points at a root
// resolvable, whose own table only ever holds Answer/Done/TerminateSCC
// records (see ConcludableNode).
func (p *Producer) HandleConclusion(port *Port, index int64, cm ConceptMap) {
	panic(NewProtocolViolationError(p.node.ID(), "Producer.HandleConclusion: unexpected on root port"))
}

func (p *Producer) HandlePortDone(port *Port, msg Message) {
	if p.queue != nil {
		p.queue.PushDone(nil)
	}
}

// Produce satisfies Behavior; it is unreachable because nothing ever pulls
// from a Producer — it is a pure sink with no downstream ports.
func (p *Producer) Produce() {
	panic(NewProtocolViolationError(p.node.ID(), "Producer.Produce: a producer is never read from"))
}
