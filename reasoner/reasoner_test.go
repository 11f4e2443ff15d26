package reasoner

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrii-ubskii/typedb/internal/actorpool"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestRegistry(t *testing.T) *NodeRegistry {
	t.Helper()
	pool := actorpool.NewPool(4)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	})
	return NewNodeRegistry(pool)
}

// noopBehavior answers Behavior with every hook a no-op, for tests that
// only exercise Port state transitions and never actually deliver a
// message that would reach it.
type noopBehavior struct{}

func (noopBehavior) HandleAnswer(*Port, int64, ConceptMap)     {}
func (noopBehavior) HandleConclusion(*Port, int64, ConceptMap) {}
func (noopBehavior) Produce()                                  {}
func (noopBehavior) HandlePortDone(*Port, Message)             {}

func newTestNode(t *testing.T, registry *NodeRegistry, kind string) *ActorNode {
	t.Helper()
	var n *ActorNode
	registry.NewUncachedNode(kind, func(created *ActorNode) Behavior {
		n = created
		return noopBehavior{}
	})
	return n
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, time.Second, time.Millisecond)
}
