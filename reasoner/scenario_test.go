package reasoner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrii-ubskii/typedb/internal/actorpool"
	"github.com/dmitrii-ubskii/typedb/materialise"
	"github.com/dmitrii-ubskii/typedb/memstore"
	"github.com/dmitrii-ubskii/typedb/rules"
	"github.com/stretchr/testify/require"
)

// recordingQueue is a ConsumerQueue test double collecting every pushed
// answer and the terminal event, safe for concurrent use since it is
// driven from a node's Driver goroutine while the test goroutine reads it.
type recordingQueue struct {
	mu      sync.Mutex
	answers []ConceptMap
	done    bool
	cause   error
}

func (q *recordingQueue) PushAnswer(cm ConceptMap) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.answers = append(q.answers, cm)
}

func (q *recordingQueue) PushDone(cause error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.done = true
	q.cause = cause
}

func (q *recordingQueue) snapshot() (answers []ConceptMap, done bool, cause error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]ConceptMap(nil), q.answers...), q.done, q.cause
}

func x(v string) ConceptMap { return ConceptMap{"x": stringConcept(v)} }

// scenarioFixture wires a fresh registry, store, and rule engine sharing a
// single pool and materialiser, per spec Section 4.10's in-memory
// collaborators.
type scenarioFixture struct {
	t            *testing.T
	registry     *NodeRegistry
	store        *memstore.Store
	materialiser *MaterialiserNode
}

func newScenarioFixture(t *testing.T) *scenarioFixture {
	t.Helper()
	pool := actorpool.NewPool(4)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	})
	registry := NewNodeRegistry(pool)
	store := memstore.NewStore()
	materialiser := NewMaterialiserNode(pool, materialise.Identity(), nil)
	return &scenarioFixture{t: t, registry: registry, store: store, materialiser: materialiser}
}

// addFacts appends values to relName, replacing f.store (memstore.Store is
// copy-on-write). Call it before newEngine so the engine sees the final
// snapshot.
func (f *scenarioFixture) addFacts(relName string, values ...string) {
	rel := memstore.NewRelation(relName, "x")
	for _, v := range values {
		var err error
		f.store, err = f.store.AddFact(rel, x(v))
		require.NoError(f.t, err)
	}
}

func (f *scenarioFixture) newEngine() *rules.Engine {
	return rules.NewEngine(context.Background(), "scenario", f.store, f.materialiser)
}

func pullAllAndWaitDone(t *testing.T, p *Producer, q *recordingQueue, n int64) {
	t.Helper()
	p.Request(context.Background(), q, n)
	eventually(t, func() bool {
		_, done, _ := q.snapshot()
		return done
	})
}

// S1 — Linear chain A -> B -> C where C yields [x=1, x=2], B and A forward
// unchanged. Pulling exhaustively from A yields Answer(x=1), Answer(x=2),
// then a terminal event.
func TestScenarioLinearChain(t *testing.T) {
	f := newScenarioFixture(t)
	f.addFacts("c", "1", "2")
	engine := f.newEngine()
	engine.AddRule("b-from-c", "c", "b")
	engine.AddRule("a-from-b", "b", "a")

	root := engine.Resolve(f.registry, "a", ConceptMap{})
	producer := NewProducer(f.registry, root, "a", ConceptMap{}.CanonicalKey())
	queue := &recordingQueue{}

	pullAllAndWaitDone(t, producer, queue, 10)

	answers, done, cause := queue.snapshot()
	require.True(t, done)
	require.NoError(t, cause)
	require.ElementsMatch(t, []ConceptMap{x("1"), x("2")}, answers)
}

// S2 — Self-loop: a node whose only rule concludes into its own pattern,
// with no base facts, must terminate via TerminateSCC rather than hang.
func TestScenarioSelfLoop(t *testing.T) {
	f := newScenarioFixture(t)
	engine := f.newEngine()
	engine.AddRule("loop", "loop", "loop")

	root := engine.Resolve(f.registry, "loop", ConceptMap{})
	producer := NewProducer(f.registry, root, "loop", ConceptMap{}.CanonicalKey())
	queue := &recordingQueue{}

	pullAllAndWaitDone(t, producer, queue, 1)

	answers, done, cause := queue.snapshot()
	require.True(t, done)
	require.NoError(t, cause)
	require.Empty(t, answers)
}

// S3 — Two-node SCC with finite output: A concludes from B and B concludes
// from A, seeded by a retrievable leaf. The cycle must still terminate
// once the leaf is exhausted.
func TestScenarioTwoNodeSCC(t *testing.T) {
	f := newScenarioFixture(t)
	f.addFacts("leaf", "1")
	engine := f.newEngine()
	engine.AddRule("a-from-leaf", "leaf", "a")
	engine.AddRule("a-from-b", "b", "a")
	engine.AddRule("b-from-a", "a", "b")

	root := engine.Resolve(f.registry, "a", ConceptMap{})
	producer := NewProducer(f.registry, root, "a", ConceptMap{}.CanonicalKey())
	queue := &recordingQueue{}

	pullAllAndWaitDone(t, producer, queue, 10)

	answers, done, cause := queue.snapshot()
	require.True(t, done)
	require.NoError(t, cause)
	require.ElementsMatch(t, []ConceptMap{x("1")}, answers)
}

// S4 — Diamond: A pulls B and C, both of which pull D; D yields one
// answer. A must see it at most once despite reaching D via two paths.
func TestScenarioDiamond(t *testing.T) {
	f := newScenarioFixture(t)
	f.addFacts("d", "10")
	engine := f.newEngine()
	engine.AddRule("b-from-d", "d", "b")
	engine.AddRule("c-from-d", "d", "c")
	engine.AddRule("a-from-b", "b", "a")
	engine.AddRule("a-from-c", "c", "a")

	root := engine.Resolve(f.registry, "a", ConceptMap{})
	producer := NewProducer(f.registry, root, "a", ConceptMap{}.CanonicalKey())
	queue := &recordingQueue{}

	pullAllAndWaitDone(t, producer, queue, 10)

	answers, done, cause := queue.snapshot()
	require.True(t, done)
	require.NoError(t, cause)
	require.ElementsMatch(t, []ConceptMap{x("10")}, answers, "the diamond must not duplicate D's single answer")
}

// S6 — Consumer demand less than available: requesting fewer answers than
// a source can produce yields exactly that many, and a later request
// resumes without reproducing earlier answers.
func TestScenarioDemandLessThanAvailable(t *testing.T) {
	f := newScenarioFixture(t)
	f.addFacts("many", "1", "2", "3", "4", "5")
	engine := f.newEngine()

	root := engine.Resolve(f.registry, "many", ConceptMap{})
	producer := NewProducer(f.registry, root, "many", ConceptMap{}.CanonicalKey())
	queue := &recordingQueue{}

	producer.Request(context.Background(), queue, 1)
	eventually(t, func() bool {
		answers, _, _ := queue.snapshot()
		return len(answers) == 1
	})
	answers, done, _ := queue.snapshot()
	require.False(t, done, "must not signal completion after partial demand")
	require.Len(t, answers, 1)

	// Four answers remain; the fifth unit of demand pulls the Done record.
	pullAllAndWaitDone(t, producer, queue, 5)
	answers, done, _ = queue.snapshot()
	require.True(t, done)
	require.ElementsMatch(t, []ConceptMap{x("1"), x("2"), x("3"), x("4"), x("5")}, answers)
}
