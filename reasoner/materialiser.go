package reasoner

import (
	"github.com/dmitrii-ubskii/typedb/internal/actorpool"
	"go.uber.org/zap"
)

// MaterialiserNode is the stateless service actor from spec Section 4.5.
// Unlike ActorNode it owns no AnswerTable or ports and never takes part in
// the inversion-status protocol: it exists only to run the Materialisation
// collaborator off of callers' drivers and deliver the result back onto
// the caller's own driver, preserving the one-handler-at-a-time discipline
// for the caller. All requests to one MaterialiserNode run one at a time
// on its own driver.
type MaterialiserNode struct {
	driver *actorpool.Driver
	impl   Materialisation
	logger *zap.Logger
}

// NewMaterialiserNode returns a materialiser backed by pool, running impl.
func NewMaterialiserNode(pool *actorpool.Pool, impl Materialisation, logger *zap.Logger) *MaterialiserNode {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &MaterialiserNode{impl: impl, logger: logger.With(zap.String("actor", "materialiser"))}
	m.driver = actorpool.NewDriver(pool, func(r any) {
		m.logger.Error("recovered panic in materialiser", zap.Any("panic", r))
	})
	return m
}

// Materialise computes impl.Materialise(spec, conditionAnswer) on the
// materialiser's own driver, then delivers the result back onto sender's
// driver by invoking onResult. Delivery is ordered per-sender but, as spec
// Section 4.5 allows, not guaranteed ordered across distinct senders or
// distinct concurrent requests from the same sender on different ports.
func (m *MaterialiserNode) Materialise(sender *ActorNode, spec Materialisable, conditionAnswer ConceptMap, onResult func(binding ConceptMap, ok bool, err error)) {
	m.driver.Execute(func() {
		binding, ok, err := m.impl.Materialise(spec, conditionAnswer)
		sender.Driver().Execute(func() {
			onResult(binding, ok, err)
		})
	})
}
