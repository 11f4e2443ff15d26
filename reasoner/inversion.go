package reasoner

import "go.uber.org/zap"

// This file implements the inversion-status termination protocol described
// in spec Section 4.3: nodes aggregate the best Inversion witness visible on
// their active upstream ports, forward it downstream when it changes, and
// commit a TerminateSCC once a witness has come back around having passed
// through every active upstream path at the node it originated from.

// aggregateInversion computes the best witness among n's active upstream
// ports (smallest under Inversion.Less) and whether every active port
// currently carries a witness equal to it under that same order — the
// condition spec Section 4.3 calls "every active port carries an inversion
// equal to b". Equality here is full equality under Less (NodeID, Index,
// and ThroughAllPaths all match), not just matching NodeID/Index: a port
// still reporting ThroughAllPaths=false for the same (NodeID, Index) has
// not actually agreed with a ThroughAllPaths=true witness, and counting it
// as agreement would let the reduction claim saturation a path hasn't
// reached yet. Ports with no witness yet (nil ReceivedInversion) count
// against agreement. ok is false if no active port has a witness at all.
func (n *ActorNode) aggregateInversion() (agg Inversion, ok bool) {
	var best *Inversion
	for p := range n.upstream {
		w := p.ReceivedInversion()
		if w == nil {
			continue
		}
		if best == nil || w.Less(*best) {
			v := *w
			best = &v
		}
	}
	if best == nil {
		return Inversion{}, false
	}

	agree := true
	for p := range n.upstream {
		w := p.ReceivedInversion()
		if w == nil || !w.Equal(*best) {
			agree = false
			break
		}
	}

	agg = *best
	agg.ThroughAllPaths = best.ThroughAllPaths && agree
	return agg, true
}

// checkInversionStatusChange re-evaluates the aggregate over n's active
// upstream ports and, if it differs from what n last forwarded, either
// commits (the witness is n's own and has travelled every active upstream
// path at the table size n is now claiming) or forwards the new aggregate
// downstream as a HitInversion.
func (n *ActorNode) checkInversionStatusChange() {
	agg, ok := n.aggregateInversion()
	if !ok {
		return
	}
	if n.forwardedInversion != nil && n.forwardedInversion.Equal(agg) {
		return
	}
	n.forwardedInversion = &agg

	if agg.NodeID != n.id {
		n.broadcastDownstream(NewHitInversion(agg.NodeID, agg.ThroughAllPaths, agg.Index))
		return
	}

	if agg.ThroughAllPaths && agg.Index != NoSaturationIndex && agg.Index == n.table.Size() {
		n.commitSelfOriginated(agg)
		return
	}
	// The witness is n's own but hasn't (yet) travelled every active
	// upstream path at the current table size: re-probe with the
	// strongest claim n can currently make about itself.
	n.broadcastDownstream(NewHitInversion(n.id, true, n.table.Size()))
}

// commitSelfOriginated handles the case where n's own witness has
// travelled every active upstream path and Index matches n's current table
// size exactly: spec Section 4.3 treats this as equivalent to having
// received TerminateSCC(expected) back on every active upstream port, so
// each is finalised as DONE before the commit itself runs.
func (n *ActorNode) commitSelfOriginated(expected Inversion) {
	ports := make([]*Port, 0, len(n.upstream))
	for p := range n.upstream {
		ports = append(ports, p)
	}
	for _, p := range ports {
		p.RecordReceive(NewTerminateSCC(expected, n.table.Size()))
		n.markUpstreamDone(p)
	}
	n.handleTerminateSCC(expected)
}

// handleTerminateSCC implements the commit rule: a TerminateSCC claiming
// expected only finalises this node's table if expected still matches what
// n last forwarded and the table isn't already complete. Otherwise the
// message is a no-op here beyond the port-level DONE transition its caller
// (deliver, or commitSelfOriginated above) already applied.
func (n *ActorNode) handleTerminateSCC(expected Inversion) {
	if n.table.IsComplete() {
		return
	}
	if n.forwardedInversion == nil || !n.forwardedInversion.Equal(expected) {
		return
	}
	msg, subs := n.table.RecordTerminateSCC(n.id, expected)
	n.logger.Debug("committed TerminateSCC", zap.Int64("index", msg.Index))
	n.registry.metrics.nodeTerminated("terminate_scc")
	for _, s := range subs {
		n.sendOnPort(s, msg)
	}
	n.broadcastDownstream(msg)
}
