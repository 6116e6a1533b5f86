// Package dag walks a render graph once per frame, in dependency order.
//
// A Node processes a Frame. A node may also implement Conditional; the
// engine asks IsEnabled before every visit and records a disabled node as
// skipped without calling Process.
//
// Gate is the reusable enable switch. It holds a predicate that is
// re-evaluated on every call and can subscribe to rendering flags so the
// node's lifetime bounds its subscriptions:
//
//	gate := dag.NewGate("finalHaze")
//	gate.RequiresCondition(rendering.Inscattering)
//	_ = gate.Subscribe(rendering, config.FlagInscattering)
//	node := dag.Gated(blur, gate)
//
// Graphs can be built in code or resolved from YAML pipeline definitions,
// where `condition: inscattering` (or `!inscattering`) gates a node on a
// flag.
package dag
