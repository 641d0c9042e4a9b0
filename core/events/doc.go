// Package events defines the decision events emitted on the event bus.
//
// Available event types:
//   - CycleEvent: one completed or skipped decision cycle
//   - ModeEvent: charger mode commands and override transitions
//   - BufferEvent: a buffer recalculation
//   - BoostEvent: boost start, cancel and expiry
package events
