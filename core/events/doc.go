// Package events defines the dispatch related events emitted on the
// in-process event bus.
//
// Available event types:
//   - RequestEvent: booking request dispatched
//   - OfferEvent: per-provider offer push result
//   - AcceptEvent: accept attempt outcome
//   - StatusEvent: committed status transition
//   - ReminderEvent: reminder notification recorded
package events
