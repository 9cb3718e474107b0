// Package dispatch implements the booking dispatch and acceptance engine:
// candidate selection and ranking, real-time fan-out of booking offers to a
// bounded shortlist of providers, and the single-winner acceptance protocol
// backed by an atomic compare-and-set on the booking store.
package dispatch
