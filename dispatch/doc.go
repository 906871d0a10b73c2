// Package dispatch routes a classified event to exactly one registered
// handler. An unregistered event type is a loud failure, not a default
// branch: a missing handler for a newly introduced provider event is a
// deployment gap operators must see.
package dispatch
