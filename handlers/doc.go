// Package handlers contains the side-effect handlers the dispatcher routes
// events to. Every handler's mutation is a no-op-safe upsert: the provider
// delivers at least once, so redelivering an event must never double-apply
// or error on the second application.
package handlers
