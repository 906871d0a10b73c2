// Package engine runs the delivery pipeline: authenticate the raw request,
// decode the event, classify it against the plan namespace, route it through
// the dispatcher, and map whatever happened onto a transport-agnostic result.
// Every delivery produces exactly one result; failed stages short-circuit the
// rest of the pipeline and raise an alert.
package engine
