package core

import (
	"errors"
	"strings"
	"time"
)

var ErrAccountNotFound = errors.New("core: account not found")

// SignatureSchemeV1 is the only digest scheme this engine understands.
const SignatureSchemeV1 = "v1"

// SignedRequest is the raw input produced by the transport layer for a single
// delivery. Body must be the exact bytes received on the wire; re-serializing
// the payload invalidates the signature.
type SignedRequest struct {
	Body            []byte
	SignatureHeader string
}

// SchemeDigest is a single (scheme, hex digest) pair carried by the signature
// header.
type SchemeDigest struct {
	Scheme string
	Digest string
}

// ParsedSignature is the decomposed form of a `t=<unix>,v1=<hex>[,...]`
// signature header. Digests preserve header order.
type ParsedSignature struct {
	Timestamp int64
	Digests   []SchemeDigest
}

// DigestsForScheme returns the digests registered under scheme, in header
// order.
func (p ParsedSignature) DigestsForScheme(scheme string) []string {
	scheme = strings.TrimSpace(strings.ToLower(scheme))
	var out []string
	for _, digest := range p.Digests {
		if strings.EqualFold(strings.TrimSpace(digest.Scheme), scheme) {
			out = append(out, strings.TrimSpace(digest.Digest))
		}
	}
	return out
}

// Event is a decoded provider notification. Object is the event's embedded
// data object, kept untyped; handlers extract the sub-fields they need and
// treat absent fields as first-class outcomes, never as panics.
type Event struct {
	ID     string
	Type   string
	Object map[string]any
}

type NamespaceVerdict string

const (
	// VerdictNotApplicable means the event type carries no plan data. It
	// dispatches exactly like VerdictInNamespace.
	VerdictNotApplicable  NamespaceVerdict = "not_applicable"
	VerdictInNamespace    NamespaceVerdict = "in_namespace"
	VerdictOutOfNamespace NamespaceVerdict = "out_of_namespace"
)

// Dispatchable reports whether an event with this verdict should reach a
// handler.
func (v NamespaceVerdict) Dispatchable() bool {
	return v == VerdictInNamespace || v == VerdictNotApplicable
}

type OutcomeKind string

const (
	OutcomeOK   OutcomeKind = "ok"
	OutcomeNoOp OutcomeKind = "noop"
)

// HandlerOutcome is the successful result of dispatching one event. Failures
// travel as error values carrying the webhook error envelope.
type HandlerOutcome struct {
	Kind     OutcomeKind
	Message  string
	Metadata map[string]any
}

// Result is the transport-agnostic response for one delivery: status code plus
// a JSON-serializable body. It is the only value in this module that speaks a
// request/response vocabulary.
type Result struct {
	StatusCode int
	Body       map[string]any
}

// Account is the locally persisted account a billing customer maps onto.
type Account struct {
	ID                string
	Email             string
	BillingCustomerID string
	ProAccess         bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type UpsertAccountInput struct {
	Email             string
	BillingCustomerID string
	ProAccess         bool
}

// Charge is the subset of the provider's charge object the engine touches.
type Charge struct {
	ID          string
	Description string
	Amount      int64
	Currency    string
}
