// Package core contains the canonical domain types, collaborator contracts,
// and error envelope for the billing webhook engine. Adapters (HTTP transport,
// SQL stores, the billing API client) must depend on this package; core must
// not depend on transport-specific or storage-specific adapters.
package core
