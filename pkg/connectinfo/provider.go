// Package connectinfo defines the conn-info provider contract (spec.md
// §3/§4.6: "connection-info keys") and a static reference provider.
// Cloud IP discovery and other dynamic sources are external
// collaborators per spec.md §1 and are not implemented here.
package connectinfo

import "github.com/viki00/zgres/pkg/document"

// Provider contributes connection-info keys (host, port, and whatever
// else downstream consumers need to reach this node) to the published
// conn-info document. Later providers override earlier ones; the
// caller (internal/agent) logs the shadowing per spec.md §3 invariant 4.
type Provider interface {
	ConnInfo() document.Document
}

// Static returns a fixed document, useful for configuration-file-driven
// connection info and in tests.
type Static struct {
	Info document.Document
}

// ConnInfo implements Provider.
func (s Static) ConnInfo() document.Document {
	return s.Info.Clone()
}

var _ Provider = Static{}
