// Package nodeid provides the default capability.NodeIdentity provider:
// the machine hostname. Cloud instance-id providers are the external
// collaborator spec.md §1 scopes out of this core; Hostname is the
// degenerate case that keeps the agent runnable without one.
package nodeid

import (
	"context"
	"os"
)

// Hostname resolves my_id from os.Hostname, cached after the first read
// so it stays stable for the process lifetime even if the hostname
// changes underneath it.
type Hostname struct {
	id string
}

// MyID implements agent.NodeIdentityProvider.
func (h *Hostname) MyID(context.Context) (string, error) {
	if h.id != "" {
		return h.id, nil
	}
	name, err := os.Hostname()
	if err != nil {
		return "", err
	}
	h.id = name
	return h.id, nil
}
