// Package backend defines the provisioning capability set the executor and
// import resolver drive. Implementations create real or simulated resources.
package backend

import (
	"context"
	"errors"

	"github.com/sourceplane/liteiac/internal/model"
)

// ErrNotFound is returned (possibly wrapped) by Lookup when no external
// resource matches the import reference
var ErrNotFound = errors.New("external resource not found")

// Creator creates a single resource given the outputs of its dependencies
type Creator interface {
	Create(ctx context.Context, node model.ResourceNode, deps map[string]model.Output) (model.Output, error)
}

// Lookuper resolves references to resources that exist outside the plan
type Lookuper interface {
	Lookup(ctx context.Context, ref model.ImportRef) (model.ExternalHandle, error)
}

// Backend is the full provisioning capability set
type Backend interface {
	Creator
	Lookuper
}

// Compose pairs a creator and a lookuper into one backend
func Compose(c Creator, l Lookuper) Backend {
	return composite{Creator: c, Lookuper: l}
}

type composite struct {
	Creator
	Lookuper
}
