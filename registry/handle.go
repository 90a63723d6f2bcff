package registry

import (
	"context"

	"github.com/skillsenselab/resilix/errors"
	"github.com/skillsenselab/resilix/pipeline"
)

// Handle is the object the registry returns to callers. Its identity is
// stable for the lifetime of the key: it forwards execution to whichever
// instance the owning entry currently holds, so a reload changes
// behavior without invalidating the handle. After the registry is
// disposed every handle rejects execution.
type Handle struct {
	entry *entry
}

// Execute runs op through the entry's current pipeline instance.
func (h *Handle) Execute(ctx context.Context, ec *pipeline.Context, op pipeline.Operation) (any, error) {
	p, err := h.current()
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx, ec, op)
}

// InstanceID returns the current instance's build identifier. It changes
// on reload while the handle itself does not.
func (h *Handle) InstanceID() (string, error) {
	p, err := h.current()
	if err != nil {
		return "", err
	}
	return p.InstanceID(), nil
}

// Key returns the normalized key this handle resolves.
func (h *Handle) Key() string {
	return h.entry.key.name
}

func (h *Handle) current() (*pipeline.Pipeline, error) {
	if h.entry.reg.isDisposed() {
		return nil, errors.RegistryDisposed()
	}
	p := h.entry.instance.Load()
	if p == nil {
		return nil, errors.RegistryDisposed()
	}
	return p, nil
}
