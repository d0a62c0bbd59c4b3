package actions

import (
	"context"
	"encoding/json"

	"github.com/invoflow/invoflow/pkg/invoflow/models"
)

// Handler executes one step kind. Implementations classify every failure as
// transient or permanent and never let an error escape as a Go error: the
// step executor only ever sees an Outcome.
type Handler interface {
	ActionType() models.ActionType
	Execute(ctx context.Context, sc models.StepContext, data json.RawMessage) models.Outcome
}

// Registry maps action types to their handlers.
type Registry struct {
	handlers map[models.ActionType]Handler
}

func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{handlers: make(map[models.ActionType]Handler, len(handlers))}
	for _, h := range handlers {
		r.Register(h)
	}
	return r
}

func (r *Registry) Register(h Handler) {
	r.handlers[h.ActionType()] = h
}

// Handler returns the handler for the action type, or nil when none is
// registered.
func (r *Registry) Handler(t models.ActionType) Handler {
	return r.handlers[t]
}
