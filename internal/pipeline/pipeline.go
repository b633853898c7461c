package pipeline

import (
	"log/slog"

	"github.com/IshaanNene/entitymap/internal/types"
)

// Middleware processes an entity and returns the (possibly modified) entity.
// Return nil to drop the entity from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms an entity. Return nil to drop the entity.
	Process(e *types.RawEntity) (*types.RawEntity, error)
}

// Pipeline chains middleware processors together. One pipeline holds the
// rules for one label of one profile.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Use adds middleware to the pipeline chain.
func (p *Pipeline) Use(mws ...Middleware) *Pipeline {
	for _, mw := range mws {
		p.middlewares = append(p.middlewares, mw)
		p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
	}
	return p
}

// Process runs the entity through all middleware in order. The input is
// copied, so callers may reuse it.
func (p *Pipeline) Process(e types.RawEntity) (*types.RawEntity, error) {
	current := &e

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage:  mw.Name(),
				Entity: current,
				Err:    err,
			}
		}
		if result == nil {
			p.logger.Debug("entity dropped", "stage", mw.Name(), "text", e.Text, "label", e.Label)
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// Names lists the middleware in chain order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.middlewares))
	for i, mw := range p.middlewares {
		names[i] = mw.Name()
	}
	return names
}
