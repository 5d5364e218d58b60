package achievement

import "github.com/markdotcom5/markmvp5-sub000/internal/domain/model"

// Evaluator checks accumulated metrics against the catalog. It holds no
// mutable state; evaluation is a pure function of (metrics, unlocked set,
// catalog).
type Evaluator struct {
	catalog []Criterion
}

// Option applies a configuration option to the Evaluator.
type Option func(*Evaluator)

// WithCatalog overrides the default criterion catalog.
func WithCatalog(catalog []Criterion) Option {
	return func(e *Evaluator) {
		if len(catalog) > 0 {
			e.catalog = catalog
		}
	}
}

// NewEvaluator creates an evaluator over the default catalog.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{catalog: DefaultCatalog()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate returns the criteria newly satisfied by the participant's current
// metrics. Criteria already present in the unlocked set are never returned
// again; evaluating twice with unchanged metrics yields nothing the second
// time once the first result has been recorded.
func (e *Evaluator) Evaluate(p model.Participant) []Criterion {
	var newly []Criterion
	for _, c := range e.catalog {
		if p.HasUnlocked(c.ID) {
			continue
		}
		if c.Satisfied != nil && c.Satisfied(p) {
			newly = append(newly, c)
		}
	}
	return newly
}

// Catalog exposes the fixed catalog for display purposes.
func (e *Evaluator) Catalog() []Criterion {
	out := make([]Criterion, len(e.catalog))
	copy(out, e.catalog)
	return out
}
