package ranking

import "fmt"

// Scope kinds.
const (
	KindGlobal   = "global"
	KindCategory = "category"
	KindLocal    = "local"
)

// Scope identifies the population a ranking is computed over. Local scopes
// carry their parameters on LocalRank instead.
type Scope struct {
	Kind     string
	Category string
}

// GlobalScope ranks against the whole academy.
func GlobalScope() Scope { return Scope{Kind: KindGlobal} }

// CategoryScope ranks against everyone tracked in one skill category.
func CategoryScope(category string) Scope {
	return Scope{Kind: KindCategory, Category: category}
}

// Validate checks scope well-formedness.
func (s Scope) Validate() error {
	switch s.Kind {
	case KindGlobal:
		return nil
	case KindCategory:
		if s.Category == "" {
			return fmt.Errorf("%w: category scope requires a category", ErrInvalidScope)
		}
		return nil
	case KindLocal:
		return fmt.Errorf("%w: local scope must go through LocalRank", ErrInvalidScope)
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidScope, s.Kind)
	}
}

// Percentile label bands, inclusive lower bounds. Fixed, ordered,
// non-overlapping, covering [0,100].
const (
	bandPioneerElite     = 95.0
	bandStarExplorer     = 80.0
	bandSkilledVoyager   = 60.0
	bandRisingCadet      = 40.0
	bandAspiringExplorer = 20.0
)

// Label maps a percentile to its tier name.
func Label(percentile float64) string {
	switch {
	case percentile >= bandPioneerElite:
		return "Pioneer Elite"
	case percentile >= bandStarExplorer:
		return "Star Explorer"
	case percentile >= bandSkilledVoyager:
		return "Skilled Voyager"
	case percentile >= bandRisingCadet:
		return "Rising Cadet"
	case percentile >= bandAspiringExplorer:
		return "Aspiring Explorer"
	default:
		return "Rookie Explorer"
	}
}
