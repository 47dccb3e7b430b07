package discount

import (
	"time"

	"discount-strategy-api/internal/rules"
)

// Engine evaluates requests against one immutable rule snapshot. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	repo *rules.Repository
}

// NewEngine binds an engine to repo.
func NewEngine(repo *rules.Repository) *Engine {
	return &Engine{repo: repo}
}

// Evaluate returns the ranked outcomes for req at now. The result always holds
// at least one record: an unknown store, an empty selection or no eligible
// combination each yield a single sentinel record. Only malformed input is an
// error, and it matches validation.ErrInvalid.
func (e *Engine) Evaluate(req Request, now time.Time) ([]OutcomeRecord, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	store, ok := e.repo.Get(req.StoreID)
	if !ok {
		return []OutcomeRecord{Sentinel(req.Amount, SentinelNoRules)}, nil
	}
	if req.Selection.Empty() {
		return []OutcomeRecord{Sentinel(req.Amount, SentinelNoSelection)}, nil
	}

	combos := GenerateCombinations(req, store, now.In(e.repo.Location()))
	if len(combos) == 0 {
		return []OutcomeRecord{Sentinel(req.Amount, SentinelNotEligible)}, nil
	}
	return Rank(req.Amount, combos), nil
}

// Components decomposes rec using the rules of storeID. Unknown stores and
// sentinel records have no line items.
func (e *Engine) Components(rec OutcomeRecord, storeID string) []LineItem {
	store, ok := e.repo.Get(storeID)
	if !ok || rec.Sentinel != "" {
		return []LineItem{}
	}
	return Components(rec, store)
}
