package planning

import "errors"

// Sentinel errors. Data errors (bad parameters, corrupt feeds, negative
// projected stock under strict policy) abort the run. Infeasibility is
// recovered by the fallback ladder; ErrNoCapacity surfaces only when even
// the ladder cannot place the urgent items.
var (
	ErrBadParameters = errors.New("invalid planning parameters")
	ErrNegativeStock = errors.New("projected stock is negative")
	ErrInfeasible    = errors.New("allocation problem is infeasible")
	ErrNoCapacity    = errors.New("no capacity for urgent items")
	ErrSolver        = errors.New("allocation solver failed")
)
