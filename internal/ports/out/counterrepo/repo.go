package counterrepo

import "context"

// Repository issues monotonically increasing integers per counter name.
//
// Next returns the first value as 1. Concurrent callers never observe the same value
// for the same name. Implementations retry transient isolation failures internally and
// return ErrConflict once their retry budget is spent.
type Repository interface {
	Next(ctx context.Context, name string) (int64, error)
}
