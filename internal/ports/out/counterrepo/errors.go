package counterrepo

import "errors"

var ErrConflict = errors.New("counter: transaction conflict, retries exhausted")
