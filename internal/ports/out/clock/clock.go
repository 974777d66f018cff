package clock

import "time"

// Clock provides time to the application.
// Profile timestamps and ride drafts read time through it so tests can pin it.
type Clock interface {
	Now() time.Time
}
