package domain

import "time"

// Executor is one registered scheduler replica. LastActive is heartbeated and
// drives the stale-claim recovery sweep.
type Executor struct {
	ID            int64
	Name          string
	ExecutorGroup string
	Started       time.Time
	LastActive    time.Time
}
