package events

import "time"

// PlanStart is emitted before compiling a query into a plan.
type PlanStart struct {
	Query string
}

// PlanFinish is emitted after compiling a query into a plan.
type PlanFinish struct {
	Query      string
	SubQueries int
	Err        error
	Duration   time.Duration
}
