package events

import (
	"net/http"
	"time"
)

// HTTPStart is emitted when the compile service receives a request.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is emitted after the compile service handled a request.
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Duration time.Duration
}
