package circuit

import "errors"

// ErrCircuitOpen is returned when a call is rejected without being attempted,
// either because the breaker is open or because the half-open probe budget is
// exhausted. Callers distinguish it from the wrapped operation's own errors
// with errors.Is.
var ErrCircuitOpen = errors.New("circuit open")
