package forecast

import "errors"

// maxHorizonDays caps how far ahead any engine will predict.
const maxHorizonDays = 365

// Failure taxonomy for forecast generation. Callers branch on these with
// errors.Is; wrapped errors carry the underlying detail.
var (
	// ErrInvalidInput marks a request that can never succeed as given
	// (bad horizon, empty series id, malformed history). Never retried.
	ErrInvalidInput = errors.New("invalid forecast input")

	// ErrTimeout marks a prediction attempt that hit the hard wall-clock
	// deadline.
	ErrTimeout = errors.New("forecast attempt timed out")

	// ErrSubprocessFailure marks a model process that exited non-zero or
	// produced unusable output.
	ErrSubprocessFailure = errors.New("forecast subprocess failed")

	// ErrInsufficientData marks history too short for any engine to
	// produce a statistically meaningful result.
	ErrInsufficientData = errors.New("insufficient history for forecast")

	// ErrCacheIO marks a forecast cache read or write failure. The cache
	// is best-effort: these are logged and degrade to a miss, never fatal.
	ErrCacheIO = errors.New("forecast cache unavailable")
)
