package feedback

import (
	"context"

	"go.uber.org/zap"

	"scangate/internal/ingest"
)

// Signal describes the audible cue for one scan outcome.
type Signal struct {
	FrequencyHz int `json:"frequency_hz"`
	DurationMs  int `json:"duration_ms"`
}

// None means no tone.
var None = Signal{}

// SignalFor maps an outcome status to its tone. Present and late use
// distinct pitches so the operator can tell them apart without looking at
// the screen; not_found and already_marked share a low attention tone.
func SignalFor(status ingest.OutcomeStatus) Signal {
	switch status {
	case ingest.OutcomePresent:
		return Signal{FrequencyHz: 880, DurationMs: 150}
	case ingest.OutcomeLate:
		return Signal{FrequencyHz: 440, DurationMs: 400}
	case ingest.OutcomeNotFound, ingest.OutcomeAlreadyMarked:
		return Signal{FrequencyHz: 220, DurationMs: 250}
	default:
		return None
	}
}

// Emitter is the output port; the physical tone device lives outside this
// process.
type Emitter interface {
	Emit(ctx context.Context, sig Signal) error
}

// LogEmitter logs signals instead of playing them; stands in for a device
// in dev and tests.
type LogEmitter struct {
	Log *zap.Logger
}

// Emit writes the signal to the log.
func (e *LogEmitter) Emit(_ context.Context, sig Signal) error {
	e.Log.Info("tone",
		zap.Int("frequency_hz", sig.FrequencyHz),
		zap.Int("duration_ms", sig.DurationMs),
	)
	return nil
}
