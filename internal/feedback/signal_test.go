package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"scangate/internal/ingest"
)

func TestPresentAndLateTonesAreDistinct(t *testing.T) {
	present := SignalFor(ingest.OutcomePresent)
	late := SignalFor(ingest.OutcomeLate)

	assert.NotEqual(t, None, present)
	assert.NotEqual(t, None, late)
	assert.NotEqual(t, present.FrequencyHz, late.FrequencyHz)
}

func TestAttentionStatusesShareTone(t *testing.T) {
	assert.Equal(t, SignalFor(ingest.OutcomeNotFound), SignalFor(ingest.OutcomeAlreadyMarked))
	assert.NotEqual(t, None, SignalFor(ingest.OutcomeNotFound))
}

func TestErrorStatusIsSilent(t *testing.T) {
	assert.Equal(t, None, SignalFor(ingest.OutcomeError))
}
