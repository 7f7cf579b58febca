package progress

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventValidate(t *testing.T) {
	t.Parallel()

	base := Event{
		RunID: UUIDToBytes(uuid.New()),
		TS:    time.Now().UTC(),
	}

	tests := []struct {
		name    string
		mutate  func(*Event)
		wantErr bool
	}{
		{"batch start", func(e *Event) { e.Stage = StageBatchStart }, false},
		{"batch done", func(e *Event) { e.Stage = StageBatchDone }, false},
		{"phase done with tier", func(e *Event) { e.Stage = StagePhaseDone; e.Tier = "direct" }, false},
		{"phase done missing tier", func(e *Event) { e.Stage = StagePhaseDone }, true},
		{"fetch done complete", func(e *Event) {
			e.Stage = StageFetchDone
			e.Tier = "static"
			e.Host = "example.com"
		}, false},
		{"fetch done missing host", func(e *Event) { e.Stage = StageFetchDone; e.Tier = "static" }, true},
		{"crawl page", func(e *Event) { e.Stage = StageCrawlPage; e.Host = "example.com" }, false},
		{"unknown stage", func(e *Event) { e.Stage = "WAT" }, true},
		{"missing run id", func(e *Event) { e.Stage = StageBatchStart; e.RunID = [16]byte{} }, true},
		{"missing timestamp", func(e *Event) { e.Stage = StageBatchStart; e.TS = time.Time{} }, true},
		{"negative duration", func(e *Event) { e.Stage = StageBatchStart; e.Dur = -time.Second }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			evt := base
			tt.mutate(&evt)
			err := evt.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestUUIDRoundTrip(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	evt := Event{RunID: UUIDToBytes(id)}
	assert.Equal(t, id, evt.RunUUID())
}
