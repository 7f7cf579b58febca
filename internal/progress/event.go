// Package progress defines the event stream emitted by the cascade, the
// batch optimizer, and the domain crawler.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageBatchStart Stage = "BATCH_START"
	StagePhaseDone  Stage = "PHASE_DONE"
	StageBatchDone  Stage = "BATCH_DONE"
	StageFetchDone  Stage = "FETCH_DONE"
	StageCrawlPage  Stage = "CRAWL_PAGE"
)

// Event captures a single milestone of a scrape or crawl run.
type Event struct {
	// RunID uniquely identifies one batch/crawl run in 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// Tier names the fetch tier for phase and fetch events.
	Tier string
	// Host scopes fetch and crawl events to an origin.
	Host string
	// URL is the optional page URL; it should not contain credentials.
	URL string
	// Bytes carries the HTML size for fetch completions.
	Bytes int64
	// Resolved/Total carry the batch optimizer's phase counters.
	Resolved int
	Total    int
	// Dur captures execution latency for fetches and phases.
	Dur time.Duration
	// Note lets emitters attach low-volume debug context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageBatchStart, StageBatchDone:
	case StagePhaseDone:
		if e.Tier == "" {
			return errors.New("phase done requires tier")
		}
	case StageFetchDone:
		if e.Tier == "" {
			return errors.New("fetch done requires tier")
		}
		if e.Host == "" {
			return errors.New("fetch done requires host")
		}
	case StageCrawlPage:
		if e.Host == "" {
			return errors.New("crawl page requires host")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
