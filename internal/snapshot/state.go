package snapshot

import (
	"sync/atomic"
	"time"

	"github.com/tejusbharadwaj/smardexporter/internal/models"
)

// Snapshot is the complete result of one successful poll cycle. It is
// never modified after being published.
type Snapshot struct {
	CycleID    string                `json:"cycle_id" yaml:"cycle_id"`
	Slot       string                `json:"slot" yaml:"slot"`
	Window     models.TimeWindow     `json:"window" yaml:"window"`
	ObservedAt time.Time             `json:"observed_at" yaml:"observed_at"`
	Samples    []models.MetricSample `json:"samples" yaml:"samples"`
}

// State holds the published snapshot. Publish replaces it by pointer, so
// concurrent readers see either the old or the new snapshot, never a mix.
type State struct {
	current atomic.Pointer[Snapshot]
}

// Publish makes s the current snapshot.
func (st *State) Publish(s *Snapshot) {
	st.current.Store(s)
}

// Current returns the published snapshot, or nil before the first publish.
func (st *State) Current() *Snapshot {
	return st.current.Load()
}
