package models

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// AllSlot is the cache slot used when no module subset was selected.
const AllSlot = "all"

// DefaultModuleIDs is the module list requested when the selector is "all",
// in the order the feed returns them.
var DefaultModuleIDs = []int{
	1001224, // Realisierte Erzeugung > Kernenergie
	1004066, // Realisierte Erzeugung > Biomasse
	1004067, // Realisierte Erzeugung > Wind Onshore
	1004068, // Realisierte Erzeugung > Photovoltaik
	1001223, // Realisierte Erzeugung > Braunkohle
	1004069, // Realisierte Erzeugung > Steinkohle
	1004071, // Realisierte Erzeugung > Erdgas
	1004070, // Realisierte Erzeugung > Pumpspeicher
	1001226, // Realisierte Erzeugung > Wasserkraft
	1001228, // Realisierte Erzeugung > Sonstige Erneuerbare
	1001227, // Realisierte Erzeugung > Sonstige Konventionelle
	1001225, // Realisierte Erzeugung > Wind Offshore
	5000410, // Realisierter Stromverbrauch > Gesamt
	5004359, // Realisierter Stromverbrauch > Residuallast
}

// RequestKey identifies one distinct upstream request and its cache slot.
type RequestKey struct {
	// ModuleIDs in request order. Subsets are sorted ascending.
	ModuleIDs []int
	All       bool
	Region    string
	Type      string
}

// NewRequestKey builds the key for an explicit module subset. The ids are
// copied and sorted so that any permutation yields the same key.
func NewRequestKey(ids []int, region, typ string) RequestKey {
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)
	return RequestKey{ModuleIDs: sorted, Region: region, Type: typ}
}

// NewAllRequestKey builds the key for the default module list.
func NewAllRequestKey(region, typ string) RequestKey {
	return RequestKey{
		ModuleIDs: append([]int(nil), DefaultModuleIDs...),
		All:       true,
		Region:    region,
		Type:      typ,
	}
}

// Slot returns the storage slot name: the sorted ids joined by "-", or "all".
func (k RequestKey) Slot() string {
	if k.All {
		return AllSlot
	}
	sorted := append([]int(nil), k.ModuleIDs...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, "-")
}

// TimeWindow is a half-open [From, To) request window.
type TimeWindow struct {
	From time.Time
	To   time.Time
}

// FromMillis returns From as epoch milliseconds.
func (w TimeWindow) FromMillis() int64 { return w.From.UnixMilli() }

// ToMillis returns To as epoch milliseconds.
func (w TimeWindow) ToMillis() int64 { return w.To.UnixMilli() }

// Span returns the window length.
func (w TimeWindow) Span() time.Duration { return w.To.Sub(w.From) }

// CachedResponse is a raw upstream body together with the time it was fetched.
type CachedResponse struct {
	Key       RequestKey
	Body      []byte
	FetchedAt time.Time
}

// ModuleRecord is the aggregate of one <baustein> element.
type ModuleRecord struct {
	ID           int     `json:"id"`
	Region       string  `json:"region"`
	CategoryName string  `json:"category_name"`
	ModuleName   string  `json:"module_name"`
	Unit         string  `json:"unit"`
	Value        float64 `json:"value"`
	Valid        bool    `json:"valid"`
}

// EnergyType tags a module by its generation type.
type EnergyType string

const (
	EnergyRenewable    EnergyType = "renewable"
	EnergyConventional EnergyType = "conventional"
	EnergyNeutral      EnergyType = "neutral"
	EnergyUnknown      EnergyType = "unknown"
)

// MetricSample is one exported gauge value.
type MetricSample struct {
	ID               int        `json:"id" yaml:"id"`
	Region           string     `json:"region" yaml:"region"`
	CategoryName     string     `json:"cat_name" yaml:"cat_name"`
	ModuleName       string     `json:"module_name" yaml:"module_name"`
	EnergyType       EnergyType `json:"energy_type" yaml:"energy_type"`
	Value            float64    `json:"value" yaml:"value"`
	TimestampSeconds int64      `json:"timestamp" yaml:"timestamp"`
}
