// Package snapshot builds the exported metric set of one poll cycle and
// holds the currently published one.
package snapshot

import (
	"time"

	"github.com/tejusbharadwaj/smardexporter/internal/models"
)

// ValueScale converts the feed unit (MWh) into the exported unit (kWh).
const ValueScale = 1000

// Classifier derives an energy type from a module name.
type Classifier interface {
	Classify(moduleName string) models.EnergyType
}

// Builder turns parsed records into metric samples.
type Builder struct {
	classifier Classifier
}

func NewBuilder(c Classifier) *Builder {
	return &Builder{classifier: c}
}

// Build emits one sample per valid record. Every sample carries the same
// timestamp, observedAt rounded to the second, so the output depends only
// on its inputs.
func (b *Builder) Build(records []models.ModuleRecord, observedAt time.Time) []models.MetricSample {
	ts := observedAt.Round(time.Second).Unix()
	samples := make([]models.MetricSample, 0, len(records))
	for _, r := range records {
		if !r.Valid {
			continue
		}
		samples = append(samples, models.MetricSample{
			ID:               r.ID,
			Region:           r.Region,
			CategoryName:     r.CategoryName,
			ModuleName:       r.ModuleName,
			EnergyType:       b.classifier.Classify(r.ModuleName),
			Value:            r.Value * ValueScale,
			TimestampSeconds: ts,
		})
	}
	return samples
}
