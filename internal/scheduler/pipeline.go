package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tejusbharadwaj/smardexporter/internal/api"
	"github.com/tejusbharadwaj/smardexporter/internal/cache"
	"github.com/tejusbharadwaj/smardexporter/internal/exporter"
	"github.com/tejusbharadwaj/smardexporter/internal/models"
	"github.com/tejusbharadwaj/smardexporter/internal/parser"
	"github.com/tejusbharadwaj/smardexporter/internal/snapshot"
	"github.com/tejusbharadwaj/smardexporter/internal/window"
)

// DefaultObservationOffset is subtracted from the poll time to get the
// timestamp shared by all samples of a cycle.
const DefaultObservationOffset = 10 * time.Minute

type FeedCache interface {
	GetOrFetch(ctx context.Context, key models.RequestKey, w models.TimeWindow, fetch cache.FetchFunc) ([]byte, error)
}

type Fetcher interface {
	FetchFunc(key models.RequestKey) func(context.Context, models.TimeWindow) ([]byte, error)
}

type Parser interface {
	Parse(raw []byte, ids []int) (*parser.Result, error)
}

type Builder interface {
	Build(records []models.ModuleRecord, observedAt time.Time) []models.MetricSample
}

type HealthReporter interface {
	SetServing(serving bool)
}

type Publisher interface {
	Publish(ctx context.Context, snap *snapshot.Snapshot) error
}

type Metrics interface {
	ObserveCycle(result string, d time.Duration)
	RecordPublish(at time.Time, samples, dropped int)
	PublishFailed()
}

// Options holds the optional collaborators of a Pipeline.
type Options struct {
	Health            HealthReporter
	Publisher         Publisher
	Metrics           Metrics
	Now               func() time.Time
	ObservationOffset time.Duration
	Logger            logrus.FieldLogger
}

// Pipeline runs one poll cycle: window, cache, parse, build, publish.
type Pipeline struct {
	key     models.RequestKey
	cache   FeedCache
	fetcher Fetcher
	parser  Parser
	builder Builder
	state   *snapshot.State

	health    HealthReporter
	publisher Publisher
	metrics   Metrics
	now       func() time.Time
	offset    time.Duration
	logger    logrus.FieldLogger
}

func NewPipeline(key models.RequestKey, c FeedCache, f Fetcher, p Parser, b Builder, state *snapshot.State, opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Pipeline{
		key:       key,
		cache:     c,
		fetcher:   f,
		parser:    p,
		builder:   b,
		state:     state,
		health:    opts.Health,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		now:       opts.Now,
		offset:    opts.ObservationOffset,
		logger:    opts.Logger,
	}
}

// RunCycle runs one cycle and publishes its snapshot. On error the
// previously published snapshot stays in place.
func (p *Pipeline) RunCycle(ctx context.Context) (*snapshot.Snapshot, error) {
	start := time.Now()
	now := p.now()
	w := window.Calculate(p.key.ModuleIDs, now)
	cycleID := uuid.NewString()

	log := p.logger.WithFields(logrus.Fields{
		"cycle_id": cycleID,
		"slot":     p.key.Slot(),
		"from":     w.FromMillis(),
		"to":       w.ToMillis(),
	})

	snap, dropped, err := p.run(ctx, cycleID, w, now, log)
	result := classify(err)
	if p.metrics != nil {
		p.metrics.ObserveCycle(result, time.Since(start))
	}
	if err != nil {
		log.WithError(err).WithField("result", result).Error("Poll cycle failed")
		return nil, err
	}

	p.state.Publish(snap)
	if p.metrics != nil {
		p.metrics.RecordPublish(now, len(snap.Samples), dropped)
	}
	if p.health != nil {
		p.health.SetServing(true)
	}
	log.WithFields(logrus.Fields{
		"records": len(snap.Samples),
		"dropped": dropped,
	}).Info("Published snapshot")

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, snap); err != nil {
			if p.metrics != nil {
				p.metrics.PublishFailed()
			}
			log.WithError(err).Warn("Failed to fan out snapshot")
		}
	}
	return snap, nil
}

func (p *Pipeline) run(ctx context.Context, cycleID string, w models.TimeWindow, now time.Time, log *logrus.Entry) (*snapshot.Snapshot, int, error) {
	raw, err := p.cache.GetOrFetch(ctx, p.key, w, p.fetcher.FetchFunc(p.key))
	if err != nil {
		return nil, 0, err
	}

	res, err := p.parser.Parse(raw, p.key.ModuleIDs)
	if err != nil {
		return nil, 0, err
	}
	for _, d := range res.Dropped {
		log.WithField("module_id", d.ModuleID).Debug(d.Error())
	}

	observedAt := now.Add(-p.offset)
	return &snapshot.Snapshot{
		CycleID:    cycleID,
		Slot:       p.key.Slot(),
		Window:     w,
		ObservedAt: observedAt.Round(time.Second),
		Samples:    p.builder.Build(res.Records, observedAt),
	}, len(res.Dropped), nil
}

func classify(err error) string {
	var fe *api.FetchError
	var pe *parser.ParseError
	switch {
	case err == nil:
		return exporter.ResultOK
	case errors.As(err, &fe):
		return exporter.ResultFetchError
	case errors.As(err, &pe):
		return exporter.ResultParseError
	default:
		return exporter.ResultError
	}
}
