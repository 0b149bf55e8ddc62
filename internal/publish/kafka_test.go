package publish

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejusbharadwaj/smardexporter/internal/models"
	"github.com/tejusbharadwaj/smardexporter/internal/snapshot"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestPublish(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisherWithWriter(w, quietLogger())

	ts := time.Date(2024, 5, 10, 13, 50, 0, 0, time.UTC)
	snap := &snapshot.Snapshot{
		CycleID:    "cycle-7",
		ObservedAt: ts,
		Samples: []models.MetricSample{
			{ID: 1004068, Region: "DE", ModuleName: "Photovoltaik", EnergyType: models.EnergyRenewable, Value: 2000000, TimestampSeconds: ts.Unix()},
			{ID: 1001223, Region: "DE", ModuleName: "Braunkohle", EnergyType: models.EnergyConventional, Value: 500, TimestampSeconds: ts.Unix()},
		},
	}

	require.NoError(t, p.Publish(context.Background(), snap))
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "1004068", string(w.msgs[0].Key))
	assert.Equal(t, "1001223", string(w.msgs[1].Key))
	assert.True(t, ts.Equal(w.msgs[0].Time))

	var got Message
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "cycle-7", got.CycleID)
	assert.Equal(t, "Photovoltaik", got.ModuleName)
	assert.Equal(t, models.EnergyRenewable, got.EnergyType)
	assert.Equal(t, 2000000.0, got.Value)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishEmptyAndErrors(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisherWithWriter(w, quietLogger())

	assert.NoError(t, p.Publish(context.Background(), nil))
	assert.NoError(t, p.Publish(context.Background(), &snapshot.Snapshot{}))
	assert.Empty(t, w.msgs)

	w.err = errors.New("broker down")
	err := p.Publish(context.Background(), &snapshot.Snapshot{Samples: []models.MetricSample{{ID: 1}}})
	assert.ErrorIs(t, err, w.err)
}

func TestNewKafkaPublisherValidation(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "topic", nil)
	assert.Error(t, err)

	_, err = NewKafkaPublisher([]string{"localhost:9092"}, " ", nil)
	assert.Error(t, err)

	p, err := NewKafkaPublisher([]string{"localhost:9092"}, "smard-energydata", quietLogger())
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}
