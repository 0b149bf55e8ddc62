package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name     string
		ids      []int
		now      time.Time
		wantFrom time.Time
		wantTo   time.Time
	}{
		{
			name:     "general case rounds down",
			ids:      []int{1004066, 1004067},
			now:      time.Date(2024, 5, 10, 14, 20, 11, 0, time.UTC),
			wantFrom: time.Date(2024, 5, 10, 12, 15, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 5, 10, 12, 30, 0, 0, time.UTC),
		},
		{
			name:     "general case rounds up past half hour",
			ids:      []int{1004066},
			now:      time.Date(2024, 5, 10, 14, 40, 0, 0, time.UTC),
			wantFrom: time.Date(2024, 5, 10, 13, 15, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 5, 10, 13, 30, 0, 0, time.UTC),
		},
		{
			name:     "halfway rounds up",
			ids:      []int{1004066},
			now:      time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC),
			wantFrom: time.Date(2024, 5, 10, 13, 15, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 5, 10, 13, 30, 0, 0, time.UTC),
		},
		{
			name:     "cross-border single module",
			ids:      []int{31000714},
			now:      time.Date(2024, 5, 10, 14, 20, 0, 0, time.UTC),
			wantFrom: time.Date(2024, 5, 10, 11, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
		},
		{
			name:     "cross-border id within a larger set uses the general case",
			ids:      []int{31000140, 31000569},
			now:      time.Date(2024, 5, 10, 14, 20, 0, 0, time.UTC),
			wantFrom: time.Date(2024, 5, 10, 12, 15, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 5, 10, 12, 30, 0, 0, time.UTC),
		},
		{
			name:     "id outside the band",
			ids:      []int{31001000},
			now:      time.Date(2024, 5, 10, 14, 20, 0, 0, time.UTC),
			wantFrom: time.Date(2024, 5, 10, 12, 15, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 5, 10, 12, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Calculate(tt.ids, tt.now)
			assert.True(t, tt.wantFrom.Equal(w.From), "from: want %s got %s", tt.wantFrom, w.From)
			assert.True(t, tt.wantTo.Equal(w.To), "to: want %s got %s", tt.wantTo, w.To)
			assert.True(t, w.From.Before(w.To))
		})
	}
}

func TestCalculateInvariants(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 24*60; i += 7 {
		now := start.Add(time.Duration(i) * time.Minute)
		rounded := now.Round(time.Hour)

		general := Calculate([]int{1001224}, now)
		assert.Equal(t, 15*time.Minute, general.Span())
		assert.Equal(t, 90*time.Minute, rounded.Sub(general.To))

		cross := Calculate([]int{31000000}, now)
		assert.Equal(t, time.Hour, cross.Span())
		assert.Equal(t, 120*time.Minute, rounded.Sub(cross.To))
	}
}

func TestIsCrossBorder(t *testing.T) {
	assert.True(t, IsCrossBorder([]int{CrossBorderMin}))
	assert.True(t, IsCrossBorder([]int{CrossBorderMax}))
	assert.False(t, IsCrossBorder([]int{CrossBorderMin - 1}))
	assert.False(t, IsCrossBorder(nil))
	assert.False(t, IsCrossBorder([]int{CrossBorderMin, CrossBorderMax}))
}
