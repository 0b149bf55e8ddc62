package api

import (
	"testing"
	"time"

	"github.com/tejusbharadwaj/smardexporter/internal/models"
)

func TestRequestValidator_Validate(t *testing.T) {
	validator := NewRequestValidator()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	validKey := models.NewAllRequestKey("DE", "discrete")
	validWindow := models.TimeWindow{From: now.Add(-15 * time.Minute), To: now}

	tests := []struct {
		name       string
		key        models.RequestKey
		window     models.TimeWindow
		language   string
		wantErr    bool
		errMessage string
	}{
		{
			name:     "valid request",
			key:      validKey,
			window:   validWindow,
			language: "de",
		},
		{
			name:       "missing module ids",
			key:        models.RequestKey{Region: "DE", Type: "discrete"},
			window:     validWindow,
			language:   "de",
			wantErr:    true,
			errMessage: "missing module ids",
		},
		{
			name:       "negative module id",
			key:        models.NewRequestKey([]int{-4, 1001224}, "DE", "discrete"),
			window:     validWindow,
			language:   "de",
			wantErr:    true,
			errMessage: "invalid module id: -4",
		},
		{
			name:       "missing region",
			key:        models.NewAllRequestKey("", "discrete"),
			window:     validWindow,
			language:   "de",
			wantErr:    true,
			errMessage: "missing region",
		},
		{
			name:       "invalid type",
			key:        models.NewAllRequestKey("DE", "aggregated"),
			window:     validWindow,
			language:   "de",
			wantErr:    true,
			errMessage: "invalid type: aggregated",
		},
		{
			name:       "invalid language",
			key:        validKey,
			window:     validWindow,
			language:   "fr",
			wantErr:    true,
			errMessage: "invalid language: fr",
		},
		{
			name:       "missing timestamp",
			key:        validKey,
			window:     models.TimeWindow{To: now},
			language:   "de",
			wantErr:    true,
			errMessage: "missing timestamp",
		},
		{
			name:       "empty window",
			key:        validKey,
			window:     models.TimeWindow{From: now, To: now},
			language:   "de",
			wantErr:    true,
			errMessage: "start time must be before end time",
		},
		{
			name:       "exceeds max time range",
			key:        validKey,
			window:     models.TimeWindow{From: now.Add(-48 * time.Hour), To: now},
			language:   "de",
			wantErr:    true,
			errMessage: "time range exceeds maximum allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(tt.key, tt.window, tt.language)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && err.Error() != tt.errMessage {
				t.Errorf("Validate() error message = %v, want %v", err.Error(), tt.errMessage)
			}
		})
	}
}

func TestValidateRequest(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	key := models.NewRequestKey([]int{31000714}, "DE", "discrete")

	if err := ValidateRequest(key, models.TimeWindow{From: now.Add(-time.Hour), To: now}); err != nil {
		t.Errorf("ValidateRequest() unexpected error = %v", err)
	}
	if err := ValidateRequest(key, models.TimeWindow{From: now, To: now.Add(-time.Hour)}); err == nil {
		t.Error("ValidateRequest() expected error for inverted window")
	}
}
