package api

import (
	"fmt"
	"time"

	"github.com/tejusbharadwaj/smardexporter/internal/models"
)

const maxWindowSpan = 24 * time.Hour

// RequestValidator rejects feed requests the upstream would refuse or
// answer with data we cannot attribute.
type RequestValidator struct {
	validTypes     map[string]bool
	validLanguages map[string]bool
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{
		validTypes: map[string]bool{
			"discrete": true,
		},
		validLanguages: map[string]bool{
			"de": true,
			"en": true,
		},
	}
}

// Validate checks the key, window and language of a feed request.
func (v *RequestValidator) Validate(key models.RequestKey, window models.TimeWindow, language string) error {
	if len(key.ModuleIDs) == 0 {
		return fmt.Errorf("missing module ids")
	}
	for _, id := range key.ModuleIDs {
		if id <= 0 {
			return fmt.Errorf("invalid module id: %d", id)
		}
	}

	if key.Region == "" {
		return fmt.Errorf("missing region")
	}
	if !v.validTypes[key.Type] {
		return fmt.Errorf("invalid type: %s", key.Type)
	}
	if !v.validLanguages[language] {
		return fmt.Errorf("invalid language: %s", language)
	}

	if window.From.IsZero() || window.To.IsZero() {
		return fmt.Errorf("missing timestamp")
	}
	if !window.From.Before(window.To) {
		return fmt.Errorf("start time must be before end time")
	}
	if window.Span() > maxWindowSpan {
		return fmt.Errorf("time range exceeds maximum allowed")
	}

	return nil
}

// ValidateRequest validates key and window with the default language.
func ValidateRequest(key models.RequestKey, window models.TimeWindow) error {
	return NewRequestValidator().Validate(key, window, "de")
}
