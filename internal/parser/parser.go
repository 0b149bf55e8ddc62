// Package parser turns the vendor XML payload into per-module aggregates.
//
// The payload does not carry module ids. Ids are attached by position:
// categories and their modules are walked in document order and matched
// one-to-one against the module ids of the request, in request order.
// The upstream feed must return modules in exactly the order they were
// requested. The parser only guards the count; if the feed ever reorders
// modules without changing their number, ids attach to the wrong module.
package parser

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tejusbharadwaj/smardexporter/internal/models"
)

// MissingValue is the feed's "no data" sentinel.
const MissingValue = "-"

var (
	ErrMalformed   = errors.New("malformed xml")
	ErrMissingNode = errors.New("missing expected node")
	ErrIDMismatch  = errors.New("module count does not match requested ids")
)

// ParseError aborts the whole payload.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("parse feed: %v", e.Err)
	}
	return fmt.Sprintf("parse feed: %s: %v", e.Reason, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// InvalidModuleError explains why one module was dropped. It never fails
// the payload as a whole.
type InvalidModuleError struct {
	Position   int
	ModuleID   int
	ModuleName string
	Reason     string
}

func (e *InvalidModuleError) Error() string {
	return fmt.Sprintf("module %d (%s) at position %d dropped: %s", e.ModuleID, e.ModuleName, e.Position, e.Reason)
}

type document struct {
	Categories []category `xml:"kategorie"`
}

type category struct {
	Name    *string     `xml:"kategorie_name"`
	Region  *string     `xml:"region"`
	Modules *moduleList `xml:"bausteine"`
}

type moduleList struct {
	Modules []module `xml:"baustein"`
}

type module struct {
	Name   *string    `xml:"baustein_name"`
	Unit   *string    `xml:"einheit"`
	Values *valueList `xml:"werte"`
}

type valueList struct {
	Details []valueDetail `xml:"wert_detail"`
}

// Older payloads use <wert>, newer ones <Value>.
type valueDetail struct {
	Wert  *string `xml:"wert"`
	Value *string `xml:"Value"`
}

func (d valueDetail) text() (string, bool) {
	if d.Wert != nil {
		return strings.TrimSpace(*d.Wert), true
	}
	if d.Value != nil {
		return strings.TrimSpace(*d.Value), true
	}
	return "", false
}

// Result holds the valid records of a payload and the modules that were dropped.
type Result struct {
	Records []models.ModuleRecord
	Dropped []*InvalidModuleError
}

// Parser parses feed payloads using a fixed number format.
type Parser struct {
	format NumberFormat
}

func New(format NumberFormat) *Parser {
	return &Parser{format: format}
}

// Parse decodes raw and attaches ids positionally. Only modules whose every
// sub-value is present end up in Result.Records.
func (p *Parser) Parse(raw []byte, ids []int) (*Result, error) {
	var doc document
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, &ParseError{Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}

	total := 0
	for i, cat := range doc.Categories {
		if cat.Name == nil || cat.Region == nil || cat.Modules == nil {
			return nil, &ParseError{Reason: fmt.Sprintf("category %d", i), Err: ErrMissingNode}
		}
		total += len(cat.Modules.Modules)
	}
	if total != len(ids) {
		return nil, &ParseError{
			Reason: fmt.Sprintf("feed returned %d modules for %d requested ids", total, len(ids)),
			Err:    ErrIDMismatch,
		}
	}

	result := &Result{}
	pos := 0
	for _, cat := range doc.Categories {
		for _, mod := range cat.Modules.Modules {
			if mod.Name == nil || mod.Unit == nil || mod.Values == nil {
				return nil, &ParseError{Reason: fmt.Sprintf("module at position %d", pos), Err: ErrMissingNode}
			}

			rec := models.ModuleRecord{
				ID:           ids[pos],
				Region:       strings.TrimSpace(*cat.Region),
				CategoryName: strings.TrimSpace(*cat.Name),
				ModuleName:   strings.TrimSpace(*mod.Name),
				Unit:         strings.TrimSpace(*mod.Unit),
			}

			sum, reason := p.sum(mod.Values.Details)
			if reason != "" {
				result.Dropped = append(result.Dropped, &InvalidModuleError{
					Position:   pos,
					ModuleID:   rec.ID,
					ModuleName: rec.ModuleName,
					Reason:     reason,
				})
			} else {
				rec.Value = sum.InexactFloat64()
				rec.Valid = true
				result.Records = append(result.Records, rec)
			}
			pos++
		}
	}

	return result, nil
}

// sum adds all sub-values. One missing or unreadable value invalidates the
// module; there is no partial sum.
func (p *Parser) sum(details []valueDetail) (decimal.Decimal, string) {
	total := decimal.Zero
	for i, d := range details {
		text, ok := d.text()
		if !ok || text == "" || text == MissingValue {
			return decimal.Zero, fmt.Sprintf("sub-value %d missing", i)
		}
		v, err := p.format.Parse(text)
		if err != nil {
			return decimal.Zero, fmt.Sprintf("sub-value %d: %v", i, err)
		}
		total = total.Add(v)
	}
	return total, ""
}
