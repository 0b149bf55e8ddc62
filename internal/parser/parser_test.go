package parser

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return data
}

// singleModule renders a payload with one category holding one module.
func singleModule(values ...string) []byte {
	var b strings.Builder
	b.WriteString(`<daten><kategorie><kategorie_name>Realisierte Erzeugung</kategorie_name><region>DE</region><bausteine>`)
	b.WriteString(`<baustein><baustein_name>Biomasse</baustein_name><einheit>MWh</einheit><werte>`)
	for _, v := range values {
		fmt.Fprintf(&b, `<wert_detail><wert>%s</wert></wert_detail>`, v)
	}
	b.WriteString(`</werte></baustein></bausteine></kategorie></daten>`)
	return []byte(b.String())
}

func TestParseSubValues(t *testing.T) {
	tests := []struct {
		name      string
		values    []string
		wantValid bool
		wantValue float64
	}{
		{
			name:      "all present",
			values:    []string{"1,5", "2,5"},
			wantValid: true,
			wantValue: 4.0,
		},
		{
			name:   "missing sentinel invalidates the module",
			values: []string{"1,5", "-", "2,0"},
		},
		{
			name:   "empty text invalidates the module",
			values: []string{"1,5", ""},
		},
		{
			name:   "unreadable number invalidates the module",
			values: []string{"1,5", "n/a"},
		},
		{
			name:      "grouping separator",
			values:    []string{"1.000,25", "0,75"},
			wantValid: true,
			wantValue: 1001.0,
		},
		{
			name:      "no sub-values sums to zero",
			values:    nil,
			wantValid: true,
			wantValue: 0,
		},
	}

	p := New(German)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.Parse(singleModule(tt.values...), []int{1004066})
			require.NoError(t, err)

			if !tt.wantValid {
				assert.Empty(t, res.Records)
				require.Len(t, res.Dropped, 1)
				assert.Equal(t, 1004066, res.Dropped[0].ModuleID)
				return
			}
			require.Len(t, res.Records, 1)
			assert.Empty(t, res.Dropped)
			assert.True(t, res.Records[0].Valid)
			assert.InDelta(t, tt.wantValue, res.Records[0].Value, 1e-9)
		})
	}
}

func TestParseFixture(t *testing.T) {
	ids := []int{1001224, 1004068, 5000410, 5004359}
	res, err := New(German).Parse(loadFixture(t, "two_categories.xml"), ids)
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	pv := res.Records[0]
	assert.Equal(t, 1004068, pv.ID)
	assert.Equal(t, "DE", pv.Region)
	assert.Equal(t, "Realisierte Erzeugung", pv.CategoryName)
	assert.Equal(t, "Photovoltaik", pv.ModuleName)
	assert.Equal(t, "MWh", pv.Unit)
	assert.InDelta(t, 2000.0, pv.Value, 1e-9)

	total := res.Records[1]
	assert.Equal(t, 5000410, total.ID)
	assert.Equal(t, "Realisierter Stromverbrauch", total.CategoryName)
	assert.Equal(t, "Gesamt", total.ModuleName)
	assert.InDelta(t, 12000.25, total.Value, 1e-9)

	require.Len(t, res.Dropped, 2)
	assert.Equal(t, 1001224, res.Dropped[0].ModuleID)
	assert.Equal(t, "Kernenergie", res.Dropped[0].ModuleName)
	assert.Equal(t, 0, res.Dropped[0].Position)
	assert.Equal(t, 5004359, res.Dropped[1].ModuleID)
	assert.Equal(t, 3, res.Dropped[1].Position)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		raw     []byte
		ids     []int
		wantErr error
	}{
		{
			name:    "not xml",
			raw:     []byte("this is not xml <<"),
			ids:     []int{1},
			wantErr: ErrMalformed,
		},
		{
			name:    "empty body",
			raw:     nil,
			ids:     []int{1},
			wantErr: ErrMalformed,
		},
		{
			name:    "fewer ids than modules",
			raw:     singleModule("1,0"),
			ids:     nil,
			wantErr: ErrIDMismatch,
		},
		{
			name:    "more ids than modules",
			raw:     singleModule("1,0"),
			ids:     []int{1, 2},
			wantErr: ErrIDMismatch,
		},
		{
			name:    "category without modules node",
			raw:     []byte(`<daten><kategorie><kategorie_name>x</kategorie_name><region>DE</region></kategorie></daten>`),
			ids:     nil,
			wantErr: ErrMissingNode,
		},
		{
			name: "module without unit",
			raw: []byte(`<daten><kategorie><kategorie_name>x</kategorie_name><region>DE</region><bausteine>` +
				`<baustein><baustein_name>y</baustein_name><werte></werte></baustein></bausteine></kategorie></daten>`),
			ids:     []int{1},
			wantErr: ErrMissingNode,
		},
	}

	p := New(German)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.Parse(tt.raw, tt.ids)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.wantErr)

			var pe *ParseError
			assert.True(t, errors.As(err, &pe))
		})
	}
}

func TestNumberFormatParse(t *testing.T) {
	tests := []struct {
		name    string
		format  NumberFormat
		in      string
		want    string
		wantErr bool
	}{
		{name: "german decimal comma", format: German, in: "1,5", want: "1.5"},
		{name: "german grouping", format: German, in: "12.345,678", want: "12345.678"},
		{name: "german negative", format: German, in: "-3,25", want: "-3.25"},
		{name: "english", format: English, in: "1,234.5", want: "1234.5"},
		{name: "surrounding space", format: German, in: "  7 ", want: "7"},
		{name: "empty", format: German, in: " ", wantErr: true},
		{name: "garbage", format: German, in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.format.Parse(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestFormatByName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    NumberFormat
		wantErr bool
	}{
		{name: "german", in: "german", want: German},
		{name: "german short", in: " DE ", want: German},
		{name: "english", in: "english", want: English},
		{name: "english short", in: "en", want: English},
		{name: "unknown", in: "french", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatByName(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEnglishFormat(t *testing.T) {
	res, err := New(English).Parse(singleModule("1,000.25", "0.75"), []int{1004066})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.InDelta(t, 1001.0, res.Records[0].Value, 1e-9)
}
