package espi

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dayWattHours are the expected normalized watt-hour values for the
// 24 hourly intervals in testdata/usage_day.xml.
var dayWattHours = []int64{
	1067, 917, 912, 759, 594, 650, 677, 760,
	696, 854, 1230, 871, 827, 1043, 1234, 1116,
	1331, 3363, 4870, 5534, 5542, 6296, 5372, 4148,
}

// usageFeed wraps interval readings in a minimal custodian feed carrying
// one reading type with the given power of ten multiplier.
func usageFeed(multiplier int, readings ...string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	sb.WriteString(`<feed xmlns="http://www.w3.org/2005/Atom" xmlns:espi="http://naesb.org/espi">`)
	sb.WriteString(`<link href="https://api.example.com/espi/1_1/resource/Batch/Bulk/50916" rel="self"/>`)
	sb.WriteString(`<entry><content><espi:ReadingType>`)
	fmt.Fprintf(&sb, `<espi:powerOfTenMultiplier>%d</espi:powerOfTenMultiplier>`, multiplier)
	sb.WriteString(`</espi:ReadingType></content></entry>`)
	sb.WriteString(`<entry><content><espi:IntervalBlock>`)
	sb.WriteString(`<espi:interval><espi:duration>86400</espi:duration><espi:start>1570086000</espi:start></espi:interval>`)
	for _, r := range readings {
		sb.WriteString(r)
	}
	sb.WriteString(`</espi:IntervalBlock></content></entry></feed>`)
	return sb.String()
}

// reading renders one wire-format interval reading.
func reading(start, duration, value int64) string {
	return fmt.Sprintf(
		`<espi:IntervalReading><espi:timePeriod><espi:duration>%d</espi:duration><espi:start>%d</espi:start></espi:timePeriod><espi:value>%d</espi:value></espi:IntervalReading>`,
		duration, start, value,
	)
}

func TestParseUsage_DayFeed(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "usage_day.xml"))
	require.NoError(t, err)

	readings, err := ParseUsage(strings.NewReader(string(data)))
	require.NoError(t, err)
	require.Len(t, readings, 24)

	// Hourly intervals, contiguous starting 2019-10-03 00:00 Pacific.
	for i, r := range readings {
		assert.Equal(t, int64(1570086000+3600*i), r.Start)
		assert.Equal(t, int64(3600), r.Duration)
		assert.Equal(t, dayWattHours[i], r.WattHours)
	}

	// Same document parses to the same readings.
	again, err := ParseUsage(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, readings, again)
}

func TestParseUsage_MultiplierScalesValue(t *testing.T) {
	tests := []struct {
		name       string
		multiplier int
		duration   int64
		value      int64
		expected   int64
	}{
		{
			name:       "milli watt hours",
			multiplier: -3,
			duration:   3600,
			value:      1067000,
			expected:   1067,
		},
		{
			name:       "unit multiplier",
			multiplier: 0,
			duration:   3600,
			value:      250,
			expected:   250,
		},
		{
			name:       "sub hour interval scales by duration",
			multiplier: 0,
			duration:   900,
			value:      1000,
			expected:   250,
		},
		{
			name:       "positive multiplier",
			multiplier: 3,
			duration:   3600,
			value:      2,
			expected:   2000,
		},
		{
			name:       "rounds to nearest",
			multiplier: -3,
			duration:   3600,
			value:      1500,
			expected:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := usageFeed(tt.multiplier, reading(1570086000, tt.duration, tt.value))
			readings, err := ParseUsage(strings.NewReader(doc))
			require.NoError(t, err)
			require.Len(t, readings, 1)
			assert.Equal(t, tt.expected, readings[0].WattHours)
		})
	}
}

func TestParseUsage_MultiplierSwitchesInDocumentOrder(t *testing.T) {
	// Two reading types: readings decoded after the second one use it.
	doc := `<?xml version="1.0" encoding="UTF-8"?>` +
		`<feed xmlns="http://www.w3.org/2005/Atom" xmlns:espi="http://naesb.org/espi">` +
		`<espi:powerOfTenMultiplier>0</espi:powerOfTenMultiplier>` +
		reading(1570086000, 3600, 100) +
		`<espi:powerOfTenMultiplier>-3</espi:powerOfTenMultiplier>` +
		reading(1570089600, 3600, 100000) +
		`</feed>`

	readings, err := ParseUsage(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, int64(100), readings[0].WattHours)
	assert.Equal(t, int64(100), readings[1].WattHours)
}

func TestParseUsage_ClocksBackDropsRepeatedInterval(t *testing.T) {
	// Fall transition: the 01:00 interval arrives twice.
	doc := usageFeed(0,
		reading(1570086000, 3600, 100),
		reading(1570089600, 3600, 200),
		reading(1570089600, 3600, 999),
		reading(1570093200, 3600, 300),
	)

	readings, err := ParseUsage(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, readings, 3)

	assert.Equal(t, int64(1570086000), readings[0].Start)
	assert.Equal(t, int64(200), readings[1].WattHours)
	assert.Equal(t, int64(1570093200), readings[2].Start)
	assert.Equal(t, int64(300), readings[2].WattHours)
}

func TestParseUsage_ClocksForwardFillsGap(t *testing.T) {
	// Spring transition: the 02:00 interval is missing from the feed.
	doc := usageFeed(0,
		reading(1570086000, 3600, 100),
		reading(1570089600, 3600, 200),
		reading(1570096800, 3600, 400),
	)

	readings, err := ParseUsage(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, readings, 4)

	// The gap is filled with the average of its neighbors.
	assert.Equal(t, int64(1570093200), readings[2].Start)
	assert.Equal(t, int64(3600), readings[2].Duration)
	assert.Equal(t, int64(300), readings[2].WattHours)

	// The real readings survive unchanged on both sides.
	assert.Equal(t, int64(200), readings[1].WattHours)
	assert.Equal(t, int64(1570096800), readings[3].Start)
	assert.Equal(t, int64(400), readings[3].WattHours)
}

func TestParseUsage_Errors(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		expected error
	}{
		{
			name:     "truncated document",
			doc:      `<feed xmlns="http://www.w3.org/2005/Atom"><entry>`,
			expected: ErrMalformedXML,
		},
		{
			name:     "not xml at all",
			doc:      `{"kind": "json"}`,
			expected: ErrUnexpectedSchema,
		},
		{
			name:     "no readings",
			doc:      `<feed xmlns="http://www.w3.org/2005/Atom"><entry></entry></feed>`,
			expected: ErrUnexpectedSchema,
		},
		{
			name: "reading before multiplier",
			doc: `<feed xmlns="http://www.w3.org/2005/Atom" xmlns:espi="http://naesb.org/espi">` +
				reading(1570086000, 3600, 100) +
				`</feed>`,
			expected: ErrUnexpectedSchema,
		},
		{
			name: "non numeric multiplier",
			doc: `<feed xmlns="http://www.w3.org/2005/Atom" xmlns:espi="http://naesb.org/espi">` +
				`<espi:powerOfTenMultiplier>abc</espi:powerOfTenMultiplier>` +
				reading(1570086000, 3600, 100) +
				`</feed>`,
			expected: ErrUnexpectedSchema,
		},
		{
			name: "non positive duration",
			doc: `<feed xmlns="http://www.w3.org/2005/Atom" xmlns:espi="http://naesb.org/espi">` +
				`<espi:powerOfTenMultiplier>0</espi:powerOfTenMultiplier>` +
				reading(1570086000, 0, 100) +
				`</feed>`,
			expected: ErrUnexpectedSchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUsage(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}
