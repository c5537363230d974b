package espi

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// intervalReading mirrors the wire shape of an ESPI IntervalReading.
type intervalReading struct {
	TimePeriod struct {
		Duration int64 `xml:"duration"`
		Start    int64 `xml:"start"`
	} `xml:"timePeriod"`
	Value int64 `xml:"value"`
}

// ParseUsage reads a Green Button usage feed and returns its interval
// readings in order. Watt-hours are computed as
// value * 10^powerOfTenMultiplier * duration/3600, using the most recently
// seen multiplier in document order.
//
// Daylight saving transitions are normalized so every day keeps its full
// complement of intervals: a reading whose start repeats or precedes the
// previous reading's start is dropped, and a gap between consecutive
// readings is filled with intervals carrying the average of the two
// neighboring watt-hour values.
func ParseUsage(r io.Reader) ([]IntervalReading, error) {
	dec := xml.NewDecoder(r)

	var (
		readings       []IntervalReading
		multiplier     int
		multiplierSeen bool
		havePrev       bool
		prev           IntervalReading
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Space != NamespaceESPI {
			continue
		}

		switch se.Name.Local {
		case "powerOfTenMultiplier":
			text, err := elementText(dec, &se)
			if err != nil {
				return nil, err
			}
			mp, err := strconv.Atoi(strings.TrimSpace(text))
			if err != nil {
				return nil, fmt.Errorf("%w: power of ten multiplier %q", ErrUnexpectedSchema, text)
			}
			multiplier = mp
			multiplierSeen = true

		case "IntervalReading":
			if !multiplierSeen {
				return nil, fmt.Errorf("%w: interval reading before any reading type multiplier", ErrUnexpectedSchema)
			}

			var ir intervalReading
			if err := dec.DecodeElement(&ir, &se); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
			}

			start := ir.TimePeriod.Start
			duration := ir.TimePeriod.Duration
			if duration <= 0 {
				return nil, fmt.Errorf("%w: non-positive interval duration %d", ErrUnexpectedSchema, duration)
			}

			wattHours := int64(math.Round(float64(ir.Value) * math.Pow10(multiplier) * float64(duration) / 3600))
			reading := IntervalReading{Start: start, Duration: duration, WattHours: wattHours}

			if !havePrev {
				readings = append(readings, reading)
				prev, havePrev = reading, true
				continue
			}

			// Clocks set back: the same UTC interval arrives twice.
			if start <= prev.Start {
				continue
			}

			// Clocks set forward: fill the missing interval with the
			// average of its neighbors so the day keeps 24 slots.
			for fill := prev.Start + duration; fill < start; fill += duration {
				filler := IntervalReading{
					Start:     fill,
					Duration:  duration,
					WattHours: (prev.WattHours + wattHours) / 2,
				}
				readings = append(readings, filler)
			}

			readings = append(readings, reading)
			prev = reading
		}
	}

	if len(readings) == 0 {
		return nil, fmt.Errorf("%w: no interval readings found", ErrUnexpectedSchema)
	}

	return readings, nil
}

// elementText consumes the element started by se and returns its character
// data.
func elementText(dec *xml.Decoder, se *xml.StartElement) (string, error) {
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedXML, err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if t.Name == se.Name {
				return text.String(), nil
			}
		case xml.StartElement:
			return "", fmt.Errorf("%w: unexpected child element <%s> in <%s>", ErrUnexpectedSchema, t.Name.Local, se.Name.Local)
		}
	}
}
