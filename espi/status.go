package espi

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// ParseServiceStatus reads a ReadServiceStatus response and returns the
// reported status. The custodian answers with a single-element document
// whose first child carries the status code.
func ParseServiceStatus(r io.Reader) (ServiceStatus, error) {
	dec := xml.NewDecoder(r)

	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return ServiceStatus{}, fmt.Errorf("%w: no status element found", ErrUnexpectedSchema)
		}
		if err != nil {
			return ServiceStatus{}, fmt.Errorf("%w: %v", ErrMalformedXML, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 {
				// First child of the document element holds the code.
				text, err := elementText(dec, &t)
				if err != nil {
					return ServiceStatus{}, err
				}
				return ServiceStatus{CurrentStatus: strings.TrimSpace(text)}, nil
			}
		case xml.EndElement:
			depth--
		}
	}
}
