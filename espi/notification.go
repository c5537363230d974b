package espi

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gridwell/espi-self-access/interfaces"
)

// BulkID extracts the numeric bulk identifier from the first Atom link of
// a pushed document. Custodian feeds carry their batch URL as the self
// link, ending in the bulk ID.
func BulkID(r io.Reader) (int64, error) {
	dec := xml.NewDecoder(r)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return 0, fmt.Errorf("%w: no atom link found", ErrUnexpectedSchema)
		}
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformedXML, err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Space != NamespaceAtom || se.Name.Local != "link" {
			continue
		}

		for _, attr := range se.Attr {
			if attr.Name.Local != "href" {
				continue
			}
			return bulkIDFromHref(attr.Value)
		}
		return 0, fmt.Errorf("%w: atom link without href", ErrUnexpectedSchema)
	}
}

// bulkIDFromHref parses the integer trailing path segment of a link href.
func bulkIDFromHref(href string) (int64, error) {
	trimmed := strings.TrimSuffix(href, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 || idx == len(trimmed)-1 {
		return 0, fmt.Errorf("%w: link href %q has no path segments", ErrUnexpectedSchema, href)
	}

	id, err := strconv.ParseInt(trimmed[idx+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: link href %q does not end in a bulk id", ErrUnexpectedSchema, href)
	}
	return id, nil
}

// ParseNotification reads a payload pushed by the custodian and collects
// the resource URIs it references. Batch notifications name their
// resources in espi resources or resourceURI elements; a push that inlines
// the usage feed yields none. The bulk ID is taken from the first Atom
// link when one is present.
func ParseNotification(data []byte) (*Notification, error) {
	notification := &Notification{}

	if id, err := BulkID(bytes.NewReader(data)); err == nil {
		notification.BulkID = id
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	sawElement := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawElement = true

		if se.Name.Space != NamespaceESPI {
			continue
		}
		if se.Name.Local != "resources" && se.Name.Local != "resourceURI" {
			continue
		}

		text, err := elementText(dec, &se)
		if err != nil {
			return nil, err
		}

		uri, err := interfaces.NewResourceURI(strings.TrimSpace(text))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedSchema, err)
		}
		notification.Resources = append(notification.Resources, uri)
	}

	if !sawElement {
		return nil, fmt.Errorf("%w: empty document", ErrUnexpectedSchema)
	}

	return notification, nil
}
