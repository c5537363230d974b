package espi

import (
	"errors"
	"time"

	"github.com/gridwell/espi-self-access/interfaces"
)

// XML namespaces used by custodian documents.
const (
	NamespaceESPI = "http://naesb.org/espi"
	NamespaceAtom = "http://www.w3.org/2005/Atom"
)

var (
	// ErrMalformedXML is returned when a document cannot be decoded at all.
	ErrMalformedXML = errors.New("malformed xml")

	// ErrUnexpectedSchema is returned when a document decodes but does not
	// carry the elements the parser requires.
	ErrUnexpectedSchema = errors.New("unexpected document schema")
)

// IntervalReading is one normalized usage interval.
type IntervalReading struct {
	// Start of the interval, Unix seconds.
	Start int64

	// Duration of the interval in seconds.
	Duration int64

	// WattHours consumed during the interval, after applying the reading
	// type's power of ten multiplier.
	WattHours int64
}

// StartTime returns the interval start as a time.Time.
func (r IntervalReading) StartTime() time.Time {
	return time.Unix(r.Start, 0)
}

// ServiceStatus is the custodian's ReadServiceStatus response.
type ServiceStatus struct {
	// CurrentStatus is the raw status code reported by the custodian.
	CurrentStatus string
}

// Online reports whether the custodian considers the service available.
func (s ServiceStatus) Online() bool {
	return s.CurrentStatus == "1"
}

// Notification is the parsed form of a payload pushed to the listener.
type Notification struct {
	// BulkID is the numeric tail of the first Atom link, zero when the
	// document carries no such link.
	BulkID int64

	// Resources lists the usage resource URIs referenced by the payload.
	// Empty when the push carries the usage feed inline.
	Resources []interfaces.ResourceURI
}
