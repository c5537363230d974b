// Package espi parses and persists Green Button (NAESB ESPI) XML as
// exchanged with a utility data custodian.
//
// The package covers the three document shapes the collector sees:
//
// # Usage Feeds
//
// ParseUsage walks an Atom feed of ESPI entries and flattens every
// IntervalReading into a normalized IntervalReading value: interval start,
// duration, and watt-hours with the reading type's power of ten multiplier
// applied. Daylight saving transitions are normalized so that every day
// keeps its full complement of intervals: a repeated interval start is
// dropped, a missing interval is synthesized from its neighbors.
//
// # Service Status
//
// ParseServiceStatus reads the custodian's ReadServiceStatus response. The
// service reports "1" when online.
//
// # Notifications
//
// ParseNotification extracts the resource URIs carried in a batch
// notification, and BulkID recovers the numeric bulk identifier from the
// first Atom link of a pushed feed.
//
// # Persistence
//
// Save writes a received payload verbatim to a target directory, naming
// the file by timestamp unless told otherwise.
//
// All parsers are pure functions of their input and fail with errors
// wrapping ErrMalformedXML or ErrUnexpectedSchema.
package espi
