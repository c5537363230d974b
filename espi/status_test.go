package espi

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServiceStatus(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		status string
		online bool
	}{
		{
			name: "online",
			doc: `<?xml version="1.0" encoding="UTF-8"?>` +
				`<ns0:ServiceStatus xmlns:ns0="http://naesb.org/espi">` +
				`<ns0:currentStatus>1</ns0:currentStatus>` +
				`</ns0:ServiceStatus>`,
			status: "1",
			online: true,
		},
		{
			name: "offline",
			doc: `<ns0:ServiceStatus xmlns:ns0="http://naesb.org/espi">` +
				`<ns0:currentStatus>0</ns0:currentStatus>` +
				`</ns0:ServiceStatus>`,
			status: "0",
			online: false,
		},
		{
			name: "whitespace around code",
			doc: `<ns0:ServiceStatus xmlns:ns0="http://naesb.org/espi">` +
				`<ns0:currentStatus>
					1
				</ns0:currentStatus>` +
				`</ns0:ServiceStatus>`,
			status: "1",
			online: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := ParseServiceStatus(strings.NewReader(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.status, status.CurrentStatus)
			assert.Equal(t, tt.online, status.Online())
		})
	}
}

func TestParseServiceStatus_Errors(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		expected error
	}{
		{
			name:     "empty document",
			doc:      ``,
			expected: ErrUnexpectedSchema,
		},
		{
			name:     "no child element",
			doc:      `<ns0:ServiceStatus xmlns:ns0="http://naesb.org/espi"></ns0:ServiceStatus>`,
			expected: ErrUnexpectedSchema,
		},
		{
			name:     "truncated",
			doc:      `<ns0:ServiceStatus xmlns:ns0="http://naesb.org/espi">`,
			expected: ErrMalformedXML,
		},
		{
			name:     "malformed",
			doc:      `<ns0:ServiceStatus xmlns:ns0="http://naesb.org/espi"><</ns0:ServiceStatus>`,
			expected: ErrMalformedXML,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseServiceStatus(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}
