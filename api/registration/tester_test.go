package registration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwell/espi-self-access/api"
	"github.com/gridwell/espi-self-access/api/selfaccess"
)

const statusOnlineXML = `<ns0:ServiceStatus xmlns:ns0="http://naesb.org/espi">` +
	`<ns0:currentStatus>1</ns0:currentStatus></ns0:ServiceStatus>`

const statusOfflineXML = `<ns0:ServiceStatus xmlns:ns0="http://naesb.org/espi">` +
	`<ns0:currentStatus>0</ns0:currentStatus></ns0:ServiceStatus>`

// newTestTester builds a Tester against a TLS test server. Handlers are
// registered on the returned mux after the server is running, so they
// can reference its URL.
func newTestTester(t *testing.T) (*Tester, *http.ServeMux, *httptest.Server) {
	t.Helper()

	mux := http.NewServeMux()
	srv := httptest.NewTLSServer(mux)
	t.Cleanup(srv.Close)

	// The production token endpoint must stay untouched during testing.
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		t.Error("connectivity testing must use the test token endpoint")
		http.Error(w, "wrong endpoint", http.StatusForbidden)
	})
	mux.HandleFunc("/test/token", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"client_access_token": "test-tok", "expires_in": "3600"}`)
	})

	tester, err := New(&selfaccess.Config{
		ThirdPartyID: "50916",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoints: api.Endpoints{
			TokenURL:     srv.URL + "/token",
			TestTokenURL: srv.URL + "/test/token",
			UtilityURL:   srv.URL,
			APIPath:      "/espi",
			StatusURL:    srv.URL + "/status",
		},
		HTTPClient: srv.Client(),
		Log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return tester, mux, srv
}

func TestCompleteTesting(t *testing.T) {
	tester, mux, srv := newTestTester(t)

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-tok", r.Header.Get("Authorization"))
		fmt.Fprint(w, statusOnlineXML)
	})
	mux.HandleFunc("/espi/1_1/resource/DownloadSampleData", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<feed/>")
	})
	mux.HandleFunc("/espi/1_1/resource/Authorization", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<ns1:feed xmlns:ns0="http://naesb.org/espi" xmlns:ns1="http://www.w3.org/2005/Atom">`+
			`<ns1:entry><ns1:content><ns0:Authorization>`+
			`<ns0:resourceURI>%s/espi/1_1/resource/Subscription/50916</ns0:resourceURI>`+
			`</ns0:Authorization></ns1:content></ns1:entry>`+
			`<ns1:entry><ns1:content><ns0:Authorization>`+
			`<ns0:resourceURI>%s/espi/1_1/resource/Batch/Bulk/50916</ns0:resourceURI>`+
			`</ns0:Authorization></ns1:content></ns1:entry>`+
			`</ns1:feed>`, srv.URL, srv.URL)
	})

	report, err := tester.CompleteTesting(context.Background())
	require.NoError(t, err)

	assert.True(t, report.TokenOK)
	assert.True(t, report.ServiceOnline)
	assert.True(t, report.SampleDataOK)
	assert.Equal(t, "50916", report.BulkID.String())
}

func TestCompleteTesting_StopsWhenOffline(t *testing.T) {
	tester, mux, _ := newTestTester(t)

	var sampleHits int32
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, statusOfflineXML)
	})
	mux.HandleFunc("/espi/1_1/resource/DownloadSampleData", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&sampleHits, 1)
	})

	report, err := tester.CompleteTesting(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service status check failed")

	assert.True(t, report.TokenOK)
	assert.False(t, report.ServiceOnline)
	assert.False(t, report.SampleDataOK)
	assert.Equal(t, int32(0), atomic.LoadInt32(&sampleHits))
}

func TestCompleteTesting_BulkDiscoveryIsOptional(t *testing.T) {
	tester, mux, _ := newTestTester(t)

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, statusOnlineXML)
	})
	mux.HandleFunc("/espi/1_1/resource/DownloadSampleData", func(w http.ResponseWriter, r *http.Request) {
		// Custodian queues an asynchronous sample push.
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/espi/1_1/resource/Authorization", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not populated yet", http.StatusNotFound)
	})

	report, err := tester.CompleteTesting(context.Background())
	require.NoError(t, err)

	assert.True(t, report.SampleDataOK)
	assert.True(t, report.BulkID.Empty())
}

func TestTestSampleData_ErrorStatus(t *testing.T) {
	tester, mux, _ := newTestTester(t)

	mux.HandleFunc("/espi/1_1/resource/DownloadSampleData", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})

	err := tester.TestSampleData(context.Background())
	var statusErr *api.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
}

func TestDiscoverBulkID_NoBulkResource(t *testing.T) {
	tester, mux, srv := newTestTester(t)

	mux.HandleFunc("/espi/1_1/resource/Authorization", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<ns1:feed xmlns:ns0="http://naesb.org/espi" xmlns:ns1="http://www.w3.org/2005/Atom">`+
			`<ns1:entry><ns1:content><ns0:Authorization>`+
			`<ns0:resourceURI>%s/espi/1_1/resource/Subscription/50916</ns0:resourceURI>`+
			`</ns0:Authorization></ns1:content></ns1:entry>`+
			`</ns1:feed>`, srv.URL)
	})

	_, err := tester.DiscoverBulkID(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not reference a bulk resource")
}
