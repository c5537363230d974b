package registration

import (
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startResolver runs a DNS server with the given handler on a random
// local port and returns its address.
func startResolver(t *testing.T, handler dns.HandlerFunc) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &dns.Server{PacketConn: pc, Handler: handler}
	go func() { _ = srv.ActivateAndServe() }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}

func TestCheckEndpointDNS(t *testing.T) {
	resolver := startResolver(t, func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		if req.Question[0].Qtype == dns.TypeA {
			rr, err := dns.NewRR(req.Question[0].Name + " 300 IN A 203.0.113.7")
			if err == nil {
				m.Answer = append(m.Answer, rr)
			}
		}
		_ = w.WriteMsg(m)
	})

	addrs, err := CheckEndpointDNS("push.example.com", resolver)
	require.NoError(t, err)
	assert.Equal(t, []string{"203.0.113.7"}, addrs)
}

func TestCheckEndpointDNS_NoAnswer(t *testing.T) {
	resolver := startResolver(t, func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		_ = w.WriteMsg(m)
	})

	_, err := CheckEndpointDNS("missing.example.com", resolver)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not resolve to any address")
}
