package registration

import (
	"fmt"

	"github.com/miekg/dns"
)

// DefaultResolver is the local stub resolver queried when no resolver
// address is given.
const DefaultResolver = "127.0.0.53:53"

// CheckEndpointDNS resolves the notification endpoint's hostname and
// returns the addresses it points at. The custodian can only deliver
// usage pushes to a name that resolves, so an empty answer means a
// registered notification URI will never receive data.
func CheckEndpointDNS(host, resolver string) ([]string, error) {
	if resolver == "" {
		resolver = DefaultResolver
	}

	fqdn := dns.Fqdn(host)
	client := new(dns.Client)

	var addrs []string
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		m := new(dns.Msg)
		m.Id = dns.Id()
		m.RecursionDesired = true
		m.Question = []dns.Question{{Name: fqdn, Qtype: qtype, Qclass: dns.ClassINET}}

		in, _, err := client.Exchange(m, resolver)
		if err != nil {
			return nil, fmt.Errorf("dns exchange for %s failed: %w", host, err)
		}

		for _, answer := range in.Answer {
			switch rr := answer.(type) {
			case *dns.A:
				addrs = append(addrs, rr.A.String())
			case *dns.AAAA:
				addrs = append(addrs, rr.AAAA.String())
			}
		}
	}

	if len(addrs) == 0 {
		return nil, fmt.Errorf("%s does not resolve to any address", host)
	}
	return addrs, nil
}
