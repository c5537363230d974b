/*
Package registration implements the connectivity test sequence a data
custodian requires from newly registered third parties.

The sequence exercises each piece of the integration in order: the
client credentials against the test token endpoint, the service status
resource, the sample data download, and finally discovery of the bulk
identifier the custodian assigned. Each step can also run on its own
for debugging a failing registration.

CheckEndpointDNS covers the other direction: the custodian pushes usage
data to the third party's registered notification URI, which is only
reachable if its hostname resolves.
*/
package registration
