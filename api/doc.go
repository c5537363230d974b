/*
Package api defines the custodian endpoint set and error types shared by
the Green Button client packages.

This package is organized into two subpackages:

1. selfaccess - Client for the Share My Data Self Access API
2. registration - Connectivity test sequence for new third parties

# Endpoints

A data custodian exposes the Green Button resource tree under a fixed
URL layout. Endpoints collects every URL the clients reach, with
DefaultEndpoints returning the PG&E production set. Sandbox deployments
override individual fields through the auth file.

# Asynchronous Delivery

Bulk usage requests do not return data. The custodian accepts the
request with HTTP 202 and later pushes the XML to the third party's
registered notification URI, typically within tens of seconds. The
httpserver package receives those pushes.

See the subpackages for detailed documentation on specific clients.
*/
package api
