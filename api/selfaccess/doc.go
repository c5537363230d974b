/*
Package selfaccess implements the client side of a data custodian's
Share My Data Self Access API.

The client authenticates two ways at once: every request presents the
TLS certificate registered with the custodian, and bearer tokens from
the client credentials exchange accompany each API call. Token handling
is internal. The client caches the current token and refreshes it when
it comes within five seconds of expiry, or immediately when the
custodian answers 403.

# Asynchronous Usage Delivery

The Request methods only queue delivery. The custodian accepts with
HTTP 202 and later pushes the usage XML to the third party's registered
notification URI. Pair this client with the httpserver package to
receive the pushes, and with FetchUsage to pull any resources a
notification references instead of inlining.

# Usage

	client, err := selfaccess.Auth("auth/auth.json", log)
	if err != nil {
		return err
	}
	if err := client.RequestLatestUsage(ctx); err != nil {
		return err
	}
	// Usage XML arrives at the notification listener.
*/
package selfaccess
