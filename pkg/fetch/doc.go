// Package fetch is the transport collaborator used by the session and
// subscription packages to reach the remote API.
//
// The Fetcher interface is deliberately small: a JSON GET and a JSON POST
// against an endpoint path. HTTPFetcher implements it over net/http and
// prefixes every path with the configured API version:
//
//	f, err := fetch.NewHTTPFetcher(fetch.Config{
//	    BaseURL: "https://hermes.example.com",
//	    Version: version.MustParse("v2"),
//	    Token:   token,
//	})
//
//	var topics []string
//	err = f.Get(ctx, "/me/subscriptions", &topics) // GET /api/v2/me/subscriptions
//
// # Errors
//
// Non-2xx responses are returned as *StatusError, which matches ErrStatus
// under errors.Is. The response body is used as the error message.
// Undecodable response bodies match ErrDecode.
//
// # Retries
//
// GET requests may be retried on transport errors and 5xx responses when
// Config.ReadRetries is set, with exponential backoff and jitter between
// attempts. POST requests are never retried.
package fetch
