// Package wialon provides a client for the Wialon Remote API.
//
// Wialon is a fleet tracking platform. Its Remote API is a single HTTP
// endpoint that takes a service name, JSON encoded parameters and a session
// id, and answers with JSON. This package sends those requests and turns the
// answers into Go values or typed errors.
//
// # Usage
//
// Create a client and log in with an access token:
//
//	logger := zerolog.New(os.Stdout)
//	client, err := wialon.NewClient(logger,
//		wialon.WithHost("hst-api.wialon.com"),
//		wialon.WithTimeout(30*time.Second),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	if _, err := client.Login(ctx, token); err != nil {
//		log.Fatal(err)
//	}
//	defer client.Logout(ctx)
//
//	units, err := client.SearchItems(ctx, wialon.NewSearchByName(wialon.ItemTypeUnit, "*", wialon.FlagBase))
//
// Services without a typed method are reachable through Call and CallInto.
// ServiceName converts flat names such as core_search_items.
//
// # Error Handling
//
// Every error returned by the client is one of four kinds:
//
//   - TransportError: the HTTP exchange failed
//   - ProtocolError: the response was not valid JSON or had an unexpected shape
//   - APIError: the Remote API answered with an error code
//   - UsageError: a local precondition failed, no request was sent
//
// KindOf classifies an error, errors.As extracts the details:
//
//	var apiErr *wialon.APIError
//	if errors.As(err, &apiErr) && apiErr.IsSessionExpired() {
//		// log in again
//	}
//
// Nothing is retried.
//
// # Concurrency
//
// A Client keeps the session id as mutable state and must not be used from
// several goroutines at once without external locking.
package wialon
