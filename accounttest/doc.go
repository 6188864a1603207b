// Package accounttest provides an in-memory fake of the account service for
// tests and local runs. It serves the same wire contract as the production
// backend through a chi router, issues real signed session tokens, rate limits
// identity verification per user and supports failure injection per operation.
//
//	srv, _ := accounttest.NewServer(accounttest.Config{AutoApprove: true})
//	ts := httptest.NewServer(srv.Router())
//	defer ts.Close()
package accounttest
