// Package jwt reads and issues goEnroll session tokens.
//
// The client treats session tokens as opaque strings; [Inspect] only decodes the
// unverified exp claim so expired tokens can be dropped before they are sent. [Manager]
// signs and verifies tokens for the fake account service and the stub server.
package jwt
