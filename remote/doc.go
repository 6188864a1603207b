// Package remote implements goEnroll.AccountService over HTTP.
//
// The client speaks the account service wire contract:
//
//	POST /user/register          JSON {username, email, password}
//	POST /user/login             JSON {username, password}; token in the Jwt-Token header
//	POST /user/complete-profile  JSON profile, ?username=..&markAsComplete=..
//	POST /user/verify-id         multipart form with idPhotoFront and optional idPhotoBack, idPhotoExtra
//
// Failures are returned as *goEnroll.ServiceError with a Kind derived from the
// status code. Login redirects (403 with profileCompleted or idVerified false)
// are returned as *goEnroll.ProfileIncompleteError and
// *goEnroll.IdentityUnverifiedError.
//
// Outbound calls pass through [middleware.RequestID] and
// [middleware.SessionToken], and optionally through per-operation token buckets
// configured with Config.Limits.
package remote
