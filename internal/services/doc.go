// Package services implements the client for the backend proxy that fronts the streaming provider.
//
// # Client
//
// [Client] sends every request with two credentials read from a [session.Store]:
//
//	Authorization: Bearer <session token>
//	Spotify-Access-Token: <provider access token>
//
// # Refresh Protocol
//
// When a request is rejected with 401 the client posts the stored refresh token to /refresh,
// persists the returned access token and replays the original request once. The retry flag
// belongs to the logical request, so a replayed request that is rejected again is not retried.
//
// Concurrent requests rejected at the same time share one in-flight refresh.
//
// If the refresh cannot happen (no refresh token, refresh rejected, second 401) the session is
// cleared, the OnUnauthenticated hook runs and the returned error wraps [shared.ErrNotAuthenticated].
//
// # Error Handling
//
//   - [shared.ErrTransport] : request never produced a response
//   - [shared.ErrNotAuthenticated] : session is gone, user must log in again
//   - [shared.ErrAPIRequest] : non-2xx response, see [StatusError]
//   - [shared.ErrMalformedPayload] : response field missing or of the wrong shape
//   - [shared.ErrMissingSeeds], [shared.ErrInvalidTimeRange] : rejected before any request is sent
package services
