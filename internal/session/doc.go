// Package session persists the client's credentials.
//
// A [Store] reads and writes four string values under fixed keys through a pluggable [Storage]:
//
//	spotify_access_token   provider access token (sent as Spotify-Access-Token)
//	spotify_refresh_token  provider refresh token (sent to the proxy's /refresh)
//	jwt_token              the backend-issued session token (sent as Authorization: Bearer)
//	user_data              the serialized user profile
//
// Backends: [MemoryStorage] for tests and ephemeral runs, [FileStorage] for a JSON file under ~/.tunemap,
// and [SQLiteStorage] backed by the session_values table.
//
// Presence of the session token is the only thing route guards check; expiry is enforced by the backend.
package session
