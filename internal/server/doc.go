// Package server is the local web server that hosts the login callback and the map page.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [MuxRouter] implements it on
// gorilla/mux so routes can carry path variables such as {playlistID}. [Middleware] wraps handlers
// in reverse order (last added executes first).
//
// # Route Guard
//
// [RequireSession] lets a request through only when the session store holds a session token.
// Anything else is redirected to the landing page. Token expiry is left to the backend.
//
// # Callback Handler
//
// The backend redirects the browser to /callback with access_token, refresh_token, jwt_token and
// user_data in the query. [CallbackHandler] persists all four and redirects to /dashboard, or shows
// an error page that returns to / after three seconds. The first result is also sent on a channel
// so `tunemap auth login` can wait for it.
//
// # Map Routes
//
// [App] serves the dashboard as JSON, the force-graph map page, the current snapshot, a PNG
// rendering of it, pixel hit testing against that rendering, and a websocket at /api/graph/live
// that pushes each newly generated snapshot.
package server
