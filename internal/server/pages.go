package server

import (
	"html/template"
	"io"
	"net/http"
)

const pageStyle = `
    body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
           display: flex; align-items: center; justify-content: center; height: 100vh;
           margin: 0; background: #f5f5f5; }
    .container { text-align: center; background: white; padding: 2rem; max-width: 32rem;
                 border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
    h1 { color: #1DB954; margin: 0 0 1rem 0; }
    h1.error { color: #e03131; }
    p { color: #666; }
    a.button { display: inline-block; margin: 0.25rem; padding: 0.6rem 1.2rem; border-radius: 999px;
               background: #1DB954; color: white; text-decoration: none; }
`

var landingPage = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>tunemap</title>
  <style>` + pageStyle + `</style>
</head>
<body>
  <div class="container">
    <h1>Discover your music map</h1>
    <p>Connect your streaming account to browse your playlists and explore recommendations as a graph.</p>
    {{if .Authenticated}}
    <p>Signed in{{with .Name}} as {{.}}{{end}}.</p>
    <a class="button" href="/map">Open map</a>
    <a class="button" href="/dashboard">Dashboard</a>
    <a class="button" href="/logout">Log out</a>
    {{else}}
    <a class="button" href="/login">Connect with Spotify</a>
    {{end}}
  </div>
</body>
</html>
`))

var callbackErrorPage = template.Must(template.New("callback-error").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta http-equiv="refresh" content="{{.Seconds}};url=/">
  <title>Authentication Error</title>
  <style>` + pageStyle + `</style>
</head>
<body>
  <div class="container">
    <h1 class="error">Authentication Error</h1>
    <p>{{.Message}}</p>
    <p>Returning to the start page in {{.Seconds}} seconds.</p>
  </div>
</body>
</html>
`))

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Error</title>
  <style>` + pageStyle + `</style>
</head>
<body>
  <div class="container">
    <h1 class="error">Something went wrong</h1>
    <p>{{.}}</p>
    <a class="button" href="/">Back</a>
  </div>
</body>
</html>
`))

var signedInPage = template.Must(template.New("signed-in").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Signed in</title>
  <style>` + pageStyle + `</style>
</head>
<body>
  <div class="container">
    <h1>You're signed in</h1>
    <p>You can close this window and return to your terminal.</p>
  </div>
</body>
</html>
`))

// SignedIn confirms a completed login when the callback server only runs for the CLI.
func SignedIn(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderPage(w, signedInPage, nil)
}

func renderPage(w io.Writer, t *template.Template, data any) {
	_ = t.Execute(w, data)
}
