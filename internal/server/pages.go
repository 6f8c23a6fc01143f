package server

import (
	"fmt"
	"html"
	"net/http"
)

// PageHandler serves the HTML shell. All dynamic data comes from the JSON API;
// the pages themselves are static markup with a small inline script.
type PageHandler struct{}

// NewPageHandler creates a [PageHandler].
func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

// Routes returns the HTTP routes this handler serves.
func (h *PageHandler) Routes() []string {
	return []string{"GET /{$}"}
}

func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, homePage)
}

// loginMessages maps callback error codes to copy the login page shows.
var loginMessages = map[string]string{
	"state_mismatch":        "The login attempt could not be verified. Please try again.",
	"missing_code":          "The provider did not return an authorization code.",
	"missing_state":         "The provider response was incomplete.",
	"token_exchange_failed": "Signing in with Spotify failed. Please try again.",
	"profile_fetch_failed":  "Your profile could not be loaded. Please try again.",
	"access_denied":         "You declined the authorization request.",
	"internal_error":        "Something went wrong on our side. Please try again.",
	"no_session":            "Please log in to continue.",
	"logged_out":            "You have been logged out.",
}

func renderLoginPage(w http.ResponseWriter, errCode, reason string) {
	message := ""
	if errCode != "" {
		message = loginMessages[errCode]
		if message == "" {
			message = "Login failed: " + errCode
		}
	} else if reason != "" {
		message = loginMessages[reason]
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, loginPage, html.EscapeString(message))
}

const loginPage = `<!DOCTYPE html>
<html>
<head>
    <title>betterd</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #121212; color: #fff; }
        .container { text-align: center; background: #181818; padding: 2.5rem;
                     border-radius: 8px; box-shadow: 0 2px 8px rgba(0,0,0,0.4); }
        h1 { color: #1DB954; margin: 0 0 0.5rem 0; }
        p { color: #b3b3b3; margin: 0 0 1.5rem 0; }
        .message { color: #f59e0b; margin-bottom: 1rem; }
        a.button { display: inline-block; background: #1DB954; color: #000; font-weight: 600;
                   padding: 0.75rem 2rem; border-radius: 500px; text-decoration: none; }
    </style>
</head>
<body>
    <div class="container">
        <h1>betterd</h1>
        <p>Shuffle your playlists the way shuffle was meant to work.</p>
        <p class="message">%s</p>
        <a class="button" href="/login">Log in with Spotify</a>
    </div>
</body>
</html>
`

const homePage = `<!DOCTYPE html>
<html>
<head>
    <title>betterd</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               margin: 0; background: #121212; color: #fff; }
        header { display: flex; justify-content: space-between; align-items: center;
                 padding: 1rem 2rem; background: #181818; }
        header h1 { color: #1DB954; margin: 0; font-size: 1.25rem; }
        header a { color: #b3b3b3; text-decoration: none; }
        main { max-width: 720px; margin: 2rem auto; padding: 0 1rem; }
        .playlist { display: flex; justify-content: space-between; align-items: center;
                    background: #181818; border-radius: 8px; padding: 1rem; margin-bottom: 0.75rem; }
        .playlist .meta { color: #b3b3b3; font-size: 0.85rem; }
        button { background: #1DB954; color: #000; font-weight: 600; border: none;
                 padding: 0.5rem 1.25rem; border-radius: 500px; cursor: pointer; }
        button:disabled { background: #535353; cursor: default; }
        .status { color: #b3b3b3; font-size: 0.85rem; margin-left: 1rem; }
        .status a { color: #1DB954; }
    </style>
</head>
<body>
    <header>
        <h1>betterd</h1>
        <div><span id="who"></span> &middot; <a href="/logout">Log out</a></div>
    </header>
    <main>
        <h2>Your playlists</h2>
        <div id="playlists">Loading&hellip;</div>
    </main>
    <script>
    async function load() {
        const me = await fetch('/api/me').then(r => r.json());
        document.getElementById('who').textContent = me.display_name || me.user_id;

        const data = await fetch('/api/playlists').then(r => r.json());
        const root = document.getElementById('playlists');
        root.innerHTML = '';
        for (const pl of data.playlists) {
            const row = document.createElement('div');
            row.className = 'playlist';
            row.innerHTML = '<div><div>' + pl.name + '</div>' +
                '<div class="meta">' + pl.track_count + ' tracks</div></div>';
            const btn = document.createElement('button');
            btn.textContent = 'Shuffle';
            const status = document.createElement('span');
            status.className = 'status';
            btn.onclick = () => shuffle(pl.id, btn, status);
            row.appendChild(btn);
            row.appendChild(status);
            root.appendChild(row);
        }
        if (data.playlists.length === 0) {
            root.textContent = 'No playlists found on this account.';
        }
    }

    async function shuffle(id, btn, status) {
        btn.disabled = true;
        status.textContent = 'starting…';
        const job = await fetch('/api/playlists/' + id + '/shuffle', {method: 'POST'})
            .then(r => r.json());
        poll(job.id, btn, status);
    }

    function poll(jobID, btn, status) {
        const timer = setInterval(async () => {
            const job = await fetch('/api/shuffle/' + jobID).then(r => r.json());
            status.textContent = job.stage.replaceAll('_', ' ');
            if (job.stage === 'completed') {
                clearInterval(timer);
                btn.disabled = false;
                status.innerHTML = 'done — <a href="' + job.result.external_url +
                    '" target="_blank">open ' + job.result.name + '</a>';
            } else if (job.stage === 'error') {
                clearInterval(timer);
                btn.disabled = false;
                status.textContent = 'failed: ' + job.error;
            }
        }, 1000);
    }

    load();
    </script>
</body>
</html>
`
