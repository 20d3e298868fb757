// Package client lets a web application ("relying party") learn the civid
// identity of its visitors.
//
// The flow has three steps. The application sends the browser to civid's
// /authorize page with a redirect_uri and an opaque state. The user signs in
// to civid (if needed) and chooses Identify or Decline. civid then redirects
// back to redirect_uri with either ?state=..&code=.. or
// ?state=..&error=declined. The application exchanges the code at
// /userinfo for the user's identity. Codes expire thirty seconds after they
// are issued, so the exchange must happen right away.
//
// # Quick Start
//
//	idc, err := client.New(client.Config{
//	    ServerURL:   "https://civid.example",
//	    RedirectURL: "https://myapp.example/auth/callback",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Send visitors to civid
//	http.HandleFunc("/auth/login", idc.BeginAuthorization)
//
//	// Handle the redirect back
//	http.HandleFunc("/auth/callback", idc.CallbackHandler(
//	    func(w http.ResponseWriter, r *http.Request, id *client.Identity) {
//	        // id.User is the lower-cased username, id.DisplayName keeps its case
//	        startMySession(w, id.User)
//	        http.Redirect(w, r, "/", http.StatusSeeOther)
//	    },
//	    func(w http.ResponseWriter, r *http.Request, err error) {
//	        if errors.Is(err, client.ErrDeclined) {
//	            http.Redirect(w, r, "/?declined=1", http.StatusSeeOther)
//	            return
//	        }
//	        http.Error(w, "Login failed", http.StatusUnauthorized)
//	    },
//	))
//
// # State
//
// BeginAuthorization stores a random state in a short-lived cookie and
// HandleCallback refuses callbacks whose state does not match it. Applications
// that build their own authorize URL with AuthorizeURL are responsible for
// checking state themselves.
//
// # Errors
//
//	id, err := idc.HandleCallback(w, r)
//	switch {
//	case errors.Is(err, client.ErrDeclined):
//	    // the user chose Decline
//	case errors.Is(err, client.ErrStateMismatch):
//	    // callback did not come from a flow this browser started
//	case errors.Is(err, client.ErrInvalidCode):
//	    // civid rejected the code, usually because it expired
//	case errors.Is(err, client.ErrRequest), errors.Is(err, client.ErrResponse):
//	    // civid was unreachable or answered with something unexpected
//	}
//
// # Testing
//
// Depend on the Identifier interface rather than *Client so tests can swap in
// the fakes from the cividtest package.
package client
