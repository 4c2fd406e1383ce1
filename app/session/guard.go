package session

import "net/http"

// RequireSession lets requests through only when a session is present.
// While the session is loading onLoading answers; without a session
// onAbsent answers. There is no timeout on loading.
func RequireSession(onLoading, onAbsent http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := FromContext(r.Context())
			switch {
			case st.Loading:
				onLoading.ServeHTTP(w, r)
			case !st.Authenticated():
				onAbsent.ServeHTTP(w, r)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// RedirectTo answers with a 303 to path.
func RedirectTo(path string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, path, http.StatusSeeOther)
	})
}
