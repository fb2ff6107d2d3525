package httpserver

import "net/http"

// Routes groups handlers.
type Routes struct {
	Poll          http.HandlerFunc
	Push          http.Handler
	ResetDaily    http.HandlerFunc
	Notifications http.HandlerFunc
	Alerts        http.HandlerFunc
	Health        http.HandlerFunc
}

// NewRouter registers endpoints.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()
	if routes.Poll != nil {
		mux.Handle("/", method(http.MethodGet, routes.Poll))
	}
	if routes.Push != nil {
		mux.Handle("/notify", method(http.MethodPost, routes.Push.ServeHTTP))
	}
	if routes.ResetDaily != nil {
		mux.Handle("/reset-daily", method(http.MethodPost, routes.ResetDaily))
	}
	if routes.Notifications != nil {
		mux.Handle("/notifications", method(http.MethodGet, routes.Notifications))
	}
	if routes.Alerts != nil {
		mux.Handle("/ws/alerts", method(http.MethodGet, routes.Alerts))
	}
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	return mux
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
