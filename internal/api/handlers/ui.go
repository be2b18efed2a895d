package handlers

import (
	"net/http"
	"os"
)

// UI serves the static frontend under prefix. It returns nil when dir is
// empty or missing so the route can be skipped.
func UI(prefix, dir string) http.Handler {
	if dir == "" {
		return nil
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return nil
	}
	return http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
}
