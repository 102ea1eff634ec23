// internal/keepalive/server.go

// Package keepalive serves the tiny HTTP surface that hosting platforms poll
// to keep the bot process awake, plus a status endpoint for eyeballing the
// active session count.
package keepalive

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/protanki-tools/farmbot/internal/farm"
	"github.com/protanki-tools/farmbot/internal/middleware"
)

// New builds the keepalive HTTP server.
func New(logger *logrus.Logger, store *farm.Store, port string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", aliveHandler)
	mux.HandleFunc("/status", statusHandler(store))

	return &http.Server{
		Addr:         ":" + port,
		Handler:      middleware.LogMiddleware(logger)(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

func aliveHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Write([]byte("Bot is alive."))
}

func statusHandler(store *farm.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{
			"active_farms": store.Count(),
		})
	}
}
