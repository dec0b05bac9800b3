package feed

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// StatusFunc reports extra fields for the health endpoint.
type StatusFunc func() map[string]any

// Routes returns the feed's HTTP routes:
//
//	GET /feed     websocket stream of FrameMessage values
//	GET /healthz  JSON status
func Routes(hub *Hub, status StatusFunc) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/feed", hub.ServeWS).Methods(http.MethodGet)
	r.HandleFunc("/healthz", healthHandler(hub, status)).Methods(http.MethodGet)
	return r
}

func healthHandler(hub *Hub, status StatusFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{}
		if status != nil {
			for k, v := range status() {
				body[k] = v
			}
		}
		body["status"] = "ok"
		body["viewers"] = hub.ClientCount()
		body["feed_dropped"] = hub.Dropped()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body)
	}
}
