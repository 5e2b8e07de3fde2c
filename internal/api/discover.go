package api

import (
	"net/http"

	"github.com/nerrad567/gray-logic-hass/internal/discovery"
)

// handleDiscover browses the local network for Home Assistant servers.
//
// GET /<ns>/discover
// Response: [{"label": "Home (http://192.168.1.10:8123)", "value": "http://192.168.1.10:8123"}]
//
// The response is held for the whole discovery window. A browse failure
// is logged and answered with an empty list, so the admin UI always
// receives a list.
func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	if s.discoverer == nil {
		writeJSON(w, http.StatusOK, []discovery.Option{})
		return
	}

	options, err := s.discoverer.Discover(r.Context())
	if s.metrics != nil {
		s.metrics.RecordDiscovery(len(options), err)
	}
	if err != nil {
		if r.Context().Err() != nil {
			// Client went away; nobody is reading the response.
			return
		}
		s.logger.Warn("discovery failed", "error", err)
	}
	if options == nil {
		options = []discovery.Option{}
	}

	writeJSON(w, http.StatusOK, options)
}
