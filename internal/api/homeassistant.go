package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-hass/internal/homeassistant"
	"github.com/nerrad567/gray-logic-hass/internal/instance"
	"github.com/nerrad567/gray-logic-hass/internal/pathindex"
)

// dataSource resolves the {id} of the request to a connected data source.
// On failure it writes the 503 response and returns false.
func (s *Server) dataSource(w http.ResponseWriter, r *http.Request) (homeassistant.DataSource, bool) {
	id := chi.URLParam(r, "id")

	_, ds, err := s.instances.Resolve(id)
	if err != nil {
		level := s.logger.Debug
		if errors.Is(err, instance.ErrNotConnected) {
			level = s.logger.Info
		}
		level("no usable server for request",
			"server", id,
			"reason", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		if s.metrics != nil {
			s.metrics.RecordUnavailable(id)
		}
		writeUnavailable(w, s.cfg.Messages.NoServerSelected)
		return nil, false
	}
	return ds, true
}

// handleEntities returns the sorted entity ids of a server.
//
// GET /<ns>/entities/{id}
// Response: ["light.kitchen", "sensor.temperature"]
func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.dataSource(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ds.Entities())
}

// handleStates returns every entity record of a server keyed by entity id.
//
// GET /<ns>/states/{id}
func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.dataSource(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ds.States())
}

// handleServices returns the service catalogue of a server.
//
// GET /<ns>/services/{id}
func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.dataSource(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ds.Services())
}

// handleProperties returns the property paths of one entity or of all of
// them.
//
// GET /<ns>/properties/{id}?entityId=light.kitchen&term=bright
// Response: ["attributes.brightness"]
//
// term only filters when entityId names a known entity; an unknown
// entityId falls back to every entity.
func (s *Server) handleProperties(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.dataSource(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	opts := pathindex.Options{
		EntityID: q.Get("entityId"),
		Term:     q.Get("term"),
	}

	writeJSON(w, http.StatusOK, pathindex.Compute(stateSource{ds}, opts))
}

// handleTags returns the tags of a server as {id, name} pairs.
//
// GET /<ns>/tags/{id}?update=true
//
// With update set the tag cache is reloaded first. A failed reload is
// logged and the cached tags are returned.
func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.dataSource(w, r)
	if !ok {
		return
	}

	if update, _ := strconv.ParseBool(r.URL.Query().Get("update")); update {
		id := chi.URLParam(r, "id")
		err := ds.RefreshTags(r.Context())
		if err != nil {
			s.logger.Warn("tag refresh failed", "server", id, "error", err)
		}
		if s.metrics != nil {
			s.metrics.RecordTagRefresh(id, err)
		}
	}

	writeJSON(w, http.StatusOK, homeassistant.ProjectTags(ds.Tags()))
}

// handleVersion returns the Node-RED companion integration version.
//
// GET /<ns>/version/{id}
// Response: {"version": "1.1.0"}, or {"version": 0} when the server has no
// data source or the integration is not installed.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	var version any = 0
	if ds, ok := s.instances.DataSource(chi.URLParam(r, "id")); ok {
		if v := ds.IntegrationVersion(); v != "" {
			version = v
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"version": version})
}

// stateSource adapts a DataSource to the path indexer. Records are
// converted only when the indexer asks for them.
type stateSource struct {
	ds homeassistant.DataSource
}

func (s stateSource) State(entityID string) (pathindex.Value, bool) {
	record, ok := s.ds.State(entityID)
	if !ok {
		return nil, false
	}
	return pathindex.FromAny(record), true
}

func (s stateSource) States() map[string]pathindex.Value {
	return pathindex.FromRecords(s.ds.States())
}
