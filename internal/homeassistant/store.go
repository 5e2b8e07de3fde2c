package homeassistant

import (
	"sort"
	"sync"
)

// StateObserver is called after a single entity's state changes. A nil
// state means the entity was removed. The map is a copy owned by the
// observer.
type StateObserver func(entityID string, state map[string]any)

// Store holds the last known data of one Home Assistant server.
//
// All methods are safe for concurrent use. Reads return deep copies, so
// callers can mutate results freely.
type Store struct {
	mu        sync.RWMutex
	states    map[string]map[string]any
	services  map[string]any
	tags      []RawTag
	version   string
	connState ConnectionState

	observersMu sync.RWMutex
	observers   []StateObserver
}

// NewStore returns an empty store in the connecting state.
func NewStore() *Store {
	return &Store{
		states:    make(map[string]map[string]any),
		services:  make(map[string]any),
		connState: StateConnecting,
	}
}

// Observe registers fn for single-entity state changes.
func (s *Store) Observe(fn StateObserver) {
	s.observersMu.Lock()
	s.observers = append(s.observers, fn)
	s.observersMu.Unlock()
}

// Connected reports whether the backing connection is up.
func (s *Store) Connected() bool {
	return s.ConnectionState() == StateConnected
}

// ConnectionState returns the current lifecycle state.
func (s *Store) ConnectionState() ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connState
}

// SetConnectionState records a lifecycle transition.
func (s *Store) SetConnectionState(state ConnectionState) {
	s.mu.Lock()
	s.connState = state
	s.mu.Unlock()
}

// Entities returns the known entity ids, sorted.
func (s *Store) Entities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// States returns a deep copy of every entity record.
func (s *Store) States() map[string]map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]map[string]any, len(s.states))
	for id, st := range s.states {
		out[id] = deepCopyMap(st)
	}
	return out
}

// State returns a deep copy of one entity record.
func (s *Store) State(entityID string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[entityID]
	if !ok {
		return nil, false
	}
	return deepCopyMap(st), true
}

// ReplaceStates swaps in a full snapshot. Observers are not called.
func (s *Store) ReplaceStates(states map[string]map[string]any) {
	fresh := make(map[string]map[string]any, len(states))
	for id, st := range states {
		fresh[id] = deepCopyMap(st)
	}

	s.mu.Lock()
	s.states = fresh
	s.mu.Unlock()
}

// SetState stores or, when state is nil, removes one entity record and
// notifies observers.
func (s *Store) SetState(entityID string, state map[string]any) {
	s.mu.Lock()
	if state == nil {
		delete(s.states, entityID)
	} else {
		s.states[entityID] = deepCopyMap(state)
	}
	s.mu.Unlock()

	s.notify(entityID, state)
}

// UpdateState applies fn to a copy of the entity's record (nil if unknown)
// and stores the result. It is used for partial updates, such as one
// statestream attribute.
func (s *Store) UpdateState(entityID string, fn func(state map[string]any) map[string]any) {
	s.mu.Lock()
	next := fn(deepCopyMap(s.states[entityID]))
	if next == nil {
		delete(s.states, entityID)
	} else {
		s.states[entityID] = next
	}
	s.mu.Unlock()

	s.notify(entityID, next)
}

func (s *Store) notify(entityID string, state map[string]any) {
	s.observersMu.RLock()
	observers := s.observers
	s.observersMu.RUnlock()

	for _, fn := range observers {
		fn(entityID, deepCopyMap(state))
	}
}

// Services returns a deep copy of the service catalogue.
func (s *Store) Services() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deepCopyMap(s.services)
}

// ReplaceServices swaps in a new service catalogue.
func (s *Store) ReplaceServices(services map[string]any) {
	cpy := deepCopyMap(services)
	if cpy == nil {
		cpy = make(map[string]any)
	}

	s.mu.Lock()
	s.services = cpy
	s.mu.Unlock()
}

// Tags returns a copy of the cached tags in server order.
func (s *Store) Tags() []RawTag {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RawTag, len(s.tags))
	copy(out, s.tags)
	return out
}

// ReplaceTags swaps in a new tag list.
func (s *Store) ReplaceTags(tags []RawTag) {
	cpy := make([]RawTag, len(tags))
	copy(cpy, tags)

	s.mu.Lock()
	s.tags = cpy
	s.mu.Unlock()
}

// MarkTagScanned sets the last scan time of a cached tag. Unknown tags are
// ignored; the next refresh will pick them up.
func (s *Store) MarkTagScanned(tagID, at string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tags {
		if s.tags[i].TagID == tagID || (s.tags[i].TagID == "" && s.tags[i].ID == tagID) {
			s.tags[i].LastScanned = at
			return
		}
	}
}

// IntegrationVersion returns the Node-RED integration version, or "".
func (s *Store) IntegrationVersion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// SetIntegrationVersion records the Node-RED integration version.
func (s *Store) SetIntegrationVersion(version string) {
	s.mu.Lock()
	s.version = version
	s.mu.Unlock()
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		// Decoded JSON scalars are immutable.
		return v
	}
}
