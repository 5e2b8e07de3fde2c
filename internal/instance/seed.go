package instance

import (
	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-hass/internal/infrastructure/config"
)

// FromConfig converts the servers section of the config into instances.
//
// A server without an id gets a name-based UUID derived from its name and
// URL, so the id is stable across restarts. defaultTopicBase applies to
// statestream servers that do not set their own.
func FromConfig(servers []config.ServerConfig, defaultTopicBase string) []Instance {
	instances := make([]Instance, 0, len(servers))
	for _, s := range servers {
		inst := Instance{
			ID:          s.ID,
			Name:        s.Name,
			Kind:        Kind(s.Kind),
			BaseURL:     s.BaseURL,
			AccessToken: s.AccessToken,
			CacheJSON:   s.CachesJSON(),
			Enabled:     s.IsEnabled(),
		}
		if inst.Kind == KindStatestream {
			inst.TopicBase = s.StatestreamBase
			if inst.TopicBase == "" {
				inst.TopicBase = defaultTopicBase
			}
		}
		if inst.ID == "" {
			inst.ID = StableID(inst.Name, inst.BaseURL+inst.TopicBase)
		}
		if inst.Name == "" {
			inst.Name = inst.ID
		}
		instances = append(instances, inst)
	}
	return instances
}

// StableID derives a deterministic instance id from a name and location.
func StableID(name, location string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name+"|"+location)).String()
}
