package homeassistant

// RawTag is a tag record as Home Assistant's tag/list returns it.
type RawTag struct {
	ID          string `json:"id,omitempty"`
	TagID       string `json:"tag_id"`
	Name        string `json:"name,omitempty"`
	DeviceID    string `json:"device_id,omitempty"`
	LastScanned string `json:"last_scanned,omitempty"`
}

// Tag is the public shape of a tag.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProjectTags maps raw tags to their public shape, one for one, keeping order.
// Older servers only fill id, which is then used as the tag id.
func ProjectTags(raw []RawTag) []Tag {
	tags := make([]Tag, len(raw))
	for i, t := range raw {
		id := t.TagID
		if id == "" {
			id = t.ID
		}
		tags[i] = Tag{ID: id, Name: t.Name}
	}
	return tags
}
