package config

import (
	"encoding/json"
	"strconv"
	"unicode/utf16"
)

// InstanceID derives the identifier of an animation from its lines, title
// and theme. It is a 32-bit rolling hash (h = h*31 + unit over the UTF-16
// units of the JSON encoding), so identical input always yields the same id
// but distinct configurations may collide.
func InstanceID(c *Config) string {
	payload := struct {
		Lines []Line `json:"lines"`
		Title string `json:"title"`
		Theme string `json:"theme"`
	}{
		Lines: c.Lines,
		Title: c.Title,
		Theme: c.Theme,
	}
	if payload.Lines == nil {
		payload.Lines = []Line{}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		// Line contains only plain values; Marshal cannot fail on it
		data = []byte(c.Title + c.Theme)
	}

	var hash int32
	for _, unit := range utf16.Encode([]rune(string(data))) {
		hash = (hash << 5) - hash + int32(unit)
	}

	abs := int64(hash)
	if abs < 0 {
		abs = -abs
	}

	id := strconv.FormatInt(abs, 36)
	if len(id) > 8 {
		id = id[:8]
	}
	return "termynal_" + id
}
