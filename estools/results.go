package estools

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// TotalHits extracts the total hit count from a search payload. It handles
// both the object form `hits.total.value` and the legacy numeric form.
func TotalHits(payload json.RawMessage) int64 {
	total := gjson.GetBytes(payload, "hits.total")
	if total.IsObject() {
		return total.Get("value").Int()
	}
	return total.Int()
}

// HitSources returns the `_source` documents of a search payload.
func HitSources(payload json.RawMessage) []json.RawMessage {
	var out []json.RawMessage
	for _, hit := range gjson.GetBytes(payload, "hits.hits").Array() {
		src := hit.Get("_source")
		if src.Exists() {
			out = append(out, json.RawMessage(src.Raw))
		}
	}
	return out
}

// IndexNames extracts index names from a list_indices payload. The server
// returns either a list of names or a list of objects with an `index` field.
func IndexNames(payload json.RawMessage) []string {
	var out []string
	for _, item := range gjson.ParseBytes(payload).Array() {
		if item.IsObject() {
			if name := item.Get("index").String(); name != "" {
				out = append(out, name)
			}
			continue
		}
		if name := item.String(); name != "" {
			out = append(out, name)
		}
	}
	return out
}
