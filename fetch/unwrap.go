package fetch

import (
	"errors"

	"github.com/tidwall/gjson"
)

var errInvalidJSON = errors.New("response body is not valid JSON")

// parseBody validates the body and returns its root value.
func parseBody(body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, errInvalidJSON
	}
	return gjson.ParseBytes(body), nil
}

// dataOrBody returns the "data" field when present and not null, else the root.
func dataOrBody(root gjson.Result) gjson.Result {
	if !root.IsObject() {
		return root
	}
	if d := root.Get("data"); d.Exists() && d.Type != gjson.Null {
		return d
	}
	return root
}

// readPayload selects the success payload of Get.
func readPayload(root gjson.Result, entire bool) gjson.Result {
	if entire {
		return root
	}
	return dataOrBody(root)
}

// writePayload selects the success payload of Post. A truthy "message" field
// returns the whole body, unlike readPayload.
func writePayload(root gjson.Result, entire bool) gjson.Result {
	if entire || (root.IsObject() && truthy(root.Get("message"))) {
		return root
	}
	return dataOrBody(root)
}

// truthy follows JavaScript truthiness for JSON values.
func truthy(r gjson.Result) bool {
	if !r.Exists() {
		return false
	}
	switch r.Type {
	case gjson.True, gjson.JSON:
		return true
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	default:
		return false
	}
}
