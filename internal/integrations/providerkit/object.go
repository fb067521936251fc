package providerkit

import (
	"encoding/json"
	"strconv"
)

// Object is a decoded provider response. Providers rename fields
// between API versions, so every accessor takes an ordered candidate
// list and returns the first key that is present and convertible.
type Object map[string]any

func ParseObject(raw []byte) (Object, error) {
	var o Object
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, err
	}
	return o, nil
}

// String returns the first present string value among keys.
func (o Object) String(keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := o[k]
		if !ok {
			continue
		}
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	return "", false
}

// Float returns the first present numeric value among keys. Numeric
// strings count; providers quote numbers at random.
func (o Object) Float(keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := o[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case float64:
			return t, true
		case json.Number:
			if f, err := t.Float64(); err == nil {
				return f, true
			}
		case string:
			if f, err := strconv.ParseFloat(t, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// Object returns the first present nested object among keys.
func (o Object) Object(keys ...string) (Object, bool) {
	for _, k := range keys {
		v, ok := o[k]
		if !ok {
			continue
		}
		if m, ok := v.(map[string]any); ok {
			return Object(m), true
		}
	}
	return nil, false
}

// Objects returns the first present array-of-objects among keys.
func (o Object) Objects(keys ...string) ([]Object, bool) {
	for _, k := range keys {
		v, ok := o[k]
		if !ok {
			continue
		}
		arr, ok := v.([]any)
		if !ok {
			continue
		}
		out := make([]Object, 0, len(arr))
		for _, item := range arr {
			if m, ok := item.(map[string]any); ok {
				out = append(out, Object(m))
			}
		}
		return out, true
	}
	return nil, false
}
