package settings

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

// EncodeFragment serializes settings to the URL-fragment form consumed by the
// configuration page: URL-encoded JSON after the '#'.
func EncodeFragment(s Settings) string {
	b, err := json.Marshal(s)
	if err != nil {
		// Settings is a plain struct of scalars; Marshal cannot fail on it.
		return ""
	}
	return url.QueryEscape(string(b))
}

// ParseConfigResponse parses the close-URL returned by the configuration
// page and merges any recognized keys onto base. The fragment is tried as
// URL-encoded JSON first; on failure it falls back to the legacy
// key=value&key=value parser with true/false and numeric coercion. Malformed
// input never fails: it yields base unchanged and changed=false.
func ParseConfigResponse(response string, base Settings) (merged Settings, changed bool) {
	merged = base

	idx := strings.IndexByte(response, '#')
	if idx == -1 {
		idx = strings.IndexByte(response, '?')
	}
	if idx == -1 {
		return merged, false
	}
	raw := response[idx+1:]
	if raw == "" {
		return merged, false
	}

	values := parseJSONFragment(raw)
	if values == nil {
		values = parseLegacyPairs(raw)
	}
	if len(values) == 0 {
		return merged, false
	}

	return applyUpdates(merged, values), true
}

func parseJSONFragment(raw string) map[string]any {
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		decoded = raw
	}

	var values map[string]any
	if err := json.Unmarshal([]byte(decoded), &values); err != nil {
		return nil
	}
	return values
}

func parseLegacyPairs(raw string) map[string]any {
	values := make(map[string]any)
	for _, pair := range strings.Split(raw, "&") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key, err := url.QueryUnescape(kv[0])
		if err != nil {
			continue
		}
		val, err := url.QueryUnescape(kv[1])
		if err != nil {
			continue
		}

		switch {
		case val == "true":
			values[key] = true
		case val == "false":
			values[key] = false
		default:
			if n, err := strconv.ParseFloat(val, 64); err == nil && val != "" {
				values[key] = n
			} else {
				values[key] = val
			}
		}
	}
	return values
}

func applyUpdates(s Settings, values map[string]any) Settings {
	if v, ok := values["calculationMethod"].(string); ok {
		s.CalculationMethod = v
	}
	if v, ok := values["asrMethod"].(string); ok {
		s.AsrMethod = v
	}
	if v, ok := values["manualLocation"].(bool); ok {
		s.ManualLocation = v
	}
	if v, ok := values["manualLatitude"].(float64); ok {
		s.ManualLatitude = v
	}
	if v, ok := values["manualLongitude"].(float64); ok {
		s.ManualLongitude = v
	}
	if v, ok := values["timelineEnabled"].(bool); ok {
		s.TimelineEnabled = v
	}
	if v, ok := values["reminderMinutes"].(float64); ok {
		s.ReminderMinutes = int(v)
	}
	if v, ok := values["vibrationEnabled"].(bool); ok {
		s.VibrationEnabled = v
	}
	return s
}
