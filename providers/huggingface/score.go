package huggingface

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// scoreKeys sind die Feldnamen, unter denen Inference-Backends den Score
// typischerweise abliefern, in Vorrang-Reihenfolge.
var scoreKeys = []string{"bias", "bias_score", "score"}

// parseScore liest den Bias-Score tolerant aus einem Antwort-Body: erst als
// JSON mit rekursiver Feldsuche, dann als nackte Fließkommazahl.
func parseScore(data []byte) (float64, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return 0, fmt.Errorf("empty response body")
	}

	var payload interface{}
	if err := json.Unmarshal(data, &payload); err == nil {
		if score, ok := walkScore(payload); ok {
			return score, nil
		}
	}

	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("unable to parse bias score from response: %s", trimmed)
	}

	return value, nil
}

// walkScore durchsucht Maps und Listen rekursiv. In Maps werden erst die
// bekannten Schlüssel geprüft, dann alle übrigen Werte.
func walkScore(data interface{}) (float64, bool) {
	switch v := data.(type) {
	case map[string]interface{}:
		for _, key := range scoreKeys {
			if val, ok := v[key]; ok {
				if score, ok := walkScore(val); ok {
					return score, true
				}
			}
		}
		for _, val := range v {
			if score, ok := walkScore(val); ok {
				return score, true
			}
		}
	case []interface{}:
		for _, item := range v {
			if score, ok := walkScore(item); ok {
				return score, true
			}
		}
	case float64:
		return v, true
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return parsed, true
		}
	}

	return 0, false
}
