package jangkau

import (
	"bytes"
	"strings"

	json "github.com/goccy/go-json"
)

// DefaultErrorMessage is surfaced when a failed response reveals no usable
// message of its own.
const DefaultErrorMessage = "request failed"

// defaultExtractKeys are the envelope keys probed, in order, when a payload
// object wraps its data.
var defaultExtractKeys = []string{
	"data", "result", "results", "items", "records",
	"content", "rows", "list", "payload", "body",
}

// defaultExtractStrategies returns the built-in envelope extraction chain:
// the flat keys above, then the nested response.data shape.
func defaultExtractStrategies() []ExtractStrategy {
	strategies := make([]ExtractStrategy, 0, len(defaultExtractKeys)+1)
	for _, key := range defaultExtractKeys {
		strategies = append(strategies, keyStrategy(key))
	}
	strategies = append(strategies, nestedResponseStrategy)
	return strategies
}

// keyStrategy extracts a single non-nil envelope key.
func keyStrategy(key string) ExtractStrategy {
	return func(obj map[string]any) (any, bool) {
		v, ok := obj[key]
		if !ok || v == nil {
			return nil, false
		}
		return v, true
	}
}

// nestedResponseStrategy handles the response.data envelope shape.
func nestedResponseStrategy(obj map[string]any) (any, bool) {
	resp, ok := obj["response"].(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := resp["data"]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// parseBody decodes a response body per mode. A non-nil fn overrides mode
// entirely.
func parseBody(raw []byte, mode ParseMode, fn ParseFunc) (any, error) {
	if fn != nil {
		return fn(raw)
	}
	switch mode {
	case ParseText:
		return string(raw), nil
	case ParseJSON:
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		if len(bytes.TrimSpace(raw)) == 0 {
			return nil, nil
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return string(raw), nil
		}
		return v, nil
	}
}

// classifyError reports whether a decoded payload represents a failed call.
// HTTP failure always classifies as error; an object payload additionally
// fails on conventional error markers even under HTTP 200.
func classifyError(httpOK bool, payload any) bool {
	if !httpOK {
		return true
	}
	obj, ok := payload.(map[string]any)
	if !ok {
		return false
	}
	if v, ok := obj["error"]; ok && truthy(v) {
		return true
	}
	if v, ok := obj["success"]; ok && v == false {
		return true
	}
	if v, ok := obj["result"]; ok && v == false {
		return true
	}
	if s, ok := obj["status"].(string); ok && (s == "error" || s == "fail") {
		return true
	}
	if v, ok := obj["code"]; ok && !successCode(v) {
		return true
	}
	return false
}

// successCode reports whether an envelope code field counts as success.
// JSON numbers decode as float64; integer codes are accepted for payloads
// built in-process.
func successCode(v any) bool {
	switch t := v.(type) {
	case string:
		return t == "SUCCESS" || t == "success"
	case float64:
		return t == 200 || t == 0
	case int:
		return t == 200 || t == 0
	default:
		return false
	}
}

// truthy mirrors loose truthiness: nil, false, empty strings and zero
// numbers are falsy; everything else, including empty maps and slices, is
// truthy.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	default:
		return true
	}
}

// extractPayload unwraps an enveloped payload. Arrays and scalars pass
// through; for objects the first matching strategy wins; no match returns
// the payload unchanged.
func extractPayload(payload any, strategies []ExtractStrategy) any {
	obj, ok := payload.(map[string]any)
	if !ok {
		return payload
	}
	for _, s := range strategies {
		if v, ok := s(obj); ok {
			return v
		}
	}
	return payload
}

// errorMessage cascades through the conventional message locations of a
// failed payload: the payload itself when it is a string, error as string,
// error.message, message, msg, then a joined errors list.
func errorMessage(payload any) string {
	switch t := payload.(type) {
	case string:
		if t != "" {
			return t
		}
	case map[string]any:
		if s, ok := t["error"].(string); ok && s != "" {
			return s
		}
		if errObj, ok := t["error"].(map[string]any); ok {
			if s, ok := errObj["message"].(string); ok && s != "" {
				return s
			}
		}
		if s, ok := t["message"].(string); ok && s != "" {
			return s
		}
		if s, ok := t["msg"].(string); ok && s != "" {
			return s
		}
		if list, ok := t["errors"].([]any); ok && len(list) > 0 {
			parts := make([]string, 0, len(list))
			for _, item := range list {
				switch e := item.(type) {
				case string:
					if e != "" {
						parts = append(parts, e)
					}
				case map[string]any:
					if s, ok := e["message"].(string); ok && s != "" {
						parts = append(parts, s)
					}
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, "; ")
			}
		}
	}
	return DefaultErrorMessage
}

// successMessage pulls a human-readable message from a successful payload.
func successMessage(payload any) string {
	obj, ok := payload.(map[string]any)
	if !ok {
		return ""
	}
	if s, ok := obj["message"].(string); ok {
		return s
	}
	if s, ok := obj["msg"].(string); ok {
		return s
	}
	return ""
}
