package proxy

import (
	"encoding/json"
	"fmt"
	"strings"
)

// HealthCheck inspects the rotation endpoint's raw response and decides
// whether the new egress identity is usable. Checks are a fixed enumerated
// set named in the proxy configuration; arbitrary predicate code is not
// accepted.
type HealthCheck func(statusCode int, body []byte) (ok bool, detail string)

// ParseHealthCheck resolves a PROXY_STATUS value to a strategy:
//
//	""           same as any2xx
//	any2xx       healthy on any 2xx response
//	contains:<s> healthy when the body contains <s>
//	json-ok      healthy when the body is JSON with "status": "OK"
func ParseHealthCheck(name string) (HealthCheck, error) {
	switch {
	case name == "" || name == "any2xx":
		return any2xx, nil
	case strings.HasPrefix(name, "contains:"):
		needle := strings.TrimPrefix(name, "contains:")
		if needle == "" {
			return nil, fmt.Errorf("contains health check needs a non-empty substring")
		}
		return containsCheck(needle), nil
	case name == "json-ok":
		return jsonOK, nil
	default:
		return nil, fmt.Errorf("unknown PROXY_STATUS health check %q", name)
	}
}

func any2xx(statusCode int, _ []byte) (bool, string) {
	if statusCode >= 200 && statusCode < 300 {
		return true, fmt.Sprintf("status %d", statusCode)
	}
	return false, fmt.Sprintf("status %d", statusCode)
}

func containsCheck(needle string) HealthCheck {
	return func(statusCode int, body []byte) (bool, string) {
		if statusCode < 200 || statusCode >= 300 {
			return false, fmt.Sprintf("status %d", statusCode)
		}
		if strings.Contains(string(body), needle) {
			return true, fmt.Sprintf("body contains %q", needle)
		}
		return false, fmt.Sprintf("body missing %q", needle)
	}
}

func jsonOK(statusCode int, body []byte) (bool, string) {
	if statusCode < 200 || statusCode >= 300 {
		return false, fmt.Sprintf("status %d", statusCode)
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return false, "body is not JSON"
	}
	if strings.EqualFold(payload.Status, "ok") {
		return true, "status OK"
	}
	return false, fmt.Sprintf("status field %q", payload.Status)
}
