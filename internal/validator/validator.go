// Package validator checks decoded scan payloads against the reader wire format.
package validator

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/anand0056/rfid-server-setup/internal/models"
)

// RequiredFields are the scan payload keys, in reporting order.
var RequiredFields = []string{"deviceSn", "deviceID", "tagNum", "tagID"}

// ValidationError carries the first rule a payload broke.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Validate accepts the output of a JSON decode (map[string]any for objects,
// json.Number or float64 for numbers) and returns the typed scan.
//
// Missing and empty fields are all reported together; type checks only run
// once every field is present and stop at the first failure.
func Validate(decoded any) (models.ValidatedScan, error) {
	data, ok := decoded.(map[string]any)
	if !ok {
		return models.ValidatedScan{}, invalid("Data is not a valid JSON object")
	}

	var missing []string
	for _, field := range RequiredFields {
		v, present := data[field]
		switch {
		case !present:
			missing = append(missing, field)
		case v == nil || v == "":
			missing = append(missing, field+" (empty)")
		}
	}
	if len(missing) > 0 {
		return models.ValidatedScan{}, invalid("Missing required fields: %s", strings.Join(missing, ", "))
	}

	tagNum, ok := asInteger(data["tagNum"])
	if !ok {
		return models.ValidatedScan{}, invalid("tagNum must be an integer")
	}

	strs := make(map[string]string, 3)
	for _, field := range []string{"deviceSn", "deviceID", "tagID"} {
		s, ok := data[field].(string)
		if !ok || strings.TrimSpace(s) == "" {
			return models.ValidatedScan{}, invalid("%s must be a non-empty string", field)
		}
		strs[field] = s
	}

	return models.ValidatedScan{
		DeviceSn: strs["deviceSn"],
		DeviceID: strs["deviceID"],
		TagNum:   tagNum,
		TagID:    strs["tagID"],
	}, nil
}

// asInteger accepts JSON numbers without a fractional part or exponent
// ("7", not "7.0" or "7e0"); strings and booleans are rejected.
func asInteger(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if strings.ContainsAny(n.String(), ".eE") {
			return 0, false
		}
		i, err := n.Int64()
		return i, err == nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || n >= math.MaxInt64 || n < math.MinInt64 {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}
