package data_source

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"live-dashboard/src/helpers"
	"live-dashboard/src/models"

	"github.com/bytedance/sonic"
)

// Decoders for backend payloads. A payload that is not the expected shape
// yields an empty result and a PayloadError; individual malformed elements
// are skipped.

// -----------------------------------------------------------------------------

func decodeArray(body []byte, what string) ([]json.RawMessage, error) {
	var elements []json.RawMessage
	if err := sonic.Unmarshal(body, &elements); err != nil {
		return nil, helpers.NewPayloadError(what, err)
	}
	return elements, nil
}

// -----------------------------------------------------------------------------

// dataPointKeys holds the fields a data point cannot do without.
type dataPointKeys struct {
	ID       *int64   `json:"id"`
	Category *string  `json:"category"`
	Value    *float64 `json:"value"`
}

var errIncompleteDataPoint = errors.New("value and one of id or category are required")

// DecodeDataPoint decodes one data point object. null, an empty object or
// an object without a value and an id or category is rejected.
func DecodeDataPoint(body []byte) (models.MDataPoint, error) {
	var keys dataPointKeys
	if err := sonic.Unmarshal(body, &keys); err != nil {
		return models.MDataPoint{}, helpers.NewPayloadError("data point", err)
	}
	if keys.Value == nil || (keys.ID == nil && keys.Category == nil) {
		return models.MDataPoint{}, helpers.NewPayloadError("data point", errIncompleteDataPoint)
	}

	var p models.MDataPoint
	if err := sonic.Unmarshal(body, &p); err != nil {
		return models.MDataPoint{}, helpers.NewPayloadError("data point", err)
	}
	return p, nil
}

// DecodeDataPoints decodes an array of data point objects in order.
func DecodeDataPoints(body []byte) ([]models.MDataPoint, error) {
	elements, err := decodeArray(body, "data point list")
	if err != nil {
		return []models.MDataPoint{}, err
	}

	points := make([]models.MDataPoint, 0, len(elements))
	for _, raw := range elements {
		if p, err := DecodeDataPoint(raw); err == nil {
			points = append(points, p)
		}
	}
	return points, nil
}

// -----------------------------------------------------------------------------

// DecodeStrings decodes an array of strings, skipping non-string entries.
func DecodeStrings(body []byte) ([]string, error) {
	elements, err := decodeArray(body, "string list")
	if err != nil {
		return []string{}, err
	}

	out := make([]string, 0, len(elements))
	for _, raw := range elements {
		var s string
		if sonic.Unmarshal(raw, &s) == nil && s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// DecodeCategoryTotals accepts [category, total] pairs as well as
// {"category","total"} objects.
func DecodeCategoryTotals(body []byte) ([]models.MCategoryTotal, error) {
	elements, err := decodeArray(body, "aggregate list")
	if err != nil {
		return []models.MCategoryTotal{}, err
	}

	out := make([]models.MCategoryTotal, 0, len(elements))
	for _, raw := range elements {
		var pair []interface{}
		if sonic.Unmarshal(raw, &pair) == nil {
			if len(pair) < 2 {
				continue
			}
			category, ok := pair[0].(string)
			total, okTotal := safeFloat64(pair[1])
			if ok && okTotal {
				out = append(out, models.MCategoryTotal{Category: category, Total: total})
			}
			continue
		}

		var obj models.MCategoryTotal
		if sonic.Unmarshal(raw, &obj) == nil && obj.Category != "" {
			out = append(out, obj)
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// DecodeMovingAverage decodes {timestamp, movingAverage} records.
func DecodeMovingAverage(body []byte) ([]models.MMovingAveragePoint, error) {
	elements, err := decodeArray(body, "moving average list")
	if err != nil {
		return []models.MMovingAveragePoint{}, err
	}

	out := make([]models.MMovingAveragePoint, 0, len(elements))
	for _, raw := range elements {
		var rec models.MMovingAveragePoint
		if sonic.Unmarshal(raw, &rec) == nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// DecodeScatter decodes {hour, value} records.
func DecodeScatter(body []byte) ([]models.MScatterPoint, error) {
	elements, err := decodeArray(body, "scatter list")
	if err != nil {
		return []models.MScatterPoint{}, err
	}

	out := make([]models.MScatterPoint, 0, len(elements))
	for _, raw := range elements {
		var obj map[string]interface{}
		if sonic.Unmarshal(raw, &obj) != nil {
			continue
		}
		hour, okHour := safeFloat64(obj["hour"])
		value, okValue := safeFloat64(obj["value"])
		if okHour && okValue {
			out = append(out, models.MScatterPoint{Hour: hour, Value: value})
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// DecodeHourly decodes [timestamp, average] pairs.
func DecodeHourly(body []byte) ([]models.MHourlyPoint, error) {
	elements, err := decodeArray(body, "hourly list")
	if err != nil {
		return []models.MHourlyPoint{}, err
	}

	out := make([]models.MHourlyPoint, 0, len(elements))
	for _, raw := range elements {
		var pair []json.RawMessage
		if sonic.Unmarshal(raw, &pair) != nil || len(pair) < 2 {
			continue
		}

		var hour models.MTimestamp
		_ = hour.UnmarshalJSON(pair[0])
		var avg interface{}
		if sonic.Unmarshal(pair[1], &avg) != nil {
			continue
		}
		average, ok := safeFloat64(avg)
		if !ok || hour.IsZero() {
			continue
		}
		out = append(out, models.MHourlyPoint{Hour: hour, Average: average})
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// DecodeFrame decodes a push envelope.
func DecodeFrame(data []byte) (models.MPushFrame, error) {
	var frame models.MPushFrame
	if err := sonic.Unmarshal(data, &frame); err != nil {
		return models.MPushFrame{}, helpers.NewPayloadError("push frame", err)
	}
	if frame.Topic == "" {
		return models.MPushFrame{}, helpers.NewPayloadError("push frame", errMissingTopic)
	}
	return frame, nil
}

// DecodeNotification accepts a JSON string, a {level, message} object or
// plain unquoted text.
func DecodeNotification(body []byte) (models.MNotification, error) {
	var text string
	if sonic.Unmarshal(body, &text) == nil && text != "" {
		return models.MNotification{Level: models.LevelInfo, Message: text}, nil
	}

	var n models.MNotification
	if sonic.Unmarshal(body, &n) == nil && n.Message != "" {
		if n.Level == "" {
			n.Level = models.LevelInfo
		}
		return n, nil
	}

	plain := strings.TrimSpace(string(body))
	if plain == "" || plain == `""` {
		return models.MNotification{}, helpers.NewPayloadError("notification", errEmptyBody)
	}
	return models.MNotification{Level: models.LevelInfo, Message: plain}, nil
}

var (
	errMissingTopic = errors.New("missing topic")
	errEmptyBody    = errors.New("empty body")
)

// -----------------------------------------------------------------------------

func safeFloat64(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}
