package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EncodeSnapshot serializes lines into the persisted snapshot format.
func EncodeSnapshot(lines []Line) (string, error) {
	if lines == nil {
		lines = []Line{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return "", fmt.Errorf("marshal cart snapshot: %w", err)
	}
	return string(data), nil
}

// DecodeSnapshot parses a persisted snapshot and normalizes every line:
// id and size are coerced to strings, price to a non-negative number (0 when
// unusable), qty to a positive integer (1 when unusable). A line without a
// usable maxStock is locked to its current quantity. qty and maxStock are
// capped at MaxQuantity. Entries that are not
// objects are dropped, and a repeated (id, size) pair overwrites the earlier
// line in place. Only a snapshot that is not a JSON array is an error.
func DecodeSnapshot(data string) ([]Line, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal cart snapshot: %w", err)
	}

	lines := make([]Line, 0, len(raw))
	for _, entry := range raw {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(entry, &fields); err != nil || fields == nil {
			continue
		}
		line := normalizeLine(fields)
		if i := FindLine(lines, line.Key()); i >= 0 {
			lines[i] = line
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func normalizeLine(f map[string]json.RawMessage) Line {
	line := Line{
		ProductID: stringField(f["id"]),
		Variant:   variantFromRaw(f["size"]),
		Name:      stringField(f["name"]),
		Image:     stringField(f["image"]),
		Category:  stringField(f["category"]),
		Quantity:  1,
	}

	if p, ok := numberField(f["price"]); ok {
		line.UnitPrice = SanitizePrice(p)
	}
	if q, ok := numberField(f["qty"]); ok && q >= 1 {
		line.Quantity = NormalizeQuantity(q)
	}
	if m, ok := numberField(f["maxStock"]); ok && m >= 1 {
		line.MaxQuantity = NormalizeQuantity(m)
	} else {
		line.MaxQuantity = line.Quantity
	}
	return line
}

// stringField accepts strings and numbers; anything else is empty.
func stringField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// numberField accepts finite numbers and numeric strings.
func numberField(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
