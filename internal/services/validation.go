package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"

	types "github.com/hswtrack/compliance-backend/internal/domain"
	"github.com/hswtrack/compliance-backend/internal/ingestion/tabular"
	"github.com/hswtrack/compliance-backend/internal/templates"
)

// RowVerdict is the outcome of validating one staged row. Validation never
// touches the store; the orchestrator applies the verdict.
type RowVerdict struct {
	Accepted   bool
	Normalized map[string]string
	Reason     string
}

type RowValidator interface {
	Validate(row tabular.Row, tpl templates.Template) RowVerdict
}

type rowValidator struct{}

func NewRowValidator() RowValidator { return &rowValidator{} }

// normalizeKey folds a source column header onto the snake_case keys the
// templates declare.
func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	return key
}

func (rv *rowValidator) Validate(row tabular.Row, tpl templates.Template) RowVerdict {
	normalized := make(map[string]string, len(row.Fields))
	for key, value := range row.Fields {
		nk := normalizeKey(key)
		if nk == "" {
			continue
		}
		normalized[nk] = strings.TrimSpace(value)
	}

	empty := true
	for _, value := range normalized {
		if value != "" {
			empty = false
			break
		}
	}
	if empty {
		return RowVerdict{Reason: "row is empty"}
	}

	hasIdentity := false
	for _, column := range tpl.IdentityColumns {
		if normalized[column] != "" {
			hasIdentity = true
			break
		}
	}
	if !hasIdentity {
		return RowVerdict{Reason: fmt.Sprintf(
			"no identity value in any of: %s", strings.Join(tpl.IdentityColumns, ", "))}
	}

	var missing []string
	for _, column := range tpl.RequiredColumns {
		if normalized[column] == "" {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return RowVerdict{Reason: fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", "))}
	}

	// a present but unparsable completion timestamp fails the row now, not
	// at materialization; an absent one defaults later
	for _, column := range tpl.CompletionColumns {
		if v := normalized[column]; v != "" {
			if _, err := ParseTimestamp(v); err != nil {
				return RowVerdict{Reason: fmt.Sprintf("column %s: %v", column, err)}
			}
			break
		}
	}

	// identity values compare case-insensitively everywhere downstream
	for _, column := range tpl.IdentityColumns {
		if v := normalized[column]; v != "" {
			normalized[column] = strings.ToLower(v)
		}
	}

	return RowVerdict{Accepted: true, Normalized: normalized}
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
	"2006/01/02",
}

// ParseTimestamp accepts the completion and expiry formats spreadsheets
// actually contain. Date-only values land at midnight UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", raw)
}

var truthyValues = map[string]bool{
	"true": true, "t": true, "yes": true, "y": true, "1": true,
	"false": false, "f": false, "no": false, "n": false, "0": false,
}

type selectOptions struct {
	Choices []string `json:"choices"`
}

// CoerceFieldValue turns a raw cell into the typed variant a field definition
// demands. A cell that cannot coerce is a row-addressable failure, never a
// silent drop.
func CoerceFieldValue(def *types.TrainingFieldDef, raw string) (types.TypedValue, error) {
	raw = strings.TrimSpace(raw)
	switch def.DataType {
	case types.FieldTypeText:
		return types.TextValue(raw), nil
	case types.FieldTypeNumber:
		n, err := strconv.ParseFloat(strings.TrimSuffix(raw, "%"), 64)
		if err != nil {
			return types.TypedValue{}, fmt.Errorf("field %q: %q is not a number", def.Key, raw)
		}
		return types.NumberValue(n), nil
	case types.FieldTypeDate:
		ts, err := ParseTimestamp(raw)
		if err != nil {
			return types.TypedValue{}, fmt.Errorf("field %q: %q is not a date", def.Key, raw)
		}
		return types.DateValue(ts), nil
	case types.FieldTypeBoolean:
		b, ok := truthyValues[strings.ToLower(raw)]
		if !ok {
			return types.TypedValue{}, fmt.Errorf("field %q: %q is not a boolean", def.Key, raw)
		}
		return types.BooleanValue(b), nil
	case types.FieldTypeSelect:
		choices := decodeChoices(def.Options)
		if len(choices) > 0 {
			for _, choice := range choices {
				if strings.EqualFold(choice, raw) {
					return types.SelectValue(choice), nil
				}
			}
			return types.TypedValue{}, fmt.Errorf(
				"field %q: %q is not one of: %s", def.Key, raw, strings.Join(choices, ", "))
		}
		return types.SelectValue(raw), nil
	case types.FieldTypeJSON:
		if !json.Valid([]byte(raw)) {
			return types.TypedValue{}, fmt.Errorf("field %q: invalid json", def.Key)
		}
		return types.JSONValue(datatypes.JSON(raw)), nil
	default:
		return types.TypedValue{}, fmt.Errorf("field %q: unsupported data type %q", def.Key, def.DataType)
	}
}

func decodeChoices(options datatypes.JSON) []string {
	if len(options) == 0 {
		return nil
	}
	var plain []string
	if err := json.Unmarshal(options, &plain); err == nil {
		return plain
	}
	var wrapped selectOptions
	if err := json.Unmarshal(options, &wrapped); err == nil {
		return wrapped.Choices
	}
	return nil
}
