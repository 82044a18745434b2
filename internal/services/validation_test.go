package services

import (
	"strings"
	"testing"
	"time"

	"gorm.io/datatypes"

	types "github.com/hswtrack/compliance-backend/internal/domain"
	"github.com/hswtrack/compliance-backend/internal/ingestion/tabular"
	"github.com/hswtrack/compliance-backend/internal/templates"
)

func trainingTemplate() templates.Template {
	return templates.Template{
		Name:            "training_records",
		IdentityColumns: []string{"email", "user_id"},
		RequiredColumns: []string{"course"},
	}
}

func TestValidateAcceptsAndNormalizes(t *testing.T) {
	v := NewRowValidator()
	row := tabular.Row{Number: 2, Fields: map[string]string{
		"Email":   " Bob@Example.COM ",
		"Course":  "Fire Safety",
		"User ID": "",
	}}

	verdict := v.Validate(row, trainingTemplate())
	if !verdict.Accepted {
		t.Fatalf("expected accept, got reject: %s", verdict.Reason)
	}
	if got := verdict.Normalized["email"]; got != "bob@example.com" {
		t.Fatalf("identity value not normalized: %q", got)
	}
	if got := verdict.Normalized["course"]; got != "Fire Safety" {
		t.Fatalf("non-identity value should keep case: %q", got)
	}
	if _, ok := verdict.Normalized["user_id"]; !ok {
		t.Fatalf("header %q should normalize to user_id", "User ID")
	}
}

func TestValidateRejections(t *testing.T) {
	v := NewRowValidator()
	cases := []struct {
		name   string
		fields map[string]string
		want   string
	}{
		{
			name:   "empty row",
			fields: map[string]string{"email": "", "course": ""},
			want:   "empty",
		},
		{
			name:   "no identity",
			fields: map[string]string{"course": "Fire Safety"},
			want:   "no identity value",
		},
		{
			name:   "missing required column",
			fields: map[string]string{"email": "a@b.com"},
			want:   "missing required columns: course",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verdict := v.Validate(tabular.Row{Number: 2, Fields: tc.fields}, trainingTemplate())
			if verdict.Accepted {
				t.Fatalf("expected reject")
			}
			if !strings.Contains(verdict.Reason, tc.want) {
				t.Fatalf("reason %q does not mention %q", verdict.Reason, tc.want)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Time
		ok   bool
	}{
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"2024-03-01 10:30:00", time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC), true},
		{"01/03/2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"2024-03-01T10:30:00Z", time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC), true},
		{"not-a-date", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tc := range cases {
		got, err := ParseTimestamp(tc.raw)
		if tc.ok != (err == nil) {
			t.Fatalf("ParseTimestamp(%q) error = %v, want ok=%v", tc.raw, err, tc.ok)
		}
		if tc.ok && !got.Equal(tc.want) {
			t.Fatalf("ParseTimestamp(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestCoerceFieldValue(t *testing.T) {
	def := func(dataType types.FieldDataType, options string) *types.TrainingFieldDef {
		d := &types.TrainingFieldDef{Key: "field", DataType: dataType}
		if options != "" {
			d.Options = datatypes.JSON(options)
		}
		return d
	}

	cases := []struct {
		name string
		def  *types.TrainingFieldDef
		raw  string
		want types.FieldDataType
		ok   bool
	}{
		{"text", def(types.FieldTypeText, ""), "anything", types.FieldTypeText, true},
		{"number", def(types.FieldTypeNumber, ""), "92.5", types.FieldTypeNumber, true},
		{"number percent", def(types.FieldTypeNumber, ""), "92%", types.FieldTypeNumber, true},
		{"number bad", def(types.FieldTypeNumber, ""), "ninety", "", false},
		{"date", def(types.FieldTypeDate, ""), "2024-03-01", types.FieldTypeDate, true},
		{"date bad", def(types.FieldTypeDate, ""), "soon", "", false},
		{"boolean yes", def(types.FieldTypeBoolean, ""), "Yes", types.FieldTypeBoolean, true},
		{"boolean bad", def(types.FieldTypeBoolean, ""), "maybe", "", false},
		{"select match", def(types.FieldTypeSelect, `["Perth","Albany"]`), "perth", types.FieldTypeSelect, true},
		{"select wrapped choices", def(types.FieldTypeSelect, `{"choices":["Perth"]}`), "Perth", types.FieldTypeSelect, true},
		{"select miss", def(types.FieldTypeSelect, `["Perth"]`), "Mars", "", false},
		{"select free", def(types.FieldTypeSelect, ""), "anything", types.FieldTypeSelect, true},
		{"json", def(types.FieldTypeJSON, ""), `{"a":1}`, types.FieldTypeJSON, true},
		{"json bad", def(types.FieldTypeJSON, ""), `{broken`, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CoerceFieldValue(tc.def, tc.raw)
			if tc.ok != (err == nil) {
				t.Fatalf("error = %v, want ok=%v", err, tc.ok)
			}
			if tc.ok && got.Kind() != tc.want {
				t.Fatalf("kind = %q, want %q", got.Kind(), tc.want)
			}
		})
	}
}

func TestCoerceSelectCanonicalizesCase(t *testing.T) {
	d := &types.TrainingFieldDef{Key: "site", DataType: types.FieldTypeSelect, Options: datatypes.JSON(`["Perth"]`)}
	got, err := CoerceFieldValue(d, "PERTH")
	if err != nil {
		t.Fatalf("coerce: %v", err)
	}
	if got.String() != "Perth" {
		t.Fatalf("select should store the declared choice, got %q", got.String())
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Fire Safety Awareness":  "fire-safety-awareness",
		"  Working @ Heights!  ": "working-heights",
	}
	if got := slugify(strings.Repeat("long ", 20)); len(got) > 50 || strings.HasSuffix(got, "-") {
		t.Fatalf("long titles must truncate cleanly, got %q", got)
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Fatalf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
