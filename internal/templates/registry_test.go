package templates

import "testing"

func TestParse(t *testing.T) {
	raw := []byte(`
templates:
  training_records:
    version: "2"
    identity_columns: [email, staff_id]
    required_columns: [course]
    completion_columns: [completed_at]
`)
	reg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tpl, ok := reg.Get("training_records")
	if !ok {
		t.Fatal("expected training_records template")
	}
	if tpl.Name != "training_records" || tpl.Version != "2" {
		t.Fatalf("unexpected template meta: %+v", tpl)
	}
	if len(tpl.IdentityColumns) != 2 || tpl.IdentityColumns[0] != "email" {
		t.Fatalf("identity column order lost: %+v", tpl.IdentityColumns)
	}
}

func TestParseRejectsEmpty(t *testing.T) {
	if _, err := Parse([]byte("templates: {}")); err == nil {
		t.Fatal("expected error for empty registry")
	}
	if _, err := Parse([]byte("not yaml: [")); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}

func TestEmbeddedDefaults(t *testing.T) {
	reg := Load(nil)
	tpl, ok := reg.Get("training_records")
	if !ok {
		t.Fatal("embedded registry must declare training_records")
	}
	if len(tpl.IdentityColumns) == 0 {
		t.Fatal("training_records template must declare identity columns")
	}
	if _, ok := reg.Get("people"); !ok {
		t.Fatal("embedded registry must declare people")
	}
}
