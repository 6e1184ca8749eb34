package coerce

import (
	"testing"
	"time"
)

func TestToText(t *testing.T) {
	ts := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil is empty", nil, ""},
		{"string passthrough", "hello", "hello"},
		{"bytes decoded", []byte("blob text"), "blob text"},
		{"invalid utf8 replaced", []byte{0xff, 0xfe, 'a'}, "��a"},
		{"int64", int64(42), "42"},
		{"negative int64", int64(-7), "-7"},
		{"float64", 3.25, "3.25"},
		{"bool", true, "true"},
		{"time", ts, "2024-03-15 10:30:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToText(tt.in); got != tt.want {
				t.Errorf("ToText(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestToTextKeepsFractionalSeconds(t *testing.T) {
	ts := time.Date(2024, 3, 15, 10, 30, 0, 123456000, time.UTC)
	if got := ToText(ts); got != "2024-03-15 10:30:00.123456" {
		t.Errorf("ToText(time with micros) = %q", got)
	}
}

func TestRowToText(t *testing.T) {
	row := []any{int64(1), nil, "x"}
	got := RowToText(row)
	want := []string{"1", "", "x"}
	if len(got) != len(want) {
		t.Fatalf("RowToText returned %d fields, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("field %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParamsRestoresNULL(t *testing.T) {
	params := Params([]string{"a", "", "0", ""})

	if params[0] != "a" {
		t.Errorf("params[0] = %v, want \"a\"", params[0])
	}
	if params[1] != nil {
		t.Errorf("params[1] = %v, want nil (SQL NULL)", params[1])
	}
	if params[2] != "0" {
		t.Errorf("params[2] = %v, want \"0\"", params[2])
	}
	if params[3] != nil {
		t.Errorf("params[3] = %v, want nil (SQL NULL)", params[3])
	}
}

func TestNullRoundTrip(t *testing.T) {
	// A NULL source value stages as "" and comes back as a typed nil,
	// never as the literal text "null" or "<nil>".
	staged := ToText(nil)
	if staged != "" {
		t.Fatalf("ToText(nil) = %q, want empty", staged)
	}
	params := Params([]string{staged})
	if params[0] != nil {
		t.Fatalf("Params round-trip of NULL = %v, want nil", params[0])
	}
}
