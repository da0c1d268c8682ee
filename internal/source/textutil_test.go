package source

import "testing"

func TestNormalizeDateValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"05-09-2026", "2026-09-05"},
		{"2026-09-05", "2026-09-05"},
		{"05/09/2026", "2026-09-05"},
		{"05.09.2026", "2026-09-05"},
		{"05-09-26", "2026-09-05"},
		{"05-09-96", "1996-09-05"},
		{"", ""},
		{"next tuesday", "next tuesday"},
	}
	for _, tt := range tests {
		if got := normalizeDateValue(tt.in); got != tt.want {
			t.Errorf("normalizeDateValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTimeValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"09:00", "09:00"},
		{"9:00 a.m.", "9:00 AM"},
		{"2:30 p.m.", "2:30 PM"},
		{"0930", "09:30"},
		{"930", "09:30"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeTimeValue(tt.in); got != tt.want {
			t.Errorf("normalizeTimeValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCombineDateTime(t *testing.T) {
	tests := []struct {
		date string
		time string
		want string
	}{
		{"05-09-2026", "09:00", "2026-09-05 09:00"},
		{"05-09-2026", "", "2026-09-05"},
		{"", "09:00", "09:00"},
		{"", "", ""},
	}
	for _, tt := range tests {
		if got := combineDateTime(tt.date, tt.time); got != tt.want {
			t.Errorf("combineDateTime(%q, %q) = %q, want %q", tt.date, tt.time, got, tt.want)
		}
	}
}

func TestExtractTimes(t *testing.T) {
	got := extractTimes("09:00 to 13:30 hrs")
	if len(got) != 2 || got[0] != "09:00" || got[1] != "13:30" {
		t.Fatalf("extractTimes = %v", got)
	}
	if got := extractTimes("no clocks here"); len(got) != 0 {
		t.Fatalf("extractTimes = %v", got)
	}
}

func TestLooksLikePredicates(t *testing.T) {
	if !looksLikeDateValue("05-09-2026") || looksLikeDateValue("Gulberg") {
		t.Error("looksLikeDateValue misclassifies")
	}
	if !looksLikeTimeValue("09:00") || !looksLikeTimeValue("0930") || looksLikeTimeValue("Gulberg") {
		t.Error("looksLikeTimeValue misclassifies")
	}
	if !looksLikeFeederValue("F-12") || !looksLikeFeederValue("Shama 132") || looksLikeFeederValue("Gulberg") {
		t.Error("looksLikeFeederValue misclassifies")
	}
	if !looksLikeDateTime("2026-09-05") || !looksLikeDateTime("09:00") || looksLikeDateTime("Gulberg") {
		t.Error("looksLikeDateTime misclassifies")
	}
}

func TestJoinAreaParts(t *testing.T) {
	got := joinAreaParts([]string{"Lahore", "Gulberg", "Lahore", " ", ""})
	if got != "Lahore | Gulberg" {
		t.Fatalf("joinAreaParts = %q", got)
	}
}
