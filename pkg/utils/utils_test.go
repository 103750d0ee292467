package utils

import "testing"

func TestBuildHeaders(t *testing.T) {
	h := NewHTTPHelper().BuildHeaders(map[string]string{"Authorization": "Bearer x"})

	if h.Get("User-Agent") != UserAgent {
		t.Errorf("User-Agent = %q", h.Get("User-Agent"))
	}

	if h.Get("Accept") != "application/json" {
		t.Errorf("Accept = %q", h.Get("Accept"))
	}

	if h.Get("Authorization") != "Bearer x" {
		t.Errorf("Authorization = %q", h.Get("Authorization"))
	}
}

func TestStringHelper(t *testing.T) {
	s := NewStringHelper()

	if got := s.NormalizeWhitespace("  North   District \n"); got != "North District" {
		t.Errorf("NormalizeWhitespace = %q", got)
	}

	if got := s.TruncateString("Science", 10); got != "Science" {
		t.Errorf("TruncateString short = %q", got)
	}

	if got := s.TruncateString("Mathematics", 8); got != "Mathe..." {
		t.Errorf("TruncateString long = %q", got)
	}
}
