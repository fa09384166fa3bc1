package utils

import "testing"

func TestExtractObjectKeyFromURL(t *testing.T) {
	t.Setenv("GCS_URL", "storage.googleapis.com")
	t.Setenv("GCS_BUCKET", "chainsight-uploads")

	cases := []struct {
		in       string
		expected string
	}{
		{"org-1/uploads/file.xlsx", "org-1/uploads/file.xlsx"},
		{"org-1/../secrets.xlsx", ""},
		{"gs://chainsight-uploads/org-1/uploads/file.xlsx", "org-1/uploads/file.xlsx"},
		{"https://storage.googleapis.com/chainsight-uploads/org-1/uploads/file.xlsx", "org-1/uploads/file.xlsx"},
		{"https://chainsight-uploads.storage.googleapis.com/org-1/uploads/file.xlsx", "org-1/uploads/file.xlsx"},
		{"https://storage.cloud.google.com/chainsight-uploads/org-1/uploads/file.xlsx", "org-1/uploads/file.xlsx"},
		{"https://api.example.com/download?key=org-1/uploads/file.xlsx", "org-1/uploads/file.xlsx"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := ExtractObjectKeyFromURL(tc.in); got != tc.expected {
			t.Fatalf("ExtractObjectKeyFromURL(%q) expected %q, got %q", tc.in, tc.expected, got)
		}
	}
}

func TestBuildObjectAccessURL(t *testing.T) {
	t.Setenv("STORAGE_ACCESS_BASE_URL", "")
	t.Setenv("GCS_URL", "storage.googleapis.com")
	t.Setenv("GCS_BUCKET", "chainsight-uploads")

	if got := BuildObjectAccessURL("org-1/uploads/file.xlsx"); got != "https://storage.googleapis.com/chainsight-uploads/org-1/uploads/file.xlsx" {
		t.Fatalf("unexpected access URL: %q", got)
	}

	t.Setenv("STORAGE_ACCESS_BASE_URL", "https://cdn.example.com/files/{objectKey}")
	if got := BuildObjectAccessURL("org-1/file.xlsx"); got != "https://cdn.example.com/files/org-1/file.xlsx" {
		t.Fatalf("placeholder base URL not applied: %q", got)
	}
}

func TestParseDecimal(t *testing.T) {
	d, err := ParseDecimal(" 1234.50 ")
	if err != nil {
		t.Fatalf("ParseDecimal: %v", err)
	}
	if d.String() != "1234.5" {
		t.Fatalf("expected 1234.5, got %s", d.String())
	}
	if _, err := ParseDecimal(""); err == nil {
		t.Fatalf("empty string must error")
	}
	if _, err := ParseDecimal("not-a-number"); err == nil {
		t.Fatalf("garbage must error")
	}
}

func TestNilIfEmpty(t *testing.T) {
	if NilIfEmpty("") != nil {
		t.Fatalf("empty string yields nil")
	}
	if p := NilIfEmpty("SHIP-1"); p == nil || *p != "SHIP-1" {
		t.Fatalf("non-empty string yields pointer, got %v", p)
	}
}
