package util

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "Sunset", want: "Sunset"},
		{in: "  A Night / in Paris  ", want: "A_Night_in_Paris"},
		{in: "../../etc/passwd", want: "etc_passwd"},
		{in: "Wait...", want: "Wait"},
		{in: "café-noir", want: "café-noir"},
		{in: "///", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := SanitizeFileName(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("SanitizeFileName(%q) expected error, got %q", tt.in, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("SanitizeFileName(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestSanitizeFileNameTruncates(t *testing.T) {
	long := ""
	for i := 0; i < 100; i++ {
		long += "a"
	}
	got, err := SanitizeFileName(long)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != maxFileNameLen {
		t.Fatalf("expected %d chars, got %d", maxFileNameLen, len(got))
	}
}
