package textutil

import (
	"reflect"
	"testing"
)

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  Daft   Punk ", "daft punk"},
		{"STRASSE", "strasse"},
		{"ＡＢＣ", "abc"},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTokensDropsSingleRunes(t *testing.T) {
	got := Tokens("A Day In The Life")
	want := []string{"day", "in", "the", "life"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokens = %v, want %v", got, want)
	}
	if len(Tokens("")) != 0 {
		t.Fatal("expected no tokens for empty input")
	}
}

func TestContainsFold(t *testing.T) {
	if !ContainsFold("Never Gonna Give You Up", "gonna GIVE") {
		t.Fatal("expected case-insensitive match")
	}
	if ContainsFold("anything", "  ") {
		t.Fatal("blank needle must not match")
	}
}

func TestTitle(t *testing.T) {
	if got := Title("elevated"); got != "Elevated" {
		t.Fatalf("Title = %q", got)
	}
	if got := Title("too_long"); got != "Too Long" {
		t.Fatalf("Title = %q", got)
	}
}

func TestStripControl(t *testing.T) {
	if got := StripControl("hi\nthere\t!"); got != "hi there !" {
		t.Fatalf("StripControl = %q", got)
	}
}
