package binding

import (
	"strings"
	"testing"
)

func TestInterpolate(t *testing.T) {
	data, err := Decode(strings.NewReader(`{"user":{"name":"Ada","tags":["go","memes"]},"votes":42}`))
	if err != nil {
		t.Fatalf("Decode 失败: %v", err)
	}
	cases := []struct{ in, want string }{
		{"Hi ${user.name}!", "Hi Ada!"},
		{"${ user.tags[1] }", "memes"},
		{"${votes} votes", "42 votes"},
		{"missing ${user.email}", "missing ${user.email}"},
		{"out of range ${user.tags[5]}", "out of range ${user.tags[5]}"},
		{"plain", "plain"},
		{"Hi ${user.email | friend}", "Hi friend"},
		{"${user.tags[x]}", "${user.tags[x]}"},
	}
	for _, tc := range cases {
		if got := Interpolate(tc.in, data); got != tc.want {
			t.Fatalf("Interpolate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if got := Interpolate("${user.name}", nil); got != "${user.name}" {
		t.Fatalf("nil data should keep placeholders, got %q", got)
	}
	if got := Interpolate("${user.name|anon}", nil); got != "anon" {
		t.Fatalf("fallback should apply without data, got %q", got)
	}
}

func TestDecodeRejectsInvalidJSON(t *testing.T) {
	if _, err := Decode(strings.NewReader(`{"user":`)); err == nil {
		t.Fatalf("expected error")
	}
}
