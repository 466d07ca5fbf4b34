package openaicompat

import "testing"

func TestNormalizeBaseURL(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                                "",
		"   ":                             "",
		"http://127.0.0.1:1234/v1":        "http://127.0.0.1:1234/v1/",
		"http://127.0.0.1:1234/v1/":       "http://127.0.0.1:1234/v1/",
		" https://openrouter.ai/api/v1//": "https://openrouter.ai/api/v1/",
	}
	for in, want := range cases {
		if got := NormalizeBaseURL(in); got != want {
			t.Fatalf("NormalizeBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}
