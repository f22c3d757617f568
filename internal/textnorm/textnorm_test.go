package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"collapses whitespace", "Too   many\tspaces\nhere", "too many spaces here"},
		{"lowercases", "SHOUTING Feedback", "shouting feedback"},
		{"trims edges", "  padded  ", "padded"},
		{"empty stays empty", "", ""},
		{"already normalized is stable", "already normal", "already normal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	in := "Some   Mixed CASE\n\ttext"
	once := Normalize(in)
	twice := Normalize(once)
	assert.Equal(t, once, twice)
}
