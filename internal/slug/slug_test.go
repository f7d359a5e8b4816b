//go:build unit

package slug

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"punctuation", "Hello, World!", "hello-world"},
		{"mixed case and spaces", "  Getting   Started With Go  ", "getting-started-with-go"},
		{"hyphen runs", "foo -- bar", "foo-bar"},
		{"underscores", "snake_case_name", "snake-case-name"},
		{"accents folded", "Café Crème", "cafe-creme"},
		{"digits kept", "Go 1.22 Release", "go-122-release"},
		{"leading and trailing hyphens", "-- edge --", "edge"},
		{"only symbols", "!!!", ""},
		{"non latin", "日本語", ""},
		{"empty", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Generate(tc.input))
		})
	}
}

func TestGenerate_OutputIsCanonical(t *testing.T) {
	inputs := []string{
		"Hello, World!", "C++ & C#", "  a  ", "x_y-z", "Ünïcödé Tëxt", "tab\tand\nnewline",
		"100% legit", "---", "émoji 🎉 party", "UPPER lower 123",
	}
	for _, in := range inputs {
		got := Generate(in)
		if got == "" {
			continue
		}
		assert.Truef(t, IsValid(got), "Generate(%q) = %q is not a canonical slug", in, got)
	}
}

func setExists(taken ...string) ExistsFunc {
	set := make(map[string]struct{}, len(taken))
	for _, s := range taken {
		set[s] = struct{}{}
	}
	return func(candidate string) (bool, error) {
		_, ok := set[candidate]
		return ok, nil
	}
}

func TestMakeUnique(t *testing.T) {
	t.Run("free base is returned as is", func(t *testing.T) {
		got, err := MakeUnique("foo", setExists())
		require.NoError(t, err)
		assert.Equal(t, "foo", got)
	})

	t.Run("appends incrementing suffix", func(t *testing.T) {
		got, err := MakeUnique("foo", setExists("foo", "foo-1"))
		require.NoError(t, err)
		assert.Equal(t, "foo-2", got)
	})

	t.Run("predicate error is returned", func(t *testing.T) {
		boom := errors.New("db down")
		_, err := MakeUnique("foo", func(string) (bool, error) { return false, boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("gives up after MaxAttempts", func(t *testing.T) {
		calls := 0
		_, err := MakeUnique("foo", func(string) (bool, error) {
			calls++
			return true, nil
		})
		assert.ErrorIs(t, err, ErrSlugExhausted)
		assert.Equal(t, MaxAttempts, calls)
	})

	t.Run("long collision chain terminates", func(t *testing.T) {
		taken := []string{"foo"}
		for i := 1; i < 50; i++ {
			taken = append(taken, fmt.Sprintf("foo-%d", i))
		}
		got, err := MakeUnique("foo", setExists(taken...))
		require.NoError(t, err)
		assert.Equal(t, "foo-50", got)
	})
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("hello-world"))
	assert.True(t, IsValid("a1"))
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("-a"))
	assert.False(t, IsValid("a--b"))
	assert.False(t, IsValid("Hello"))
}
