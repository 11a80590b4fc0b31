package cookie

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		header string
		want   map[string]string
	}{
		{
			name:   "typical-header",
			header: "a=1; b=two; c=three%20four",
			want:   map[string]string{"a": "1", "b": "two", "c": "three four"},
		},
		{
			name:   "empty-header",
			header: "",
			want:   map[string]string{},
		},
		{
			name:   "drops-empty-name-and-value",
			header: "=orphan; empty=; ok=1",
			want:   map[string]string{"ok": "1"},
		},
		{
			name:   "no-equals-sign",
			header: "garbage; ok=1",
			want:   map[string]string{"ok": "1"},
		},
		{
			name:   "last-duplicate-wins",
			header: "tok=first; tok=second",
			want:   map[string]string{"tok": "second"},
		},
		{
			name:   "value-containing-equals",
			header: "jwt=aGVhZA==.cGF5bG9hZA==.c2ln",
			want:   map[string]string{"jwt": "aGVhZA==.cGF5bG9hZA==.c2ln"},
		},
		{
			name:   "undecodable-value-kept-raw",
			header: "raw=100%zz",
			want:   map[string]string{"raw": "100%zz"},
		},
		{
			name:   "whitespace-trimmed",
			header: "  a = 1 ;b=2",
			want:   map[string]string{"a": "1", "b": "2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			assert.Equal(tt.want, Parse(tt.header))
		})
	}
}

func TestSerialize(t *testing.T) {
	t.Parallel()
	t.Run("all-attributes-in-order", func(t *testing.T) {
		assert := assert.New(t)
		got := Serialize("token", "abc", Options{
			Path:     "/",
			MaxAge:   10,
			HTTPOnly: true,
			SameSite: SameSiteLax,
			Secure:   true,
		})
		assert.Equal("token=abc; Path=/; Max-Age=10; HttpOnly; SameSite=Lax; Secure", got)
	})
	t.Run("omits-absent-attributes", func(t *testing.T) {
		assert := assert.New(t)
		assert.Equal("token=abc", Serialize("token", "abc", Options{}))
	})
	t.Run("encodes-reserved-characters", func(t *testing.T) {
		assert := assert.New(t)
		got := Serialize("v", "a;b=c d", Options{})
		assert.NotContains(got[2:], ";")
		assert.NotContains(got, " d")
	})
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	values := []string{
		"plain",
		"with space",
		"semi;colon",
		"eq=uals",
		"pct%20literal",
		"unicode-ü",
		"plus+sign",
	}
	for _, v := range values {
		parsed := Parse(Serialize("k", v, Options{Path: "/"}))
		require.Contains(parsed, "k", "value %q did not survive", v)
		assert.Equal(v, parsed["k"])
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	got := Delete("token", Options{Path: "/", MaxAge: 3600, HTTPOnly: true, SameSite: SameSiteLax, Secure: true})
	assert.Equal("token=; Path=/; Max-Age=0; HttpOnly; SameSite=Lax; Secure", got)
	assert.Contains(Delete("token", Options{MaxAge: 99}), "Max-Age=0")
}

func TestIsSecure(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.True(IsSecure("https://example.com"))
	assert.True(IsSecure("https://x"))
	assert.False(IsSecure("http://localhost:3000"))
	assert.False(IsSecure("not-a-url"))
	assert.False(IsSecure("://missing-scheme"))
	assert.False(IsSecure(""))
}
