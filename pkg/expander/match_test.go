package expander

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFind(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		key    string
		cursor int
		want   Match
		ok     bool
	}{
		{"fragment after space", "hello @wor", "@", 10, Match{Text: "wor", Key: "@", Position: 7}, true},
		{"mid word key", "a@b", "@", 3, Match{}, false},
		{"space before cursor", "hello @wor ld", "@", 13, Match{}, false},
		{"key only", "@", "@", 1, Match{Text: "", Key: "@", Position: 1}, true},
		{"start of text", "@bob", "@", 4, Match{Text: "bob", Key: "@", Position: 1}, true},
		{"after paren", "(@bob", "@", 5, Match{Text: "bob", Key: "@", Position: 2}, true},
		{"after bracket", "[:smi", ":", 5, Match{Text: "smi", Key: ":", Position: 2}, true},
		{"after tab", "x\t@y", "@", 4, Match{Text: "y", Key: "@", Position: 3}, true},
		{"after newline", "x\n@y", "@", 4, Match{Text: "y", Key: "@", Position: 3}, true},
		{"cursor mid fragment", "hi @world", "@", 6, Match{Text: "wo", Key: "@", Position: 4}, true},
		{"nearest rejected not retried", "@a b@c", "@", 6, Match{}, false},
		{"nearest wins", "@a @b", "@", 5, Match{Text: "b", Key: "@", Position: 4}, true},
		{"no key", "hello", "@", 5, Match{}, false},
		{"key after cursor", "hi @x", "@", 2, Match{}, false},
		{"zero cursor", "@x", "@", 0, Match{}, false},
		{"empty key", "@x", "", 2, Match{}, false},
		{"multi rune key", "hi ::smi", "::", 8, Match{Text: "smi", Key: "::", Position: 5}, true},
		{"key straddles cursor", "hi ::x", "::", 4, Match{}, false},
		{"cursor past end", "@ab", "@", 10, Match{Text: "ab", Key: "@", Position: 1}, true},
		{"runes not bytes", "héllo @wör", "@", 10, Match{Text: "wör", Key: "@", Position: 7}, true},
		{"email", "me@example.com", "@", 14, Match{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Find(tt.text, tt.key, tt.cursor)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindFirstKeyOrder(t *testing.T) {
	m, ok := FindFirst("@xy", []string{"@", "@x"}, 3)
	assert.True(t, ok)
	assert.Equal(t, Match{Text: "xy", Key: "@", Position: 1}, m)

	m, ok = FindFirst("@xy", []string{"@x", "@"}, 3)
	assert.True(t, ok)
	assert.Equal(t, Match{Text: "y", Key: "@x", Position: 2}, m)

	m, ok = FindFirst("see :sm", []string{"@", ":"}, 7)
	assert.True(t, ok)
	assert.Equal(t, ":", m.Key)

	_, ok = FindFirst("plain", []string{"@", ":"}, 5)
	assert.False(t, ok)

	_, ok = FindFirst("@x", nil, 2)
	assert.False(t, ok)
}

func TestMatchBounds(t *testing.T) {
	m := Match{Text: "th", Key: "::", Position: 5}
	assert.Equal(t, 3, m.Start())
	assert.Equal(t, 7, m.End())
}

func TestParseKeys(t *testing.T) {
	assert.Equal(t, []string{"@", ":", "#"}, ParseKeys("  @ :\t# "))
	assert.Empty(t, ParseKeys(""))
}
