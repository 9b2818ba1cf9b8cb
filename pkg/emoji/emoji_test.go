package emoji

import (
	"context"
	"testing"

	"github.com/bastiangx/wordexpand/pkg/expander"
	"github.com/bastiangx/wordexpand/pkg/suggest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name  string
		glyph string
		ok    bool
	}{
		{"smile", "\U0001F604", true},
		{"SMILE", "\U0001F604", true},
		{"+1", "\U0001F44D", true},
		{"sunny", "\u2600\ufe0f", true},
		{"notanemoji", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			glyph, ok := Lookup(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.glyph, glyph)
		})
	}
}

func TestBuiltinIsComplete(t *testing.T) {
	for _, name := range Builtin {
		_, ok := Lookup(name)
		assert.True(t, ok, name)
	}
	assert.Equal(t, len(Builtin), NewIndex().Len())
}

func TestIndexAdd(t *testing.T) {
	ix := NewIndex("smile", "bogus")
	assert.Equal(t, 1, ix.Len())

	assert.True(t, ix.Add(":smirk:"))
	assert.True(t, ix.Add("smile"))
	assert.False(t, ix.Add("bogus"))
	assert.Equal(t, 2, ix.Len())
}

func TestSuggest(t *testing.T) {
	ix := NewIndex()
	ctx := context.Background()

	entries, err := ix.Suggest(ctx, "sm", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, suggest.Entry{Label: ":smile:", Value: "\U0001F604", Detail: "\U0001F604"}, entries[0])
	assert.Equal(t, ":smirk:", entries[1].Label)
	assert.Equal(t, ":smiley:", entries[2].Label)

	entries, err = ix.Suggest(ctx, "SU", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{":sunny:", ":sunflower:"}, []string{entries[0].Label, entries[1].Label})

	entries, err = ix.Suggest(ctx, "", 5)
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = ix.Suggest(ctx, "qqq", 5)
	require.NoError(t, err)
	assert.Empty(t, entries)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = ix.Suggest(canceled, "sm", 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProviderInsertsGlyph(t *testing.T) {
	p := NewProvider(NewIndex(), func(string, []suggest.Entry) expander.Popup { return nil }, ":", 8)
	assert.True(t, p.Handles(":"))
	assert.False(t, p.Handles("@"))

	entries, err := NewIndex().Suggest(context.Background(), "tada", 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := &expander.ValueEvent{Item: entries[0], Key: ":"}
	p.Value(e)
	assert.Equal(t, "\U0001F389", e.Value)

	opts := ProviderOptions(":", 4)
	assert.False(t, opts.Filter)
	assert.False(t, opts.KeepKey)
}
