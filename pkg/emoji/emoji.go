// Package emoji completes :shortcode: fragments to emoji glyphs using the
// GitHub emoji table.
package emoji

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/bastiangx/wordexpand/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
	"github.com/yuin/goldmark-emoji/definition"
)

// Builtin lists the shortcodes indexed by default. The full GitHub table
// is large and mostly noise in a completion popup; extra names can be
// added through Index.Add.
var Builtin = []string{
	"smile", "smiley", "grin", "grinning", "joy", "rofl", "laughing", "wink",
	"blush", "heart_eyes", "kissing_heart", "thinking", "neutral_face",
	"expressionless", "unamused", "roll_eyes", "grimacing", "relieved",
	"pensive", "sleepy", "sleeping", "mask", "sunglasses", "nerd_face",
	"confused", "worried", "frowning_face", "cry", "sob", "scream", "angry",
	"rage", "skull", "poop", "clown_face", "ghost", "alien", "robot",
	"smirk", "sweat_smile", "upside_down_face", "melting_face", "hugs",
	"shushing_face", "zipper_mouth_face", "nauseated_face", "sneezing_face",
	"hot_face", "cold_face", "exploding_head", "cowboy_hat_face",
	"partying_face", "money_mouth_face", "innocent",
	"see_no_evil", "hear_no_evil", "speak_no_evil",
	"wave", "raised_hand", "ok_hand", "v", "crossed_fingers", "point_up",
	"point_down", "point_left", "point_right", "thumbsup", "thumbsdown",
	"+1", "-1", "fist", "clap", "raised_hands", "pray", "handshake",
	"muscle", "eyes", "brain",
	"heart", "orange_heart", "yellow_heart", "green_heart", "blue_heart",
	"purple_heart", "black_heart", "broken_heart", "sparkling_heart",
	"100", "boom", "fire", "sparkles", "star", "star2", "zap", "snowflake",
	"sunny", "cloud", "umbrella", "rainbow", "ocean", "earth_americas",
	"moon", "rocket", "airplane", "car", "bike", "ship",
	"coffee", "tea", "beer", "beers", "wine_glass", "pizza", "hamburger",
	"fries", "taco", "cake", "cookie", "apple", "banana", "watermelon",
	"strawberry", "cherries",
	"tada", "confetti_ball", "balloon", "gift", "trophy", "medal_sports",
	"soccer", "basketball", "football", "tennis", "video_game", "dart",
	"game_die", "bell", "memo", "pencil2", "book", "books", "bookmark",
	"computer", "keyboard", "phone", "iphone", "email", "envelope",
	"calendar", "clock1", "hourglass", "alarm_clock", "lock", "unlock",
	"key", "hammer", "wrench", "gear", "link", "paperclip", "scissors",
	"bug", "package",
	"warning", "no_entry", "x", "white_check_mark", "heavy_check_mark",
	"question", "exclamation", "bangbang", "recycle", "construction",
	"rotating_light", "checkered_flag", "triangular_flag_on_post",
	"dog", "cat", "mouse", "fox_face", "bear", "panda_face", "koala",
	"tiger", "lion", "cow", "pig", "frog", "monkey", "chicken", "penguin",
	"bird", "owl", "bee", "butterfly", "snail", "turtle", "snake",
	"octopus", "fish", "whale", "dolphin", "unicorn",
	"evergreen_tree", "deciduous_tree", "palm_tree", "cactus", "seedling",
	"herb", "four_leaf_clover", "rose", "sunflower", "tulip", "mushroom",
}

var github = sync.OnceValue(func() definition.Emojis { return definition.Github() })

// Lookup returns the glyph for a GitHub shortcode.
func Lookup(shortcode string) (string, bool) {
	e, ok := github().Get(strings.ToLower(shortcode))
	if !ok || !e.IsUnicode() {
		return "", false
	}
	return string(e.Unicode), true
}

// Index is a prefix index of shortcodes. It implements suggest.Source.
type Index struct {
	mu   sync.RWMutex
	trie *patricia.Trie
	size int
}

var _ suggest.Source = (*Index)(nil)

// NewIndex indexes names, or Builtin when names is empty.
func NewIndex(names ...string) *Index {
	ix := &Index{trie: patricia.NewTrie()}
	if len(names) == 0 {
		names = Builtin
	}
	for _, n := range names {
		if !ix.Add(n) {
			log.Warnf("Unknown emoji shortcode %q", n)
		}
	}
	return ix
}

// Add indexes shortcode and reports whether it names a known emoji.
func (ix *Index) Add(shortcode string) bool {
	name := strings.ToLower(strings.Trim(shortcode, ":"))
	glyph, ok := Lookup(name)
	if !ok {
		return false
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.trie.Insert(patricia.Prefix(name), glyph) {
		ix.size++
	}
	return true
}

// Len returns the number of indexed shortcodes.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.size
}

// Suggest returns shortcodes starting with prefix, shortest first. Each
// entry's Value is the glyph.
func (ix *Index) Suggest(ctx context.Context, prefix string, limit int) ([]suggest.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix = strings.ToLower(prefix)
	if prefix == "" {
		return nil, nil
	}

	var entries []suggest.Entry
	ix.mu.RLock()
	err := ix.trie.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, item patricia.Item) error {
		glyph := item.(string)
		entries = append(entries, suggest.Entry{
			Label:  ":" + string(p) + ":",
			Value:  glyph,
			Detail: glyph,
		})
		return nil
	})
	ix.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Label, entries[j].Label
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// ProviderOptions returns provider settings suited to shortcodes: the
// key is dropped on commit and fragments are not word-filtered.
func ProviderOptions(key string, limit int) suggest.ProviderOptions {
	return suggest.ProviderOptions{
		Keys:      key,
		Limit:     limit,
		MinPrefix: 1,
		MaxPrefix: 32,
	}
}

// NewProvider returns a suggest.Provider backed by ix.
func NewProvider(ix *Index, render suggest.RenderFunc, key string, limit int) *suggest.Provider {
	return suggest.NewProvider(ix, render, ProviderOptions(key, limit))
}
