package expander

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesField(t *testing.T) {
	_, err := New(newField(KindUnknown, NewLayer()), Options{Loop: NewQueue(1)})
	assert.ErrorIs(t, err, ErrUnsupportedField)

	_, err = New(newField(SingleLine, NewLayer()), Options{})
	assert.ErrorIs(t, err, ErrNoLoop)
}

func TestControllerActivates(t *testing.T) {
	h := newHarness(t, Options{})
	menu := newPopup("menu")
	h.c.OnChange(matchWith(menu))

	h.field.typeText("hello @wo")
	assert.Equal(t, Matched, h.c.State())
	m, ok := h.c.Match()
	require.True(t, ok)
	assert.Equal(t, Match{Text: "wo", Key: "@", Position: 7}, m)

	h.step()
	assert.Equal(t, Active, h.c.State())
	assert.Same(t, menu, h.c.Popup())
	assert.True(t, h.layer.Contains(menu))
	assert.True(t, menu.placed)
	assert.Equal(t, Point{Top: 0, Left: 7}, menu.at)
	assert.Equal(t, []string{"install", "navigate"}, h.listbox.ops())
	assert.Equal(t, 1, h.listbox.calls[1].step)
}

func TestControllerChangeEventCarriesMatch(t *testing.T) {
	h := newHarness(t, Options{Keys: "@ :"})
	var got []*ChangeEvent
	h.c.OnChange(func(e *ChangeEvent) { got = append(got, e) })

	h.field.typeText("hi :smi")
	require.Len(t, got, 1)
	assert.Equal(t, "smi", got[0].Text)
	assert.Equal(t, ":", got[0].Key)
}

func TestControllerFirstProviderByOrderWins(t *testing.T) {
	h := newHarness(t, Options{})
	first, second := newPopup("first"), newPopup("second")

	release := make(chan struct{})
	secondDone := make(chan struct{})
	h.c.OnChange(func(e *ChangeEvent) {
		e.Provide(func(context.Context) (Result, error) {
			<-release
			return Result{Matched: true, Fragment: first}, nil
		})
	})
	h.c.OnChange(func(e *ChangeEvent) {
		e.Provide(func(context.Context) (Result, error) {
			defer close(secondDone)
			return Result{Matched: true, Fragment: second}, nil
		})
	})

	h.field.typeText("@a")
	<-secondDone
	close(release)
	h.step()

	assert.Same(t, first, h.c.Popup())
	assert.False(t, h.layer.Contains(second))
}

func TestControllerSkipsUnmatchedAndFailedProviders(t *testing.T) {
	h := newHarness(t, Options{})
	menu := newPopup("menu")
	h.c.OnChange(func(e *ChangeEvent) {
		e.Provide(func(context.Context) (Result, error) {
			return Result{}, errors.New("backend down")
		})
	})
	h.c.OnChange(func(e *ChangeEvent) {
		e.Provide(func(context.Context) (Result, error) {
			return Result{Matched: false, Fragment: newPopup("ignored")}, nil
		})
	})
	h.c.OnChange(matchWith(menu))

	h.field.typeText("@a")
	h.step()
	assert.Same(t, menu, h.c.Popup())
}

func TestControllerNoMatchedProviderIsIdle(t *testing.T) {
	h := newHarness(t, Options{})
	h.c.OnChange(func(e *ChangeEvent) {
		e.Provide(func(context.Context) (Result, error) { return Result{}, nil })
	})

	h.field.typeText("@a")
	h.step()
	assert.Equal(t, Idle, h.c.State())
	_, ok := h.c.Match()
	assert.False(t, ok)
}

func TestControllerWithoutProvidersStaysIdle(t *testing.T) {
	h := newHarness(t, Options{})
	h.field.typeText("@a")
	assert.Equal(t, Idle, h.c.State())
	h.idle()
}

func TestControllerCanceledChangeShowsNothing(t *testing.T) {
	h := newHarness(t, Options{})
	h.c.OnChange(matchWith(newPopup("menu")))
	h.c.OnChange(func(e *ChangeEvent) { e.Cancel() })

	h.field.typeText("@a")
	assert.Equal(t, Idle, h.c.State())
	h.idle()
}

func TestControllerNoMatchIsIdle(t *testing.T) {
	h := newHarness(t, Options{})
	var calls atomic.Int32
	h.c.OnChange(func(*ChangeEvent) { calls.Add(1) })

	h.field.typeText("a@b")
	assert.Equal(t, Idle, h.c.State())
	assert.Zero(t, calls.Load())
}

func TestControllerDiscardsResolutionAfterEdit(t *testing.T) {
	h := newHarness(t, Options{})
	h.c.OnChange(matchWith(newPopup("menu")))

	h.field.typeText("@a")
	h.waitPosted(1)
	h.field.typeText("@a b")
	assert.Equal(t, Idle, h.c.State())

	h.step()
	assert.Equal(t, Idle, h.c.State())
	assert.Nil(t, h.c.Popup())
	assert.Len(t, h.layer.Nodes(), 1)
}

func TestControllerDiscardsSupersededGeneration(t *testing.T) {
	h := newHarness(t, Options{})
	popups := map[string]*fakePopup{"a": newPopup("a"), "ab": newPopup("ab")}
	release := make(chan struct{})
	h.c.OnChange(func(e *ChangeEvent) {
		text := e.Text
		e.Provide(func(context.Context) (Result, error) {
			if text == "ab" {
				<-release
			}
			return Result{Matched: true, Fragment: popups[text]}, nil
		})
	})

	h.field.typeText("@a")
	h.waitPosted(1)
	h.field.typeText("@ab")

	h.step()
	assert.Equal(t, Matched, h.c.State(), "stale result must not open a popup")

	close(release)
	h.step()
	assert.Same(t, popups["ab"], h.c.Popup())
}

func TestControllerCancelsSupersededProviders(t *testing.T) {
	h := newHarness(t, Options{})
	var ctxs []context.Context
	h.c.OnChange(func(e *ChangeEvent) {
		ctxs = append(ctxs, e.Context())
		e.Provide(func(ctx context.Context) (Result, error) {
			<-ctx.Done()
			return Result{}, ctx.Err()
		})
	})

	h.field.typeText("@a")
	h.field.typeText("@ab")
	require.Len(t, ctxs, 2)
	assert.ErrorIs(t, ctxs[0].Err(), context.Canceled)
	assert.NoError(t, ctxs[1].Err())

	h.field.typeText("done")
	assert.ErrorIs(t, ctxs[1].Err(), context.Canceled)
	h.idle()
}

func TestControllerProviderTimeout(t *testing.T) {
	h := newHarness(t, Options{ProviderTimeout: 20 * time.Millisecond})
	h.c.OnChange(func(e *ChangeEvent) {
		e.Provide(func(ctx context.Context) (Result, error) {
			<-ctx.Done()
			return Result{}, ctx.Err()
		})
	})

	h.field.typeText("@slow")
	assert.Equal(t, Matched, h.c.State())
	h.step()
	assert.Equal(t, Idle, h.c.State())
}

func TestControllerResultsWithinTimeoutShow(t *testing.T) {
	h := newHarness(t, Options{ProviderTimeout: time.Second})
	menu := newPopup("menu")
	h.c.OnChange(matchWith(menu))

	h.field.typeText("@quick")
	h.step()
	assert.Equal(t, Active, h.c.State())
	assert.Same(t, menu, h.c.Popup())
}

func TestJoined(t *testing.T) {
	done := make(chan struct{})
	assert.False(t, joined(done), "unfinished join is a timeout")
	close(done)
	assert.True(t, joined(done), "finished join counts even past the deadline")
}

func TestControllerEscape(t *testing.T) {
	h := newHarness(t, Options{})
	menu := newPopup("menu")
	h.c.OnChange(matchWith(menu))

	h.field.typeText("@a")
	h.step()
	require.Equal(t, Active, h.c.State())

	assert.True(t, h.field.EmitKeyDown(KeyEscape))
	assert.Equal(t, Idle, h.c.State())
	assert.False(t, h.layer.Contains(menu))
	assert.False(t, menu.Listening())
	assert.Equal(t, []string{"install", "navigate", "clear", "uninstall"}, h.listbox.ops())

	assert.False(t, h.field.EmitKeyDown(KeyEscape), "second escape is a no-op")
	assert.Equal(t, Idle, h.c.State())
}

func TestControllerEscapeWhileMatchedDropsResolution(t *testing.T) {
	h := newHarness(t, Options{})
	release := make(chan struct{})
	h.c.OnChange(func(e *ChangeEvent) {
		e.Provide(func(context.Context) (Result, error) {
			<-release
			return Result{Matched: true, Fragment: newPopup("late")}, nil
		})
	})

	h.field.typeText("@a")
	assert.False(t, h.field.EmitKeyDown(KeyEscape))
	assert.Equal(t, Idle, h.c.State())
	close(release)
	h.idle()
}

func TestControllerOtherKeysPassThrough(t *testing.T) {
	h := newHarness(t, Options{})
	h.c.OnChange(matchWith(newPopup("menu")))
	h.field.typeText("@a")
	h.step()

	assert.False(t, h.field.EmitKeyDown("Enter"))
	assert.Equal(t, Active, h.c.State())
}

func TestControllerPasteSuppressesOneInput(t *testing.T) {
	h := newHarness(t, Options{})
	var calls int
	h.c.OnChange(func(e *ChangeEvent) {
		calls++
		matchWith(newPopup("menu"))(e)
	})

	h.field.EmitPaste()
	h.field.typeText("pasted @foo")
	assert.Equal(t, Idle, h.c.State())
	assert.Zero(t, calls)
	h.idle()

	h.field.typeText("pasted @foob")
	assert.Equal(t, 1, calls)
	h.step()
	assert.Equal(t, Active, h.c.State())
}

func TestControllerBlur(t *testing.T) {
	h := newHarness(t, Options{})
	menu := newPopup("menu")
	h.c.OnChange(matchWith(menu))
	h.field.typeText("@a")
	h.step()

	menu.EmitMouseDown()
	h.field.EmitBlur()
	assert.Equal(t, Active, h.c.State(), "blur caused by the popup is ignored once")

	h.field.EmitBlur()
	assert.Equal(t, Idle, h.c.State())
	assert.False(t, h.layer.Contains(menu))
}

func TestControllerUnfocusedFieldDropsResolution(t *testing.T) {
	h := newHarness(t, Options{})
	menu := newPopup("menu")
	h.c.OnChange(matchWith(menu))

	h.field.typeText("@a")
	h.field.focused = false
	h.step()
	assert.Equal(t, Idle, h.c.State())
	assert.False(t, h.layer.Contains(menu))
}

func TestControllerCommit(t *testing.T) {
	h := newHarness(t, Options{})
	menu := newPopup("menu")
	h.c.OnChange(matchWith(menu))

	var values []*ValueEvent
	h.c.OnValue(func(e *ValueEvent) {
		values = append(values, e)
		e.Value = "there"
	})
	var committed []CommittedEvent
	h.c.OnCommitted(func(e CommittedEvent) { committed = append(committed, e) })

	h.field.value = "Hi @th!"
	h.field.Select(6, 6)
	h.field.EmitInput()
	h.step()
	require.Equal(t, Active, h.c.State())

	h.field.focused = false
	menu.EmitCommit("item-1")

	assert.Equal(t, "Hi there !", h.field.Value())
	start, end := h.field.Selection()
	assert.Equal(t, 9, start)
	assert.Equal(t, 9, end)
	assert.True(t, h.field.Focused())
	assert.Equal(t, Idle, h.c.State())
	assert.False(t, h.layer.Contains(menu))

	require.Len(t, values, 1)
	assert.Equal(t, "item-1", values[0].Item)
	assert.Equal(t, "@", values[0].Key)
	require.Len(t, committed, 1)
	assert.Equal(t, CommittedEvent{Field: h.field, Item: "item-1", Key: "@", Value: "there"}, committed[0])
}

func TestControllerCommitDeclined(t *testing.T) {
	tests := []struct {
		name    string
		onValue func(*ValueEvent)
	}{
		{"canceled", func(e *ValueEvent) { e.Value = "x"; e.Cancel() }},
		{"no value", func(*ValueEvent) {}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Options{})
			menu := newPopup("menu")
			h.c.OnChange(matchWith(menu))
			h.c.OnValue(tt.onValue)

			h.field.typeText("@a")
			h.step()
			menu.EmitCommit("item")

			assert.Equal(t, "@a", h.field.Value())
			assert.Equal(t, Active, h.c.State())
		})
	}
}

func TestControllerReactivationReplacesPopup(t *testing.T) {
	h := newHarness(t, Options{})
	popups := []*fakePopup{newPopup("one"), newPopup("two")}
	n := 0
	h.c.OnChange(func(e *ChangeEvent) {
		matchWith(popups[n])(e)
		n++
	})
	h.c.OnValue(func(e *ValueEvent) { e.Value = "x" })

	h.field.typeText("@a")
	h.step()
	require.Same(t, popups[0], h.c.Popup())

	h.field.typeText("@ab")
	assert.Equal(t, Active, h.c.State(), "old popup stays until the new one resolves")
	h.step()

	assert.Same(t, popups[1], h.c.Popup())
	assert.Equal(t, []Node{h.field, popups[1]}, h.layer.Nodes()[1:])
	assert.False(t, popups[0].Listening())

	popups[0].EmitCommit("stale")
	assert.Equal(t, "@ab", h.field.Value())
}

func TestControllerUsesHostContainer(t *testing.T) {
	host := NewLayer()
	h := newHarness(t, Options{Host: host})
	menu := newPopup("menu")
	h.c.OnChange(matchWith(menu))

	h.field.typeText("@a")
	h.step()
	assert.True(t, host.Contains(menu))
	assert.False(t, h.layer.Contains(menu))

	h.c.Deactivate()
	assert.False(t, host.Contains(menu))
}

func TestControllerMeasureFailureDropsMatch(t *testing.T) {
	f := newField(MultiLine, nil)
	q := NewQueue(4)
	c, err := New(f, Options{Keys: "@", Loop: q, Host: NewLayer()})
	require.NoError(t, err)
	c.OnChange(matchWith(newPopup("menu")))

	f.typeText("@a")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.True(t, q.Step(ctx))
	assert.Equal(t, Idle, c.State())
}

func TestControllerSetKeys(t *testing.T) {
	h := newHarness(t, Options{Keys: "@"})
	var keys []string
	h.c.OnChange(func(e *ChangeEvent) { keys = append(keys, e.Key) })

	h.field.typeText(":smile")
	assert.Empty(t, keys)

	h.c.SetKeys(": #")
	assert.Equal(t, []string{":", "#"}, h.c.Keys())
	h.field.typeText(":smile")
	assert.Equal(t, []string{":"}, keys)
}

func TestControllerDestroy(t *testing.T) {
	h := newHarness(t, Options{})
	var calls int
	h.c.OnChange(func(*ChangeEvent) { calls++ })

	h.c.Destroy()
	h.c.Destroy()
	assert.Equal(t, Destroyed, h.c.State())
	assert.Zero(t, h.field.listeners.len())

	h.field.typeText("@a")
	assert.Zero(t, calls)
}

func TestControllerDestroyDropsPendingResolution(t *testing.T) {
	h := newHarness(t, Options{})
	menu := newPopup("menu")
	h.c.OnChange(matchWith(menu))

	h.field.typeText("@a")
	h.waitPosted(1)
	h.c.Destroy()
	h.step()
	assert.False(t, h.layer.Contains(menu))
}
