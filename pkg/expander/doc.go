/*
Package expander implements inline text expansion for text fields.

While the user types, a Controller looks for an activation key such as
"@" or ":" at the start of the word under the caret. When one is found it
announces a ChangeEvent; providers answer with Resolvers that run off the
event loop and may return a Popup. The first matched popup, in provider
order, is attached next to the field and positioned at the caret:

	c, err := expander.New(field, expander.Options{Keys: "@ :", Loop: loop})
	c.OnChange(func(e *expander.ChangeEvent) {
		e.Provide(func(ctx context.Context) (expander.Result, error) {
			return expander.Result{Matched: true, Fragment: menuFor(e.Text)}, nil
		})
	})
	c.OnValue(func(e *expander.ValueEvent) {
		e.Value = e.Item.(string)
	})

Committing an item replaces the key and fragment with the supplied value
followed by a space.

# Caret geometry

Text fields do not expose where a character is drawn, so Measure builds
an offscreen Mirror of the field with the same box and font metrics, splits
the text around a marker at the requested offset, and reads the marker's
position. The mirror is cached on the field through its Anchor and removed
a few seconds after its last use.

# Hosts

Toolkits plug in by implementing Field (embedding Anchor) and Container,
reporting user input through the Anchor's Emit methods, and providing a
Loop that runs functions on the UI goroutine.
*/
package expander
