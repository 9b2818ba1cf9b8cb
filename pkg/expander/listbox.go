package expander

import "sync"

// Popup is the suggestion menu a provider renders. Popups are attached to
// a Container as Nodes, so they should be pointer types.
type Popup interface {
	// Place moves the popup to a position relative to the field.
	Place(at Point)
	// Listen subscribes to the popup's commit and mousedown notifications.
	Listen(h PopupHandlers) (stop func())
}

// PopupHandlers receive popup notifications.
type PopupHandlers struct {
	Commit    func(item any)
	MouseDown func()
}

// Listbox drives selection inside a popup.
type Listbox interface {
	Install(f Field, p Popup)
	Uninstall(f Field, p Popup)
	ClearSelection(f Field, p Popup)
	// Navigate moves the selection by step items.
	Navigate(f Field, p Popup, step int)
}

type nopListbox struct{}

func (nopListbox) Install(Field, Popup) {}
func (nopListbox) Uninstall(Field, Popup) {}
func (nopListbox) ClearSelection(Field, Popup) {}
func (nopListbox) Navigate(Field, Popup, int) {}

// PopupEmitter implements Listen for popups that embed it.
type PopupEmitter struct {
	commit    listeners[any]
	mouseDown listeners[struct{}]
}

func (e *PopupEmitter) Listen(h PopupHandlers) func() {
	var stops []func()
	if h.Commit != nil {
		stops = append(stops, e.commit.add(h.Commit))
	}
	if h.MouseDown != nil {
		fn := h.MouseDown
		stops = append(stops, e.mouseDown.add(func(struct{}) { fn() }))
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			for _, stop := range stops {
				stop()
			}
		})
	}
}

// EmitCommit notifies listeners that item was chosen.
func (e *PopupEmitter) EmitCommit(item any) {
	e.commit.emit(item)
}

// EmitMouseDown notifies listeners of a press inside the popup.
func (e *PopupEmitter) EmitMouseDown() {
	e.mouseDown.emit(struct{}{})
}

// Listening reports whether anyone listens for commits.
func (e *PopupEmitter) Listening() bool {
	return e.commit.len() > 0
}
