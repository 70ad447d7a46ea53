package event

// FileDragAndDrop reports a drag-and-drop step on a window. Action is one of
// DroppedFile, HoveredFile or HoveredFileCancelled.
type FileDragAndDrop struct {
	ID     WindowID
	Action DragDrop
}

// DragDrop is the closed set of drag-and-drop actions.
type DragDrop interface {
	dragDrop() string
}

// DroppedFile is sent when a file is dropped on the window.
type DroppedFile struct {
	Path string
}

// HoveredFile is sent when a file is dragged over the window.
type HoveredFile struct {
	Path string
}

// HoveredFileCancelled is sent when a hovered file leaves the window without
// being dropped.
type HoveredFileCancelled struct{}

func (DroppedFile) dragDrop() string          { return dragDropped }
func (HoveredFile) dragDrop() string          { return dragHovered }
func (HoveredFileCancelled) dragDrop() string { return dragCancelled }

const (
	dragDropped   = "dropped"
	dragHovered   = "hovered"
	dragCancelled = "cancelled"
)

// Dropped builds a DroppedFile event. The path is passed through unmodified.
func Dropped(id WindowID, path string) FileDragAndDrop {
	return FileDragAndDrop{ID: id, Action: DroppedFile{Path: path}}
}

// Hovered builds a HoveredFile event.
func Hovered(id WindowID, path string) FileDragAndDrop {
	return FileDragAndDrop{ID: id, Action: HoveredFile{Path: path}}
}

// HoverCancelled builds a HoveredFileCancelled event.
func HoverCancelled(id WindowID) FileDragAndDrop {
	return FileDragAndDrop{ID: id, Action: HoveredFileCancelled{}}
}

// ActionName returns "dropped", "hovered" or "cancelled".
func (e FileDragAndDrop) ActionName() string {
	if e.Action == nil {
		return ""
	}
	return e.Action.dragDrop()
}

// Path returns the file path for dropped and hovered actions.
func (e FileDragAndDrop) Path() (string, bool) {
	switch a := e.Action.(type) {
	case DroppedFile:
		return a.Path, true
	case HoveredFile:
		return a.Path, true
	}
	return "", false
}
