package event

import "fmt"

// Kind identifies an event variant.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindCreateWindow
	KindWindowCreated
	KindWindowResized
	KindWindowMoved
	KindWindowCloseRequested
	KindWindowClosed
	KindCursorMoved
	KindCursorEntered
	KindCursorLeft
	KindReceivedCharacter
	KindWindowFocused
	KindWindowScaleFactorChanged
	KindWindowBackendScaleFactorChanged
	KindFileDragAndDrop
	KindRequestRedraw

	kindCount
)

var kindNames = [kindCount]string{
	KindUnknown:                         "Unknown",
	KindCreateWindow:                    "CreateWindow",
	KindWindowCreated:                   "WindowCreated",
	KindWindowResized:                   "WindowResized",
	KindWindowMoved:                     "WindowMoved",
	KindWindowCloseRequested:            "WindowCloseRequested",
	KindWindowClosed:                    "WindowClosed",
	KindCursorMoved:                     "CursorMoved",
	KindCursorEntered:                   "CursorEntered",
	KindCursorLeft:                      "CursorLeft",
	KindReceivedCharacter:               "ReceivedCharacter",
	KindWindowFocused:                   "WindowFocused",
	KindWindowScaleFactorChanged:        "WindowScaleFactorChanged",
	KindWindowBackendScaleFactorChanged: "WindowBackendScaleFactorChanged",
	KindFileDragAndDrop:                 "FileDragAndDrop",
	KindRequestRedraw:                   "RequestRedraw",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Scoped reports whether events of this kind carry a window identity.
func (k Kind) Scoped() bool {
	return k != KindRequestRedraw && k != KindUnknown && k < kindCount
}

// Kinds returns every known kind in declaration order.
func Kinds() []Kind {
	ks := make([]Kind, 0, kindCount-1)
	for k := KindCreateWindow; k < kindCount; k++ {
		ks = append(ks, k)
	}
	return ks
}

// ParseKind returns the kind with the given variant name.
func ParseKind(s string) (Kind, error) {
	for k := KindCreateWindow; k < kindCount; k++ {
		if kindNames[k] == s {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown event kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
