package tui

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/1broseidon/winstate/internal/event"
)

// DescriptorForm edits a window descriptor. Numeric fields are held as
// strings while the form is open.
type DescriptorForm struct {
	base event.Descriptor

	fTitle       string
	fWidth       string
	fHeight      string
	fMode        string
	fResizable   bool
	fDecorations bool
	fScale       string
	fTransparent bool
}

// NewDescriptorForm pre-fills the form from base.
func NewDescriptorForm(base event.Descriptor) *DescriptorForm {
	f := &DescriptorForm{
		base:         base.Clone(),
		fTitle:       base.Title,
		fWidth:       strconv.FormatFloat(base.Width, 'g', -1, 64),
		fHeight:      strconv.FormatFloat(base.Height, 'g', -1, 64),
		fMode:        string(base.Mode),
		fResizable:   base.Resizable,
		fDecorations: base.Decorations,
		fTransparent: base.Transparent,
	}
	if base.ScaleFactorOverride != nil {
		f.fScale = strconv.FormatFloat(*base.ScaleFactorOverride, 'g', -1, 64)
	}
	return f
}

func positive(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 {
		return fmt.Errorf("must be a positive number")
	}
	return nil
}

func optionalPositive(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return positive(s)
}

// Form builds the huh form bound to f.
func (f *DescriptorForm) Form() *huh.Form {
	modes := make([]huh.Option[string], 0, len(event.Modes()))
	for _, m := range event.Modes() {
		modes = append(modes, huh.NewOption(string(m), string(m)))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("title").
				Title("Title").
				Value(&f.fTitle),

			huh.NewInput().
				Key("width").
				Title("Width").
				Description("Logical width").
				Validate(positive).
				Value(&f.fWidth),

			huh.NewInput().
				Key("height").
				Title("Height").
				Description("Logical height").
				Validate(positive).
				Value(&f.fHeight),

			huh.NewSelect[string]().
				Key("mode").
				Title("Mode").
				Options(modes...).
				Value(&f.fMode),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Key("resizable").
				Title("Resizable").
				Value(&f.fResizable),

			huh.NewConfirm().
				Key("decorations").
				Title("Decorations").
				Description("Let the window manager draw a frame").
				Value(&f.fDecorations),

			huh.NewConfirm().
				Key("transparent").
				Title("Transparent").
				Value(&f.fTransparent),

			huh.NewInput().
				Key("scale_factor_override").
				Title("Scale Factor Override").
				Description("Empty uses the backend scale factor").
				Validate(optionalPositive).
				Value(&f.fScale),
		),
	).WithShowHelp(true).WithShowErrors(true)
}

// Descriptor returns the edited descriptor.
func (f *DescriptorForm) Descriptor() (event.Descriptor, error) {
	d := f.base.Clone()
	d.Title = f.fTitle
	d.Mode = event.WindowMode(f.fMode)
	d.Resizable = f.fResizable
	d.Decorations = f.fDecorations
	d.Transparent = f.fTransparent

	var err error
	if d.Width, err = strconv.ParseFloat(strings.TrimSpace(f.fWidth), 64); err != nil {
		return d, fmt.Errorf("width: %w", err)
	}
	if d.Height, err = strconv.ParseFloat(strings.TrimSpace(f.fHeight), 64); err != nil {
		return d, fmt.Errorf("height: %w", err)
	}
	d.ScaleFactorOverride = nil
	if s := strings.TrimSpace(f.fScale); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return d, fmt.Errorf("scale_factor_override: %w", err)
		}
		d.ScaleFactorOverride = &v
	}
	return d, d.Validate()
}

// EditDescriptor runs the form on the terminal and returns the result.
func EditDescriptor(base event.Descriptor) (event.Descriptor, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return base, fmt.Errorf("interactive create requires a terminal")
	}
	f := NewDescriptorForm(base)
	if err := f.Form().Run(); err != nil {
		return base, err
	}
	return f.Descriptor()
}
