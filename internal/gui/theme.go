package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// xtalTheme darkens the primary colour and shrinks text so the label grid
// fits next to the Coot window.
type xtalTheme struct{}

func (t *xtalTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameButton:
		return color.NRGBA{R: 0x2E, G: 0x5E, B: 0x8C, A: 0xFF}
	case theme.ColorNameSuccess:
		return color.NRGBA{R: 0x3C, G: 0x9A, B: 0x5F, A: 0xFF}
	case theme.ColorNameError:
		return color.NRGBA{R: 0xC6, G: 0x28, B: 0x28, A: 0xFF}
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *xtalTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *xtalTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *xtalTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameText:
		return 12
	case theme.SizeNameHeadingText:
		return 16
	default:
		return theme.DefaultTheme().Size(name)
	}
}
