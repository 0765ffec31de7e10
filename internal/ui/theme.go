// Package ui holds the Fyne look-and-feel and the reusable widgets shared
// by the two desktop front-ends (cmd/gui-send, cmd/gui-receive).
package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// CustomTheme layers lanxfer's palette over Fyne's default theme.
type CustomTheme struct {
	fyne.Theme
}

// NewCustomTheme builds the theme used by both front-ends.
func NewCustomTheme() *CustomTheme {
	return &CustomTheme{Theme: theme.DefaultTheme()}
}

func (t *CustomTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return color.RGBA{R: 63, G: 81, B: 181, A: 255} // indigo, the lanxfer accent
	case theme.ColorNameSuccess:
		return color.RGBA{R: 0, G: 150, B: 136, A: 255} // teal, used for "received"/"connected"
	case theme.ColorNameWarning:
		return color.RGBA{R: 255, G: 193, B: 7, A: 255} // amber, used for conflict prompts
	case theme.ColorNameError:
		return color.RGBA{R: 211, G: 47, B: 47, A: 255}
	case theme.ColorNameBackground:
		return color.RGBA{R: 250, G: 250, B: 252, A: 255}
	case theme.ColorNameForeground:
		return color.RGBA{R: 20, G: 20, B: 24, A: 255}
	default:
		return t.Theme.Color(name, variant)
	}
}

func (t *CustomTheme) Font(style fyne.TextStyle) fyne.Resource {
	return t.Theme.Font(style)
}

func (t *CustomTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return t.Theme.Icon(name)
}

func (t *CustomTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNamePadding:
		return 6
	case theme.SizeNameScrollBar:
		return 14
	case theme.SizeNameScrollBarSmall:
		return 6
	case theme.SizeNameSeparatorThickness:
		return 2
	case theme.SizeNameInputBorder:
		return 2
	case theme.SizeNameInputRadius:
		return 6
	default:
		return t.Theme.Size(name)
	}
}
