package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts
type KeyMap struct {
	Bidirectional key.Binding
	AltShapes     key.Binding
	LinkTexts     key.Binding
	MainValues    key.Binding
	InOutValues   key.Binding
	Rotate        key.Binding
	LinkMode      key.Binding
	DividerLeft   key.Binding
	DividerRight  key.Binding
	Fullscreen    key.Binding
	Focus         key.Binding
	ZoomIn        key.Binding
	ZoomOut       key.Binding
	Help          key.Binding
	Quit          key.Binding
}

var DefaultKeyMap = KeyMap{
	Bidirectional: key.NewBinding(
		key.WithKeys("b"),
		key.WithHelp("b", "bidirectional"),
	),
	AltShapes: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "alt shapes"),
	),
	LinkTexts: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "link texts"),
	),
	MainValues: key.NewBinding(
		key.WithKeys("v"),
		key.WithHelp("v", "main values"),
	),
	InOutValues: key.NewBinding(
		key.WithKeys("i"),
		key.WithHelp("i", "in/out values"),
	),
	Rotate: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "rotate 3D"),
	),
	LinkMode: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "curved/offset"),
	),
	DividerLeft: key.NewBinding(
		key.WithKeys("<", ","),
		key.WithHelp("<", "divider left"),
	),
	DividerRight: key.NewBinding(
		key.WithKeys(">", "."),
		key.WithHelp(">", "divider right"),
	),
	Fullscreen: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "fullscreen"),
	),
	Focus: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "focus view"),
	),
	ZoomIn: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "zoom in"),
	),
	ZoomOut: key.NewBinding(
		key.WithKeys("-", "_"),
		key.WithHelp("-", "zoom out"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "q"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Bidirectional, k.Rotate, k.Fullscreen, k.Focus, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Bidirectional, k.AltShapes, k.LinkMode, k.Rotate},
		{k.LinkTexts, k.MainValues, k.InOutValues},
		{k.DividerLeft, k.DividerRight, k.Fullscreen, k.Focus},
		{k.ZoomIn, k.ZoomOut, k.Help, k.Quit},
	}
}
