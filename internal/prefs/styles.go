package prefs

import (
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

// Ellipsis marks truncated text.
const Ellipsis = "..."

// Styles holds the lipgloss styles for one theme and density.
type Styles struct {
	App          lipgloss.Style
	Header       lipgloss.Style
	Item         lipgloss.Style
	ItemSelected lipgloss.Style
	URL          lipgloss.Style
	Tag          lipgloss.Style
	Directory    lipgloss.Style
	Date         lipgloss.Style
	Archived     lipgloss.Style
	Dialog       lipgloss.Style
	Danger       lipgloss.Style
	Status       lipgloss.Style
	Empty        lipgloss.Style
	HintKey      lipgloss.Style // key portion of hints (e.g., "enter", "j/k")
	HintDesc     lipgloss.Style // description portion of hints (e.g., "confirm", "move")

	Spacing Spacing
}

// Spacing controls how much room a list row takes.
type Spacing struct {
	ShowURL bool // second line with the URL under the title
	RowGap  int  // blank lines between rows
	PadX    int  // horizontal padding of the app frame
}

type palette struct {
	primary, subtle, accent, border, danger, selectedFg lipgloss.Color
}

// Grayscale with a single desaturated teal accent.
var palettes = map[Theme]palette{
	ThemeLight: {
		primary:    "#303030",
		subtle:     "#888888",
		accent:     "#4A7070",
		border:     "#888888",
		danger:     "#A04040",
		selectedFg: "#FAFAFA",
	},
	ThemeDark: {
		primary:    "#C0C0C0",
		subtle:     "#606060",
		accent:     "#5F8787",
		border:     "#505050",
		danger:     "#D07070",
		selectedFg: "#1A1A1A",
	},
}

// SpacingFor returns the row spacing of a density. Unknown values get the
// default spacing.
func SpacingFor(d Density) Spacing {
	switch d {
	case DensityCompact:
		return Spacing{ShowURL: false, RowGap: 0, PadX: 1}
	case DensityGenerous:
		return Spacing{ShowURL: true, RowGap: 1, PadX: 3}
	default:
		return Spacing{ShowURL: true, RowGap: 0, PadX: 2}
	}
}

// NewStyles builds the styles for p.
func NewStyles(p Preferences) Styles {
	c, ok := palettes[p.Theme]
	if !ok {
		c = palettes[ThemeLight]
	}
	sp := SpacingFor(p.Density)

	return Styles{
		App: lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(sp.PadX).
			PaddingRight(sp.PadX),

		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(c.accent).
			MarginBottom(1),

		Item: lipgloss.NewStyle().
			Foreground(c.primary).
			PaddingLeft(1),

		ItemSelected: lipgloss.NewStyle().
			PaddingLeft(1).
			Background(c.accent).
			Foreground(c.selectedFg),

		URL: lipgloss.NewStyle().
			Foreground(c.subtle).
			Italic(true),

		Tag: lipgloss.NewStyle().
			Foreground(c.accent),

		Directory: lipgloss.NewStyle().
			Foreground(c.primary).
			Bold(true),

		Date: lipgloss.NewStyle().
			Foreground(c.subtle),

		Archived: lipgloss.NewStyle().
			Foreground(c.subtle).
			Strikethrough(true),

		Dialog: lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(c.accent).
			Padding(1, 2),

		Danger: lipgloss.NewStyle().
			Foreground(c.danger).
			Bold(true),

		Status: lipgloss.NewStyle().
			Foreground(c.subtle),

		Empty: lipgloss.NewStyle().
			Foreground(c.subtle),

		HintKey: lipgloss.NewStyle().
			Foreground(c.accent),

		HintDesc: lipgloss.NewStyle().
			Foreground(c.subtle),

		Spacing: sp,
	}
}

// Truncate shortens text to maxWidth runes, ending with Ellipsis when cut.
func Truncate(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= maxWidth {
		return text
	}

	ellipsisLen := utf8.RuneCountInString(Ellipsis)
	if maxWidth <= ellipsisLen {
		return Ellipsis[:maxWidth]
	}
	runes := []rune(text)
	return string(runes[:maxWidth-ellipsisLen]) + Ellipsis
}
