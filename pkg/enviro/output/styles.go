package output

import "github.com/charmbracelet/lipgloss"

// Colors from the ANSI 256-color palette.
const (
	ColorPrimary = lipgloss.Color("39")
	ColorSuccess = lipgloss.Color("42")
	ColorWarning = lipgloss.Color("214")
	ColorDanger  = lipgloss.Color("196")
	ColorMuted   = lipgloss.Color("245")
)

// Box styles.
var (
	// HeaderBox frames the summary line above a listing.
	HeaderBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1).
			MarginBottom(1)

	// FooterBox frames totals and hints.
	FooterBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1).
			MarginTop(1)
)

// Text styles.
var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	LabelStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorDanger)
	MutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	NameStyle    = lipgloss.NewStyle().Bold(true)

	// DeletedStyle strikes through entries that will be removed.
	DeletedStyle = lipgloss.NewStyle().Strikethrough(true).Foreground(ColorMuted)

	// CorruptedStyle marks values that reference missing paths.
	CorruptedStyle = lipgloss.NewStyle().Foreground(ColorDanger).Underline(true)
)

// TableHeaderStyle is used for column headers.
var TableHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorMuted).
	PaddingRight(2)

// stateMarkers prefix each row with a one-character edit marker.
var stateMarkers = map[string]string{
	"unchanged": " ",
	"added":     "+",
	"modified":  "~",
	"deleted":   "-",
}

// stateStyles colors the edit marker.
var stateStyles = map[string]lipgloss.Style{
	"unchanged": MutedStyle,
	"added":     SuccessStyle,
	"modified":  WarningStyle,
	"deleted":   ErrorStyle,
}
