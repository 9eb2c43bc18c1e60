package chat

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Palette shared by the chat styles.
var (
	colorPrimary     = lipgloss.Color("#8BC34A") // lime green
	colorDestructive = lipgloss.Color("#e53935")
	colorInfo        = lipgloss.Color("#2196F3")
	colorMuted       = lipgloss.Color("#7a8599")
)

// Renderer writes session output. On a color terminal assistant replies
// go through glamour and system lines are styled with lipgloss; anywhere
// else output is plain text so transcripts piped to a file stay readable.
type Renderer struct {
	out    io.Writer
	styled bool
	md     *glamour.TermRenderer

	headerStyle lipgloss.Style
	promptStyle lipgloss.Style
	replyStyle  lipgloss.Style
	mutedStyle  lipgloss.Style
	errorStyle  lipgloss.Style
	okStyle     lipgloss.Style
}

// NewRenderer returns a renderer for out. Styling is used only when enable
// is set, out is a terminal and the terminal supports color.
func NewRenderer(out io.Writer, enable bool) *Renderer {
	r := &Renderer{out: out}
	if enable && isColorTerminal(out) {
		md, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
		if err == nil {
			r.styled = true
			r.md = md
		}
	}

	r.headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	r.promptStyle = lipgloss.NewStyle().Bold(true).Foreground(colorInfo)
	r.replyStyle = lipgloss.NewStyle().
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(colorPrimary).
		PaddingLeft(1)
	r.mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	r.errorStyle = lipgloss.NewStyle().Foreground(colorDestructive)
	r.okStyle = lipgloss.NewStyle().Foreground(colorPrimary)
	return r
}

func isColorTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false
	}
	return termenv.NewOutput(f).Profile != termenv.Ascii
}

// Styled reports whether output is decorated.
func (r *Renderer) Styled() bool { return r.styled }

// Banner prints the session header.
func (r *Renderer) Banner(phaseName, substep, label string) {
	if substep == "" {
		substep = "none"
	}
	lines := []string{
		"SPACER: research writing mentor",
		fmt.Sprintf("Phase: %s | Sub-step: %s", phaseName, substep),
		"Backend: " + label,
		"Commands: /status /phase /next /bib /supply /constitute /review /delegate /tasks /save /quit",
	}
	if !r.styled {
		fmt.Fprintln(r.out, strings.Join(lines, "\n"))
		fmt.Fprintln(r.out)
		return
	}
	fmt.Fprintln(r.out, r.headerStyle.Render(lines[0]))
	for _, l := range lines[1:] {
		fmt.Fprintln(r.out, r.mutedStyle.Render(l))
	}
	fmt.Fprintln(r.out)
}

// Prompt returns the input prompt string.
func (r *Renderer) Prompt() string {
	if r.styled {
		return r.promptStyle.Render("You:") + " "
	}
	return "You: "
}

// Assistant prints a model reply.
func (r *Renderer) Assistant(text string) {
	if !r.styled {
		fmt.Fprintf(r.out, "\nSPACER: %s\n\n", text)
		return
	}
	body := text
	if rendered, err := r.md.Render(text); err == nil {
		body = strings.TrimRight(rendered, "\n")
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, r.replyStyle.Render(body))
	fmt.Fprintln(r.out)
}

// System prints command output.
func (r *Renderer) System(text string) {
	fmt.Fprintln(r.out, text)
}

// Notice prints a dimmed status line.
func (r *Renderer) Notice(text string) {
	if r.styled {
		text = r.mutedStyle.Render(text)
	}
	fmt.Fprintln(r.out, text)
}

// Success prints a confirmation line.
func (r *Renderer) Success(text string) {
	if r.styled {
		text = r.okStyle.Render(text)
	}
	fmt.Fprintln(r.out, text)
}

// Error prints an inline error line.
func (r *Renderer) Error(text string) {
	if r.styled {
		text = r.errorStyle.Render(text)
	}
	fmt.Fprintln(r.out, text)
}
