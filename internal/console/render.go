// Package console is a terminal front end for the demystifier. It renders
// workspace snapshots and turns typed lines into workspace actions.
package console

import (
	"fmt"
	"io"
	"strings"

	"demystifier-backend/internal/app"
	"demystifier-backend/internal/model"
	"demystifier-backend/internal/transcript"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const wordWrap = 80

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	speakerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
)

// Renderer writes to a terminal or, with tty unset, to plain output.
type Renderer struct {
	out      io.Writer
	tty      bool
	markdown *glamour.TermRenderer
}

func NewRenderer(out io.Writer, theme app.Theme, tty bool) *Renderer {
	r := &Renderer{out: out, tty: tty}
	r.SetTheme(theme)
	return r
}

// SetTheme switches the markdown style. Plain output ignores the theme.
func (r *Renderer) SetTheme(theme app.Theme) {
	style := "notty"
	if r.tty {
		style = string(theme)
	}

	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		// fall back to raw text
		md = nil
	}
	r.markdown = md
}

func (r *Renderer) renderMarkdown(content string) string {
	if r.markdown == nil {
		return content
	}
	rendered, err := r.markdown.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

func (r *Renderer) Error(msg string) {
	fmt.Fprintln(r.out, errorStyle.Render(msg))
}

func (r *Renderer) Info(msg string) {
	fmt.Fprintln(r.out, infoStyle.Render(msg))
}

// Raw writes streamed reply text as it arrives.
func (r *Renderer) Raw(text string) {
	fmt.Fprint(r.out, text)
}

func (r *Renderer) Analysis(result *model.AnalysisResult) {
	fmt.Fprint(r.out, r.renderMarkdown(analysisMarkdown(result)))
}

func (r *Renderer) Transcript(entries []transcript.Entry) {
	for _, e := range entries {
		speaker := "You"
		if e.Role == transcript.RoleAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintln(r.out, speakerStyle.Render(speaker+":"))
		fmt.Fprint(r.out, r.renderMarkdown(e.Content))
	}
}

func analysisMarkdown(result *model.AnalysisResult) string {
	var b strings.Builder

	b.WriteString("## Summary\n\n")
	b.WriteString(result.Summary)
	b.WriteString("\n\n## Key Terms\n\n")
	if len(result.KeyTerms) == 0 {
		b.WriteString("_No key terms found._\n")
	}
	for _, kt := range result.KeyTerms {
		fmt.Fprintf(&b, "- **%s**: %s\n", kt.Term, kt.Definition)
	}

	b.WriteString("\n## Potential Risks\n\n")
	if len(result.PotentialRisks) == 0 {
		b.WriteString("_No potential risks found._\n")
	}
	for _, risk := range result.PotentialRisks {
		fmt.Fprintf(&b, "- %s\n", risk)
	}
	return b.String()
}
