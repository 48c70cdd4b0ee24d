package console

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"demystifier-backend/internal/app"
	"demystifier-backend/internal/document"
	"demystifier-backend/internal/model"
	"demystifier-backend/internal/transcript"
	"demystifier-backend/pkg/logger"
)

const helpText = `Commands:
  /analyze <text>   analyze pasted document text
  /file <path>      analyze a document file (PDF, DOCX, TXT, MD)
  /result           show the current analysis
  /tab <name>       switch to analyzer, advisor or hub
  /theme            toggle light and dark output
  /signin, /signout
  /help, /quit
Anything else is sent to the chat on the current tab.`

// LineReader is satisfied by *liner.State.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

type Console struct {
	ws       *app.Workspace
	state    *app.State
	policy   document.Policy
	renderer *Renderer
	stream   *streamPrinter
}

func New(ws *app.Workspace, state *app.State, policy document.Policy, renderer *Renderer) *Console {
	c := &Console{
		ws:       ws,
		state:    state,
		policy:   policy,
		renderer: renderer,
		stream:   &streamPrinter{r: renderer},
	}

	for _, s := range []*app.Surface{ws.Analyzer, ws.Advisor, ws.Hub} {
		s.Subscribe(c.stream.onSnapshot)
	}
	state.Subscribe(func(snap app.StateSnapshot) {
		renderer.SetTheme(snap.Theme)
	})
	return c
}

// Run reads lines until /quit, end of input or Ctrl+C.
func (c *Console) Run(ctx context.Context, line LineReader) error {
	c.renderer.Info("Legal document demystifier. Type /help for commands.")

	for {
		input, err := line.Prompt(fmt.Sprintf("%s> ", c.state.Snapshot().Tab))
		if err != nil {
			// EOF and an aborted prompt both end the session
			logger.Debugf("Prompt closed: %v", err)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if !c.Execute(ctx, input) {
			return nil
		}
	}
}

// Execute runs one line of input and reports whether to keep going.
func (c *Console) Execute(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		c.chat(ctx, input)
		return true
	}

	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return false
	case "/help":
		c.renderer.Info(helpText)
	case "/analyze":
		c.analyze(ctx, arg, nil)
	case "/file":
		c.analyzeFile(ctx, arg)
	case "/result":
		if result := c.ws.Snapshot().Result; result != nil {
			c.renderer.Analysis(result)
		} else {
			c.renderer.Info("No analysis yet.")
		}
	case "/tab":
		c.switchTab(app.Tab(arg))
	case "/theme":
		if err := c.state.ToggleTheme(); err != nil {
			c.renderer.Error(err.Error())
			return true
		}
		c.renderer.Info(fmt.Sprintf("Theme: %s", c.state.Snapshot().Theme))
	case "/signin":
		c.state.SignIn()
		c.renderer.Info("Signed in.")
	case "/signout":
		c.state.SignOut()
		c.renderer.Info("Signed out.")
	default:
		c.renderer.Error(fmt.Sprintf("Unknown command %s. Type /help for commands.", cmd))
	}
	return true
}

func (c *Console) analyze(ctx context.Context, text string, file *model.FileData) {
	c.renderer.Info("Analyzing...")
	result, err := c.ws.Analyze(ctx, text, file)
	if err != nil {
		if msg := c.ws.Snapshot().Error; msg != "" {
			c.renderer.Error(msg)
		} else {
			c.renderer.Error(err.Error())
		}
		return
	}
	c.renderer.Analysis(result)
	c.renderer.Info("Ask follow-up questions from the analyzer tab.")
}

func (c *Console) analyzeFile(ctx context.Context, path string) {
	if path == "" {
		c.renderer.Error("Usage: /file <path>")
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		c.renderer.Error(fmt.Sprintf("Could not read %s: %v", path, err))
		return
	}
	file, err := c.policy.FromBytes(filepath.Base(path), data, "")
	if err != nil {
		c.renderer.Error(c.policy.Message(err))
		return
	}
	c.analyze(ctx, "", file)
}

func (c *Console) switchTab(tab app.Tab) {
	if err := c.state.SetTab(tab); err != nil {
		if errors.Is(err, app.ErrSignInRequired) {
			c.renderer.Error("Please sign in to access the Government Document Hub.")
		} else {
			c.renderer.Error(err.Error())
		}
		return
	}
	if s := c.ws.Surface(model.ChatType(tab)); s != nil {
		c.renderer.Transcript(s.Snapshot().Entries)
	}
}

func (c *Console) chat(ctx context.Context, text string) {
	tab := c.state.Snapshot().Tab
	surface := c.ws.Surface(model.ChatType(tab))
	if surface == nil {
		c.renderer.Error(fmt.Sprintf("No chat on tab %s.", tab))
		return
	}
	if tab == app.TabAnalyzer && surface.Context() == "" {
		c.renderer.Error("Analyze a document first with /analyze or /file.")
		return
	}

	c.stream.begin(surface.Variant().ChatType)
	err := surface.Send(ctx, text)
	c.stream.end()

	switch {
	case errors.Is(err, app.ErrBusy):
		c.renderer.Error("Please wait for the current reply to finish.")
	default:
		if banner := surface.Snapshot().Error; banner != "" {
			c.renderer.Error(banner)
		}
	}
}

// streamPrinter echoes the growing reply of the surface being sent to.
type streamPrinter struct {
	mu      sync.Mutex
	r       *Renderer
	active  model.ChatType
	printed int
	started bool
}

func (p *streamPrinter) begin(chatType model.ChatType) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = chatType
	p.printed = 0
	p.started = false
}

func (p *streamPrinter) end() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		p.r.Raw("\n")
	}
	p.active = ""
}

func (p *streamPrinter) onSnapshot(snap app.SurfaceSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active == "" || snap.ChatType != p.active || len(snap.Entries) == 0 {
		return
	}
	last := snap.Entries[len(snap.Entries)-1]
	if last.Role != transcript.RoleAssistant {
		return
	}
	if !p.started {
		p.r.Raw(speakerStyle.Render("Assistant:") + " ")
		p.started = true
	}
	if len(last.Content) > p.printed {
		p.r.Raw(last.Content[p.printed:])
		p.printed = len(last.Content)
	}
}
