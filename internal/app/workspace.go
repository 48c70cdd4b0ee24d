package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"demystifier-backend/internal/client"
	"demystifier-backend/internal/model"
	"demystifier-backend/pkg/logger"
)

const (
	msgNoDocument        = "Please paste text or upload a document first."
	msgAnalysisFailed    = "Sorry, we couldn't get a response. Please try again."
	msgAnalysisMalformed = "An unknown error occurred during analysis."
)

var ErrNoDocument = errors.New("no document text or file")

// AnalysisSnapshot is an immutable view of the analysis panel.
type AnalysisSnapshot struct {
	Loading bool
	Result  *model.AnalysisResult
	Error   string
}

// Workspace ties the analysis panel to the three chat surfaces. A successful
// analysis grounds the analyzer chat in the document.
type Workspace struct {
	api API

	Analyzer *Surface
	Advisor  *Surface
	Hub      *Surface

	mu      sync.Mutex
	loading bool
	result  *model.AnalysisResult
	err     string

	subscribers observers[AnalysisSnapshot]
}

func NewWorkspace(api API) *Workspace {
	return &Workspace{
		api:      api,
		Analyzer: NewSurface(api, AnalyzerVariant),
		Advisor:  NewSurface(api, AdvisorVariant),
		Hub:      NewSurface(api, HubVariant),
	}
}

// Surface returns the chat surface for chatType, or nil.
func (w *Workspace) Surface(chatType model.ChatType) *Surface {
	switch chatType {
	case model.ChatTypeAnalyzer:
		return w.Analyzer
	case model.ChatTypeAdvisor:
		return w.Advisor
	case model.ChatTypeHub:
		return w.Hub
	}
	return nil
}

func (w *Workspace) Subscribe(fn func(AnalysisSnapshot)) func() {
	return w.subscribers.add(fn)
}

func (w *Workspace) Snapshot() AnalysisSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Workspace) snapshotLocked() AnalysisSnapshot {
	snap := AnalysisSnapshot{Loading: w.loading, Error: w.err}
	if w.result != nil {
		r := *w.result
		r.KeyTerms = append([]model.KeyTerm(nil), w.result.KeyTerms...)
		r.PotentialRisks = append([]string(nil), w.result.PotentialRisks...)
		snap.Result = &r
	}
	return snap
}

func (w *Workspace) update(fn func()) {
	w.mu.Lock()
	fn()
	snap := w.snapshotLocked()
	w.mu.Unlock()

	w.subscribers.notify(snap)
}

// Analyze replaces the current analysis with one of text or file. The
// previous result and the analyzer conversation are discarded first.
func (w *Workspace) Analyze(ctx context.Context, text string, file *model.FileData) (*model.AnalysisResult, error) {
	text = strings.TrimSpace(text)
	if text == "" && file == nil {
		w.update(func() { w.err = msgNoDocument })
		return nil, ErrNoDocument
	}

	w.mu.Lock()
	if w.loading {
		w.mu.Unlock()
		return nil, ErrBusy
	}
	w.loading = true
	w.mu.Unlock()

	if err := w.Analyzer.Reset(""); err != nil {
		w.update(func() { w.loading = false })
		return nil, err
	}
	w.update(func() {
		w.result = nil
		w.err = ""
	})

	result, err := w.api.AnalyzeDocument(ctx, text, file)
	if err != nil {
		logger.Warnf("Analysis failed: %v", err)
		w.update(func() {
			w.loading = false
			w.err = analysisMessage(err)
		})
		return nil, err
	}

	if err := w.Analyzer.Reset(groundingContext(text, file, result.Summary)); err != nil {
		logger.Warnf("Analyzer chat not reset: %v", err)
	}
	w.update(func() {
		w.loading = false
		w.result = result
	})
	return result, nil
}

// ClearError dismisses the analysis banner.
func (w *Workspace) ClearError() {
	w.update(func() { w.err = "" })
}

func groundingContext(text string, file *model.FileData, summary string) string {
	if file != nil {
		return fmt.Sprintf("The user has uploaded a document named \"%s\". Here is a summary of its contents:\n\n%s", file.Name, summary)
	}
	return fmt.Sprintf("The user has provided the following document text:\n\n---\n%s\n---\n\nHere is a summary of its contents:\n\n%s", text, summary)
}

// analysisMessage turns a client error into banner text. Messages the server
// addressed to the user (4xx bodies) are shown as they are.
func analysisMessage(err error) string {
	var ce *client.ClientError
	if !errors.As(err, &ce) {
		return msgAnalysisFailed
	}

	switch ce.Type {
	case client.ErrTypeInvalidInput:
		return msgNoDocument
	case client.ErrTypeMalformedResponse:
		return msgAnalysisMalformed
	}
	if ce.StatusCode >= 400 && ce.StatusCode < 500 && ce.Cause != nil {
		return ce.Cause.Error()
	}
	return msgAnalysisFailed
}
