// Package chat implements the interactive SPACER session: a line-oriented
// loop that routes slash-commands to the project state, bibliography and
// task collaborators, and sends everything else to the Brain.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spacer/internal/bib"
	"spacer/internal/config"
	"spacer/internal/logging"
	"spacer/internal/perception"
	"spacer/internal/phase"
	"spacer/internal/transcript"
)

// BibSearcher is the slice of the bibliography client the session uses.
type BibSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]bib.Record, error)
}

// Options configures a session.
type Options struct {
	ConfigPath     string // spacer.yaml
	Chat           config.ChatConfig
	SystemTemplate string // empty uses the embedded prompt
	BackendLabel   string
}

// Deps are the session's collaborators. Hands and Bib may be nil; the
// commands that need them then report that they are unavailable.
type Deps struct {
	Brain perception.Brain
	Hands *perception.Hands
	Bib   BibSearcher
	In    io.Reader
	Out   io.Writer
}

// Session is one chat. It is not safe for concurrent use; the loop is the
// only caller.
type Session struct {
	opts    Options
	deps    Deps
	project *phase.Project

	history    *perception.History
	transcript *transcript.Transcript
	tasks      *perception.TaskRegistry
	watcher    *StateWatcher
	render     *Renderer
	input      *LineReader

	// reloadErr is set while spacer.yaml cannot be read back; commands that
	// write it refuse to run until it parses again.
	reloadErr error
}

// New loads the project state and prepares a session. A missing state file
// returns phase.ErrStateNotFound.
func New(opts Options, deps Deps) (*Session, error) {
	if deps.Brain == nil {
		return nil, errors.New("chat: no brain configured")
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = phase.DefaultStatePath
	}
	if deps.In == nil {
		deps.In = os.Stdin
	}
	if deps.Out == nil {
		deps.Out = os.Stdout
	}

	project, err := phase.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	tr := transcript.New()
	deps.Brain = perception.NewTracingBrain(deps.Brain, tr.SessionID)

	enableRender := opts.Chat.Render == nil || *opts.Chat.Render
	return &Session{
		opts:       opts,
		deps:       deps,
		project:    project,
		history:    perception.NewHistory(opts.Chat.HistoryLimit),
		transcript: tr,
		tasks:      perception.NewTaskRegistry(),
		render:     NewRenderer(deps.Out, enableRender),
	}, nil
}

// History exposes the model-facing conversation window.
func (s *Session) History() *perception.History { return s.history }

// Transcript exposes the display log.
func (s *Session) Transcript() *transcript.Transcript { return s.transcript }

// Project exposes the loaded project state.
func (s *Session) Project() *phase.Project { return s.project }

// Tasks exposes the background task registry.
func (s *Session) Tasks() *perception.TaskRegistry { return s.tasks }

// Run drives the loop until /quit, end of input or ctx cancellation. End
// of input and cancellation save the transcript like /quit; a failure of
// that final save is returned. Any other read error is shown, the transcript
// is still saved, and both errors are returned.
func (s *Session) Run(ctx context.Context) error {
	logging.Session("session %s started (backend: %s)", s.transcript.SessionID, s.opts.BackendLabel)
	timer := logging.StartTimer(logging.CategorySession, "chat session")
	defer timer.Stop()

	s.input = NewLineReader(s.deps.In, s.deps.Out)
	defer s.input.Close()
	s.startWatcher(ctx)
	defer s.cleanup()

	s.render.Banner(s.project.Phase(), s.project.CurrentSubstep(), s.opts.BackendLabel)
	if s.opts.Chat.Greeting == nil || *s.opts.Chat.Greeting {
		s.greet(ctx)
	}

	for {
		s.reportExternalChanges()

		raw, err := s.input.ReadLine(ctx, s.render.Prompt())
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				logging.Session("input closed (%v), saving transcript", err)
				return s.saveAndQuit()
			}
			logging.SessionWarn("input failed: %v", err)
			s.systemError(fmt.Sprintf("Error: could not read input: %v", err))
			return errors.Join(err, s.saveAndQuit())
		}

		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}

		s.reload()

		if strings.HasPrefix(text, "/") {
			if s.dispatch(ctx, text) {
				return nil
			}
			continue
		}
		s.converse(ctx, text)
	}
}

func (s *Session) greet(ctx context.Context) {
	s.render.System("SPACER: Starting up... let me review the project state.")
	s.history.Append(perception.RoleUser, GreetingPrompt)

	reply, err := s.think(ctx)
	if err != nil {
		msg := fmt.Sprintf("(Could not get initial greeting: %v)", err)
		s.render.Error("\n" + msg + "\n")
		s.transcript.Add(transcript.RoleSystem, msg)
		return
	}
	s.history.Append(perception.RoleAssistant, reply)
	s.transcript.Add(transcript.RoleAssistant, reply)
	s.render.Assistant(reply)
}

// converse runs one free-text turn. Brain failures stay inline.
func (s *Session) converse(ctx context.Context, text string) {
	s.history.Append(perception.RoleUser, text)
	s.transcript.Add(transcript.RoleUser, text)

	reply, err := s.think(ctx)
	if err != nil {
		s.systemError(fmt.Sprintf("Error: %v", err))
		return
	}
	s.history.Append(perception.RoleAssistant, reply)
	s.transcript.Add(transcript.RoleAssistant, reply)
	s.render.Assistant(reply)
}

// think calls the brain with a system prompt rebuilt from current state.
func (s *Session) think(ctx context.Context) (string, error) {
	return s.deps.Brain.Think(ctx, s.systemPrompt(), s.history.Messages())
}

func (s *Session) systemPrompt() string {
	constitution, err := readConstitution(s.resolve(s.opts.Chat.ConstitutionPath))
	if err != nil {
		logging.SessionWarn("%v", err)
	}
	return SystemPrompt(s.opts.SystemTemplate, s.project, constitution)
}

// resolve makes project-relative paths relative to the state file's
// directory.
func (s *Session) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(filepath.Dir(s.opts.ConfigPath), path)
}

// save writes the transcript under the notes directory.
func (s *Session) save() (string, error) {
	return transcript.Save(s.transcript, s.resolve(s.opts.Chat.NotesDir),
		s.project.Phase(), s.project.CurrentSubstep())
}

func (s *Session) saveAndQuit() error {
	path, err := s.save()
	if err != nil {
		s.render.Error(fmt.Sprintf("Error: could not save transcript: %v", err))
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	s.render.System(fmt.Sprintf("\nSaved transcript to %s. Goodbye!", path))
	return nil
}

func (s *Session) startWatcher(ctx context.Context) {
	w, err := NewStateWatcher(s.opts.ConfigPath, s.resolve(s.opts.Chat.ConstitutionPath))
	if err != nil {
		logging.SessionWarn("state watcher unavailable: %v", err)
		return
	}
	w.Start(ctx)
	s.watcher = w
}

// reportExternalChanges tells the user about files edited outside the
// session since the last prompt.
func (s *Session) reportExternalChanges() {
	if s.watcher == nil {
		return
	}
	changed := s.watcher.Drain()
	if len(changed) == 0 {
		return
	}
	if !s.reload() {
		return
	}
	for _, path := range changed {
		s.render.Notice(fmt.Sprintf("↻ %s changed on disk, reloaded.", filepath.Base(path)))
	}
}

// reload re-reads spacer.yaml. On failure the previous state stays loaded
// for reads and reloadErr blocks writes.
func (s *Session) reload() bool {
	s.reloadErr = s.project.Reload()
	if s.reloadErr != nil {
		s.systemError(fmt.Sprintf("Error: could not reload %s: %v", s.opts.ConfigPath, s.reloadErr))
		return false
	}
	return true
}

// acknowledge marks a file written by the session itself.
func (s *Session) acknowledge(path string) {
	if s.watcher != nil {
		s.watcher.Acknowledge(path)
	}
}

// track starts watching a file the session just created, whose directory
// may not have existed when the watcher started.
func (s *Session) track(path string) {
	if s.watcher == nil {
		return
	}
	if err := s.watcher.Track(path); err != nil {
		logging.SessionWarn("watcher: cannot track %s: %v", path, err)
	}
}

// cleanup stops background work before the session returns.
func (s *Session) cleanup() {
	if n := len(s.tasks.Outstanding()); n > 0 {
		s.render.Notice(fmt.Sprintf("Stopping %d background task(s)...", n))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.tasks.Shutdown(ctx); err != nil {
		logging.SessionWarn("task shutdown: %v", err)
	}
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			logging.SessionWarn("watcher close: %v", err)
		}
	}
	turns := int64(0)
	if tb, ok := s.deps.Brain.(*perception.TracingBrain); ok {
		turns = tb.Turns()
	}
	logging.Session("session %s ended (%d turns, %d transcript entries)", s.transcript.SessionID, turns, s.transcript.Len())
}

// systemError shows msg inline and records it in the transcript.
func (s *Session) systemError(msg string) {
	s.render.Error(msg)
	s.transcript.Add(transcript.RoleSystem, msg)
}

// systemReply shows command output and records it in the transcript.
func (s *Session) systemReply(msg string) {
	s.render.System("\n" + msg + "\n")
	s.transcript.Add(transcript.RoleSystem, msg)
}
