package chat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"spacer/internal/bib"
	"spacer/internal/config"
	"spacer/internal/logging"
	"spacer/internal/perception"
	"spacer/internal/phase"
	"spacer/internal/transcript"

	"github.com/dustin/go-humanize"
	"github.com/sahilm/fuzzy"
)

// BibResultLimit is the number of records /bib search shows.
const BibResultLimit = 5

// command handles one slash-command. It returns true to end the session.
type command struct {
	name    string
	usage   string
	summary string
	run     func(s *Session, ctx context.Context, line string, args []string) bool
}

var commands []command

func init() {
	commands = []command{
		{"/status", "/status", "phase, checklist, framing and next step", (*Session).cmdStatus},
		{"/phase", "/phase", "current phase and checklist", (*Session).cmdPhase},
		{"/next", "/next", "mark the current sub-step done", (*Session).cmdNext},
		{"/bib", `/bib search "query"`, "search Semantic Scholar", (*Session).cmdBib},
		{"/supply", "/supply <filepath>", "load a file into the conversation", (*Session).cmdSupply},
		{"/constitute", "/constitute", "draft the constitution from this discussion", (*Session).cmdConstitute},
		{"/review", "/review", "list drafts in the sections directory", (*Session).cmdReview},
		{"/delegate", "/delegate <task>", "run a task with the coding agent in the background", (*Session).cmdDelegate},
		{"/tasks", "/tasks [show|kill <id>]", "list or manage background tasks", (*Session).cmdTasks},
		{"/save", "/save", "save the transcript", (*Session).cmdSave},
		{"/quit", "/quit", "save the transcript and exit", (*Session).cmdQuit},
		{"/exit", "/exit", "same as /quit", (*Session).cmdQuit},
		{"/help", "/help", "show this list", (*Session).cmdHelp},
	}
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// commandList is the one-line summary shown for unknown commands.
func commandList() string {
	return "Commands: /status /phase /next /bib /supply /constitute /review /save /quit /help /delegate /tasks"
}

// dispatch runs a slash-command line. Unknown or malformed commands only
// print; they never touch project state or the conversation history.
func (s *Session) dispatch(ctx context.Context, line string) bool {
	s.transcript.Add(transcript.RoleSystem, line)

	args, err := splitArgs(line)
	if err != nil {
		s.systemError(fmt.Sprintf("Error: %v", err))
		return false
	}
	name := strings.ToLower(args[0])
	logging.SessionDebug("command %s (%d args)", name, len(args)-1)

	c, ok := lookupCommand(name)
	if !ok {
		s.systemReply(unknownCommand(name))
		return false
	}
	return c.run(s, ctx, line, args)
}

func unknownCommand(name string) string {
	msg := fmt.Sprintf("Unknown command: %s\n%s", name, commandList())
	if guess := suggest(name); guess != "" {
		msg += fmt.Sprintf("\nDid you mean %s?", guess)
	}
	return msg
}

// suggest returns the closest known command to name, or "".
func suggest(name string) string {
	pattern := strings.TrimPrefix(name, "/")
	if pattern == "" {
		return ""
	}
	names := make([]string, 0, len(commands))
	for _, c := range commands {
		names = append(names, strings.TrimPrefix(c.name, "/"))
	}
	matches := fuzzy.Find(pattern, names)
	if len(matches) == 0 {
		return ""
	}
	return "/" + matches[0].Str
}

func (s *Session) cmdStatus(_ context.Context, _ string, _ []string) bool {
	s.systemReply(phase.FormatStatus(s.project))
	return false
}

func (s *Session) cmdPhase(_ context.Context, _ string, _ []string) bool {
	s.systemReply(phase.FormatPhaseInfo(s.project))
	return false
}

func (s *Session) cmdNext(_ context.Context, _ string, _ []string) bool {
	if s.reloadErr != nil {
		s.systemError(fmt.Sprintf("Not updating %s until it parses again. Fix the file and retry /next.", s.opts.ConfigPath))
		return false
	}
	res, err := s.project.AdvanceSubstep()
	if err != nil {
		s.systemError(fmt.Sprintf("Error: could not update %s: %v", s.opts.ConfigPath, err))
		return false
	}
	if res.Advanced {
		s.acknowledge(s.opts.ConfigPath)
	}
	msg := res.Message
	if next := s.project.CurrentSubstep(); res.Advanced && next != phase.SubstepComplete {
		msg += fmt.Sprintf("\nNext sub-step: %s", phase.Humanize(next))
	}
	s.systemReply(msg)
	return false
}

func (s *Session) cmdBib(ctx context.Context, _ string, args []string) bool {
	if len(args) < 3 || args[1] != "search" {
		s.systemReply(`Usage: /bib search "query"`)
		return false
	}
	if s.deps.Bib == nil {
		s.systemError("Bibliography search is unavailable in this session.")
		return false
	}

	query := strings.Join(args[2:], " ")
	records, err := s.deps.Bib.Search(ctx, query, BibResultLimit)
	switch {
	case errors.Is(err, bib.ErrRateLimited):
		s.systemError("Search failed (rate limited). Try again in a minute.")
		return false
	case err != nil:
		s.systemError(fmt.Sprintf("Search error: %v", err))
		return false
	case len(records) == 0:
		s.systemReply("No results found.")
		return false
	}

	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, r.Short())
	}
	s.systemReply(strings.Join(lines, "\n"))
	return false
}

func (s *Session) cmdSupply(_ context.Context, _ string, args []string) bool {
	if len(args) < 2 {
		s.systemReply("Usage: /supply <filepath>")
		return false
	}
	supplied, err := LoadSupply(args[1], s.opts.Chat.SupplyBudget)
	if errors.Is(err, ErrFileNotFound) {
		s.systemError(fmt.Sprintf("File not found: %s", args[1]))
		return false
	}
	if err != nil {
		s.systemError(fmt.Sprintf("Error: %v", err))
		return false
	}

	s.history.Append(perception.RoleUser, supplied.Turn())
	s.systemReply(fmt.Sprintf("📄 Loaded %s (%d chars). Content added to context.", supplied.Name, supplied.Chars()))
	return false
}

func (s *Session) cmdConstitute(ctx context.Context, _ string, _ []string) bool {
	s.render.System("\nSPACER: Generating constitution from our discussion...\n")
	s.history.Append(perception.RoleUser, ConstitutePrompt)

	doc, err := s.think(ctx)
	if err != nil {
		s.systemError(fmt.Sprintf("Error: %v", err))
		return false
	}
	s.history.Append(perception.RoleAssistant, doc)
	s.transcript.Add(transcript.RoleAssistant, doc)
	s.render.Assistant(doc)

	rel := s.opts.Chat.ConstitutionPath
	if !s.input.Confirm(ctx, fmt.Sprintf("Save to %s?", rel)) {
		s.render.Notice("Not saved. The draft stays in the conversation.")
		return false
	}

	path := s.resolve(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		s.systemError(fmt.Sprintf("Error: could not create %s: %v", filepath.Dir(rel), err))
		return false
	}
	if err := config.WriteFileAtomic(path, []byte(doc), 0644); err != nil {
		s.systemError(fmt.Sprintf("Error: could not save %s: %v", rel, err))
		return false
	}
	s.track(path)
	s.render.Success("✓ Saved " + rel)
	s.transcript.Add(transcript.RoleSystem, "Saved "+rel)
	logging.Session("constitution saved to %s (%d bytes)", path, len(doc))
	return false
}

func (s *Session) cmdReview(_ context.Context, _ string, _ []string) bool {
	rel := strings.TrimSuffix(filepath.ToSlash(s.opts.Chat.DraftsDir), "/")
	drafts, err := ListDrafts(s.resolve(s.opts.Chat.DraftsDir))
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.systemReply(fmt.Sprintf("No drafts yet (%s/ is empty)", rel))
	case err != nil:
		s.systemError(fmt.Sprintf("Error: %v", err))
	case len(drafts) == 0:
		s.systemReply(fmt.Sprintf("No .tex files in %s/ yet.", rel))
	default:
		s.systemReply(formatDrafts(rel, drafts))
	}
	return false
}

func (s *Session) cmdDelegate(ctx context.Context, line string, _ []string) bool {
	prompt := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), strings.Fields(line)[0]))
	if prompt == "" {
		s.systemReply("Usage: /delegate <task>")
		return false
	}
	if s.deps.Hands == nil {
		s.systemError("No coding agent available. Run `spacer auth` and choose a CLI backend.")
		return false
	}

	workDir, err := filepath.Abs(filepath.Dir(s.opts.ConfigPath))
	if err != nil {
		s.systemError(fmt.Sprintf("Error: %v", err))
		return false
	}
	task, err := s.deps.Hands.Launch(ctx, perception.HandsTask{Prompt: prompt, WorkDir: workDir})
	if err != nil {
		s.systemError(fmt.Sprintf("Error: %v", err))
		return false
	}
	s.tasks.Add(task)
	s.systemReply(fmt.Sprintf("⚙ Started task %s with %s. Check on it with /tasks.", task.ID, task.Backend))
	return false
}

func (s *Session) cmdTasks(_ context.Context, _ string, args []string) bool {
	if len(args) >= 2 {
		if len(args) < 3 {
			s.systemReply("Usage: /tasks [show|kill <id>]")
			return false
		}
		task, ok := s.tasks.Find(args[2])
		if !ok {
			s.systemError(fmt.Sprintf("No task matching %q.", args[2]))
			return false
		}
		switch args[1] {
		case "show":
			s.systemReply(formatTaskOutput(task))
		case "kill":
			if err := task.Kill(); err != nil {
				s.systemError(fmt.Sprintf("Error: could not stop task %s: %v", task.ID, err))
				return false
			}
			s.systemReply(fmt.Sprintf("Stopped task %s.", task.ID))
		default:
			s.systemReply("Usage: /tasks [show|kill <id>]")
		}
		return false
	}

	list := s.tasks.List()
	if len(list) == 0 {
		s.systemReply("No background tasks.")
		return false
	}
	lines := []string{"Background tasks:"}
	for _, t := range list {
		lines = append(lines, formatTaskLine(t))
	}
	s.systemReply(strings.Join(lines, "\n"))
	return false
}

func taskState(t *perception.Task) string {
	res, done := t.Poll()
	switch {
	case !done:
		return "running"
	case res.TimedOut:
		return "timed out"
	case res.Killed:
		return "stopped"
	default:
		return fmt.Sprintf("exit %d", res.ExitCode)
	}
}

func formatTaskLine(t *perception.Task) string {
	line := fmt.Sprintf("  %s  %-9s  started %s  %s", t.ID, taskState(t), humanize.Time(t.StartedAt()), oneLine(t.Prompt, 50))
	if last := t.LastLine(); last != "" {
		line += "\n      " + oneLine(last, 70)
	}
	return line
}

func formatTaskOutput(t *perception.Task) string {
	out := strings.TrimSpace(t.Output())
	if out == "" {
		out = "(no output yet)"
	}
	return fmt.Sprintf("Task %s (%s):\n%s", t.ID, taskState(t), out)
}

func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > max {
		return string(r[:max]) + "..."
	}
	return s
}

func (s *Session) cmdSave(_ context.Context, _ string, _ []string) bool {
	path, err := s.save()
	if err != nil {
		s.systemError(fmt.Sprintf("Error: could not save transcript: %v", err))
		return false
	}
	s.systemReply("Saved to " + path)
	return false
}

// cmdQuit keeps the session open when the save fails so nothing is lost.
func (s *Session) cmdQuit(_ context.Context, _ string, _ []string) bool {
	path, err := s.save()
	if err != nil {
		s.systemError(fmt.Sprintf("Error: could not save transcript: %v", err))
		return false
	}
	s.render.System(fmt.Sprintf("\nSaved transcript to %s. Goodbye!", path))
	return true
}

func (s *Session) cmdHelp(_ context.Context, _ string, _ []string) bool {
	var b strings.Builder
	b.WriteString("Commands:")
	for _, c := range commands {
		fmt.Fprintf(&b, "\n  %-24s %s", c.usage, c.summary)
	}
	s.systemReply(b.String())
	return false
}

// splitArgs splits a command line on whitespace, honoring single quotes,
// double quotes and backslash escapes outside single quotes.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case unicode.IsSpace(r):
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, errors.New("unterminated quote")
	}
	if escaped {
		return nil, errors.New("trailing backslash")
	}
	if inWord {
		args = append(args, cur.String())
	}
	if len(args) == 0 {
		return nil, errors.New("empty command")
	}
	return args, nil
}
