package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/kballard/go-shellquote"
	"github.com/pterm/pterm"

	"github.com/teranos/graphex/errors"
	"github.com/teranos/graphex/query"
	"github.com/teranos/graphex/status"
	"github.com/teranos/graphex/workspace"
)

// replCommand is one explorer command typed at the prompt.
type replCommand struct {
	name    string
	aliases []string
	usage   string
	help    string
	// minArgs and maxArgs bound the argument count; maxArgs < 0 is unbounded.
	minArgs int
	maxArgs int
	run     func(s *session, args []string) error
}

// session drives one workspace from typed commands. Workspace access always
// goes through the loop.
type session struct {
	ctx        context.Context
	loop       *workspace.Loop
	ws         *workspace.Workspace
	out        *syncWriter
	surfaceURL string
	readFile   func(string) ([]byte, error)
	commands   []replCommand

	// Written only from the loop.
	lastBanner  status.Banner
	lastPrinted uint64
}

// syncWriter serializes prompt output with lines streamed from the loop.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Println(a ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, a...)
}

func newSession(ctx context.Context, loop *workspace.Loop, ws *workspace.Workspace, out io.Writer, surfaceURL string) *session {
	return &session{
		ctx:        ctx,
		loop:       loop,
		ws:         ws,
		out:        &syncWriter{w: out},
		surfaceURL: surfaceURL,
		readFile:   os.ReadFile,
		commands:   commandTable(),
	}
}

// watch streams banner changes and new console lines as they happen.
func (s *session) watch() error {
	return s.loop.Do(s.ctx, func() {
		s.ws.Subscribe(s.observe)
	})
}

// observe runs on the loop.
func (s *session) observe(v workspace.View) {
	if v.Banner != s.lastBanner {
		s.lastBanner = v.Banner
		if line := renderBanner(v.Banner); line != "" {
			s.out.Println(line)
		}
	}

	fresh := v.Console.Printed - s.lastPrinted
	s.lastPrinted = v.Console.Printed
	if fresh > uint64(len(v.Console.Output)) {
		fresh = uint64(len(v.Console.Output))
	}
	// Output is newest first.
	for i := int(fresh) - 1; i >= 0; i-- {
		s.out.Println(pterm.Gray("│ ") + v.Console.Output[i])
	}
}

// do runs f against the workspace on the loop.
func (s *session) do(f func(w *workspace.Workspace)) error {
	return s.loop.Do(s.ctx, func() { f(s.ws) })
}

// view returns the current View.
func (s *session) view() (workspace.View, error) {
	var v workspace.View
	err := s.do(func(w *workspace.Workspace) { v = w.View() })
	return v, err
}

// parseLine splits a prompt line into a lowercased command name and its
// arguments. A leading "!" sends the rest of the line to the console verbatim.
func parseLine(line string) (string, []string, error) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "!") {
		rest := strings.TrimSpace(strings.TrimPrefix(line, "!"))
		if rest == "" {
			return "", nil, nil
		}
		return "run", []string{rest}, nil
	}
	words, err := shellquote.Split(line)
	if err != nil {
		return "", nil, errors.Wrap(errors.ErrInvalidRequest, err.Error())
	}
	if len(words) == 0 {
		return "", nil, nil
	}
	return strings.ToLower(words[0]), words[1:], nil
}

func (s *session) lookup(name string) (replCommand, bool) {
	for _, c := range s.commands {
		if c.name == name {
			return c, true
		}
		for _, a := range c.aliases {
			if a == name {
				return c, true
			}
		}
	}
	return replCommand{}, false
}

// errQuit ends the prompt loop.
var errQuit = errors.New("quit")

// exec runs one prompt line.
func (s *session) exec(line string) error {
	name, args, err := parseLine(line)
	if err != nil || name == "" {
		return err
	}
	c, ok := s.lookup(name)
	if !ok {
		return errors.Newf("unknown command %q, type 'help' for a list", name)
	}
	if len(args) < c.minArgs || (c.maxArgs >= 0 && len(args) > c.maxArgs) {
		return errors.Newf("usage: %s", c.usage)
	}
	return c.run(s, args)
}

// repl reads lines from in until EOF, quit or cancellation.
func (s *session) repl(in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-s.ctx.Done():
				return
			}
		}
	}()

	s.out.Println(pterm.Gray("Type 'help' for commands."))
	for {
		select {
		case <-s.ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := s.exec(line)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				s.out.Println(pterm.Error.Sprint(err.Error()))
			}
		}
	}
}

func (s *session) show(text string) error {
	s.out.Println(text)
	return nil
}

func commandTable() []replCommand {
	return []replCommand{
		{name: "load", usage: "load <file>", help: "Upload a JSON or CSV graph file and render it", minArgs: 1, maxArgs: 1, run: cmdLoad},
		{name: "retry", usage: "retry", help: "Retry the failed load or render", maxArgs: 0, run: cmdRetry},
		{name: "vis", aliases: []string{"visualizer"}, usage: "vis <id>", help: "Switch visualizer (" + strings.Join(workspace.Visualizers, ", ") + ")", minArgs: 1, maxArgs: 1, run: cmdVis},
		{name: "directed", usage: "directed <on|off>", help: "Render and browse the graph as directed or undirected", minArgs: 1, maxArgs: 1, run: cmdDirected},
		{name: "search", usage: "search <text>", help: "Search the graph server-side", maxArgs: -1, run: cmdSearch},
		{name: "filter", usage: "filter <attribute> <operator> <value>", help: "Filter nodes by attribute", minArgs: 3, maxArgs: -1, run: cmdFilter},
		{name: "apply", usage: "apply [search=<text>] [attr=<name>] [op=<operator>] [value=<value>]", help: "Apply search and filter together as chips", maxArgs: -1, run: cmdApply},
		{name: "chips", usage: "chips", help: "List applied queries", maxArgs: 0, run: cmdChips},
		{name: "unchip", usage: "unchip <id>", help: "Remove an applied query chip", minArgs: 1, maxArgs: 1, run: cmdUnchip},
		{name: "reset", usage: "reset", help: "Restore the original graph and clear chips", maxArgs: 0, run: cmdReset},
		{name: "select", usage: "select [id]", help: "Select a node, or clear the selection", maxArgs: 1, run: cmdSelect},
		{name: "toggle", usage: "toggle <id>", help: "Expand or collapse a tree row", minArgs: 1, maxArgs: 1, run: cmdToggle},
		{name: "tree", usage: "tree", help: "Show the node tree", maxArgs: 0, run: cmdTree},
		{name: "summary", usage: "summary", help: "Show the graph summary", maxArgs: 0, run: cmdSummary},
		{name: "status", usage: "status", help: "Show load and render status", maxArgs: 0, run: cmdStatus},
		{name: "run", usage: "run <command> (or !<command>)", help: "Run a console command against the graph", minArgs: 1, maxArgs: -1, run: cmdRun},
		{name: "console", usage: "console", help: "Show console history and output", maxArgs: 0, run: cmdConsole},
		{name: "clear", usage: "clear", help: "Clear console history and output", maxArgs: 0, run: cmdClear},
		{name: "open", usage: "open", help: "Show the visual surface URL", maxArgs: 0, run: cmdOpen},
		{name: "help", aliases: []string{"?"}, usage: "help", help: "List commands", maxArgs: 1, run: cmdHelp},
		{name: "quit", aliases: []string{"exit", "q"}, usage: "quit", help: "Leave the explorer", maxArgs: 0, run: cmdQuit},
	}
}

func cmdLoad(s *session, args []string) error {
	path := args[0]
	data, err := s.readFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}
	return s.do(func(w *workspace.Workspace) {
		w.SelectUpload(filepath.Base(path), data)
		w.Load()
	})
}

func cmdRetry(s *session, _ []string) error {
	var retried bool
	if err := s.do(func(w *workspace.Workspace) { retried = w.Retry() }); err != nil {
		return err
	}
	if !retried {
		return s.show(pterm.Gray("Nothing to retry."))
	}
	return nil
}

func cmdVis(s *session, args []string) error {
	var err error
	if doErr := s.do(func(w *workspace.Workspace) { err = w.SetVisualizer(args[0]) }); doErr != nil {
		return doErr
	}
	return err
}

func cmdDirected(s *session, args []string) error {
	directed, err := parseSwitch(args[0])
	if err != nil {
		return err
	}
	return s.do(func(w *workspace.Workspace) { w.SetDirected(directed) })
}

// parseSwitch accepts on/off alongside the strconv booleans.
func parseSwitch(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.Wrapf(errors.ErrInvalidRequest, "expected on or off, got %q", raw)
	}
	return b, nil
}

func cmdSearch(s *session, args []string) error {
	text := strings.Join(args, " ")
	return s.do(func(w *workspace.Workspace) {
		d := w.View().Draft
		d.SearchText = text
		w.SetDraft(d)
		w.Search()
	})
}

func cmdFilter(s *session, args []string) error {
	attr, op, value := args[0], args[1], strings.Join(args[2:], " ")
	return s.do(func(w *workspace.Workspace) {
		d := w.View().Draft
		d.Attribute, d.Operator, d.Value = attr, op, value
		w.SetDraft(d)
		w.Filter()
	})
}

// parseDraft reads key=value arguments into a draft.
func parseDraft(args []string) (query.Draft, error) {
	d := query.NewDraft()
	for _, a := range args {
		key, value, ok := strings.Cut(a, "=")
		if !ok {
			return d, errors.Wrapf(errors.ErrInvalidRequest, "expected key=value, got %q", a)
		}
		switch strings.ToLower(key) {
		case "search":
			d.SearchText = value
		case "attr", "attribute":
			d.Attribute = value
		case "op", "operator":
			d.Operator = value
		case "value":
			d.Value = value
		default:
			return d, errors.Wrapf(errors.ErrInvalidRequest, "unknown key %q", key)
		}
	}
	return d, nil
}

func cmdApply(s *session, args []string) error {
	d, err := parseDraft(args)
	if err != nil {
		return err
	}
	return s.do(func(w *workspace.Workspace) {
		w.SetDraft(d)
		w.ApplyQuery()
	})
}

func cmdChips(s *session, _ []string) error {
	v, err := s.view()
	if err != nil {
		return err
	}
	return s.show(renderChips(v.Chips, v.ChipCount))
}

func cmdUnchip(s *session, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidRequest, "chip id must be a number, got %q", args[0])
	}
	var removed bool
	if err := s.do(func(w *workspace.Workspace) { removed = w.RemoveChip(id) }); err != nil {
		return err
	}
	if !removed {
		return errors.Wrapf(errors.ErrNotFound, "no chip #%d", id)
	}
	return nil
}

func cmdReset(s *session, _ []string) error {
	return s.do(func(w *workspace.Workspace) { w.ResetQuery() })
}

func cmdSelect(s *session, args []string) error {
	id := ""
	if len(args) == 1 {
		id = args[0]
	}
	var selected string
	err := s.do(func(w *workspace.Workspace) {
		w.Select(id)
		selected = w.View().Selected
	})
	if err != nil {
		return err
	}
	if selected != id {
		return errors.Wrapf(errors.ErrNotFound, "no node %q", id)
	}
	return nil
}

func cmdToggle(s *session, args []string) error {
	var ok bool
	if err := s.do(func(w *workspace.Workspace) { ok = w.ToggleExpanded(args[0]) }); err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "no expandable row %q", args[0])
	}
	return cmdTree(s, nil)
}

func cmdTree(s *session, _ []string) error {
	v, err := s.view()
	if err != nil {
		return err
	}
	return s.show(renderTree(v.Tree))
}

func cmdSummary(s *session, _ []string) error {
	v, err := s.view()
	if err != nil {
		return err
	}
	return s.show(renderSummary(v.Summary))
}

func cmdStatus(s *session, _ []string) error {
	v, err := s.view()
	if err != nil {
		return err
	}
	return s.show(renderStatus(v))
}

func cmdRun(s *session, args []string) error {
	command := strings.Join(args, " ")
	return s.do(func(w *workspace.Workspace) { w.RunConsole(command) })
}

func cmdConsole(s *session, _ []string) error {
	v, err := s.view()
	if err != nil {
		return err
	}
	return s.show(renderConsole(v.Console))
}

func cmdClear(s *session, _ []string) error {
	return s.do(func(w *workspace.Workspace) { w.ClearConsole() })
}

func cmdOpen(s *session, _ []string) error {
	if s.surfaceURL == "" {
		return s.show(pterm.Gray("The visual surface is disabled."))
	}
	return s.show("Visual surface: " + pterm.LightCyan(s.surfaceURL))
}

func cmdHelp(s *session, _ []string) error {
	var sb strings.Builder
	for _, c := range s.commands {
		fmt.Fprintf(&sb, "  %-40s %s\n", c.usage, pterm.Gray(c.help))
	}
	return s.show(strings.TrimRight(sb.String(), "\n"))
}

func cmdQuit(*session, []string) error {
	return errQuit
}
