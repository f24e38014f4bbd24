// Package console is the operator's line-oriented front end: it reads
// commands, drives the rules engine, and prompts for every roll.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/htbah/campaign-manager/internal/config"
	"github.com/htbah/campaign-manager/internal/game/character"
	"github.com/htbah/campaign-manager/internal/game/combat"
	"github.com/htbah/campaign-manager/internal/game/command"
	"github.com/htbah/campaign-manager/internal/game/condition"
	"github.com/htbah/campaign-manager/internal/game/dice"
	"github.com/htbah/campaign-manager/internal/game/inventory"
	"github.com/htbah/campaign-manager/internal/game/rules"
	"github.com/htbah/campaign-manager/internal/storage"
)

var (
	// ErrQuit is returned by Execute when the operator asks to leave.
	ErrQuit = errors.New("quit")
	// ErrBusy is returned by Execute while another command is still running.
	ErrBusy = errors.New("another command is still running")
	// ErrUnknownCommand is returned for input that names no command.
	ErrUnknownCommand = errors.New("unknown command")
)

type handlerFunc func(ctx context.Context, cmd *command.Command, args []string) error

// Deps are the collaborators of a Session.
type Deps struct {
	Registry   *command.Registry
	Roster     *character.Roster
	Conditions *condition.Library
	Items      *inventory.Library
	Store      storage.CharacterStore
	In         io.Reader
	Out        io.Writer
	Config     config.ConsoleConfig
	Logger     *zap.Logger
}

// Session holds the console state: the loaded campaign, the running
// encounter, and the input stream. At most one command executes at a time.
type Session struct {
	busy sync.Mutex

	registry   *command.Registry
	handlers   map[string]handlerFunc
	roster     *character.Roster
	conditions *condition.Library
	items      *inventory.Library
	store      storage.CharacterStore
	evaluator  *dice.Evaluator
	encounter  *combat.Encounter

	in       *lineReader
	prompter *LinePrompter
	out      io.Writer
	prompt   string
	logger   *zap.Logger

	dirty map[string]bool // character ids changed since the last save

	stopMu sync.Mutex
	stop   context.CancelFunc
}

// NewSession wires a Session.
//
// Precondition: Registry, Roster, Conditions, Items, Store, In and Out are non-nil.
// Postcondition: returns an error if a registered command has no handler.
func NewSession(d Deps) (*Session, error) {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var echo io.Writer
	if d.Config.Echo {
		echo = d.Out
	}
	in := newLineReader(d.In, echo)
	s := &Session{
		registry:   d.Registry,
		roster:     d.Roster,
		conditions: d.Conditions,
		items:      d.Items,
		store:      d.Store,
		evaluator:  dice.NewLoggedEvaluator(logger),
		in:         in,
		prompter:   &LinePrompter{in: in, out: d.Out},
		out:        d.Out,
		prompt:     d.Config.Prompt,
		logger:     logger,
		dirty:      make(map[string]bool),
	}
	s.encounter = combat.NewEncounter(s.roster, logger)
	s.handlers = map[string]handlerFunc{
		command.HandlerHelp:    s.cmdHelp,
		command.HandlerChars:   s.cmdChars,
		command.HandlerSheet:   s.cmdSheet,
		command.HandlerCheck:   s.cmdCheck,
		command.HandlerSkill:   s.cmdSkill,
		command.HandlerCond:    s.cmdCond,
		command.HandlerEquip:   s.cmdEquip,
		command.HandlerUnequip: s.cmdUnequip,
		command.HandlerLibrary: s.cmdLibrary,
		command.HandlerSave:    s.cmdSave,
		command.HandlerReload:  s.cmdReload,
		command.HandlerFight:   s.cmdFight,
		command.HandlerQuit:    s.cmdQuit,
	}
	for _, cmd := range s.registry.Commands() {
		if _, ok := s.handlers[cmd.Handler]; !ok {
			return nil, fmt.Errorf("command %q has no handler %q", cmd.Name, cmd.Handler)
		}
	}
	return s, nil
}

// Load replaces the libraries and the roster with the store's contents and
// starts a fresh encounter. Data integrity warnings are reported to the
// operator; they never fail the load.
func (s *Session) Load(ctx context.Context) error {
	if err := s.conditions.Reload(ctx); err != nil {
		return err
	}
	if err := s.items.Reload(ctx); err != nil {
		return err
	}
	persisted, warnings, err := s.store.LoadCharacters(ctx)
	if err != nil {
		return fmt.Errorf("loading characters: %w", err)
	}
	for _, c := range s.roster.List() {
		_ = s.roster.Remove(c.ID)
	}
	for _, p := range persisted {
		w, err := s.roster.Restore(p)
		if err != nil {
			warnings = append(warnings, rules.Warnf("character", "%v", err))
			continue
		}
		warnings = append(warnings, w...)
	}
	if d, ok := s.store.(storage.DegradedReporter); ok {
		warnings = append(warnings, d.Degraded()...)
	}
	s.dirty = make(map[string]bool)
	s.encounter = combat.NewEncounter(s.roster, s.logger)
	for _, w := range warnings {
		fmt.Fprintf(s.out, "warning: %s\n", w)
	}
	s.logger.Info("campaign loaded",
		zap.Int("characters", len(persisted)),
		zap.Int("conditions", s.conditions.Len()),
		zap.Int("items", len(s.items.All())),
		zap.Int("warnings", len(warnings)),
	)
	return nil
}

// Execute parses and runs one command line.
//
// Postcondition: returns ErrQuit when the operator asked to leave and ErrBusy
// when called while another command is running.
func (s *Session) Execute(ctx context.Context, line string) error {
	if !s.busy.TryLock() {
		return ErrBusy
	}
	defer s.busy.Unlock()

	parsed := command.Parse(line)
	if parsed.Command == "" {
		return nil
	}
	cmd, ok := s.registry.Resolve(parsed.Command)
	if !ok {
		return fmt.Errorf("%w %q%s", ErrUnknownCommand, parsed.Command, didYouMean(s.registry.Suggest(parsed.Command)))
	}
	s.logger.Debug("command", zap.String("name", cmd.Name), zap.Strings("args", parsed.Args))
	return s.handlers[cmd.Handler](ctx, cmd, parsed.Args)
}

// Run reads and executes commands until the operator quits, input ends, or
// ctx is done.
func (s *Session) Run(ctx context.Context) error {
	for {
		fmt.Fprint(s.out, s.prompt)
		line, err := s.in.ReadLine(ctx)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		err = s.Execute(ctx, line)
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			s.report(err)
		}
	}
}

// Start runs the console until it is stopped. It implements server.Service.
func (s *Session) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopMu.Lock()
	s.stop = cancel
	s.stopMu.Unlock()
	defer cancel()
	return s.Run(ctx)
}

// Stop ends Run at the next line boundary.
func (s *Session) Stop() {
	s.stopMu.Lock()
	defer s.stopMu.Unlock()
	if s.stop != nil {
		s.stop()
	}
}

// report prints err in operator terms.
func (s *Session) report(err error) {
	var verr *rules.ValidationError
	switch {
	case combat.IsCancelled(err):
		fmt.Fprintln(s.out, "cancelled, nothing changed")
	case errors.As(err, &verr) && len(verr.Problems) > 1:
		fmt.Fprintln(s.out, "rejected:")
		for _, p := range verr.Problems {
			fmt.Fprintf(s.out, "  - %s\n", p)
		}
	default:
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
	s.logger.Debug("command failed", zap.Error(err))
}

func (s *Session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *Session) markDirty(id string) { s.dirty[id] = true }

func (s *Session) dirtyNames() []string {
	var names []string
	for _, c := range s.roster.List() {
		if s.dirty[c.ID] {
			names = append(names, c.Name)
		}
	}
	return names
}

func usage(cmd *command.Command) error {
	return rules.Validationf("usage: %s", strings.TrimSpace(cmd.Name+" "+cmd.Usage))
}

// character resolves a character by id or fuzzy name.
func (s *Session) character(name string) (*character.Character, error) {
	if c, ok := s.roster.Get(name); ok {
		return c, nil
	}
	list := s.roster.List()
	names := make([]string, len(list))
	for i, c := range list {
		names[i] = c.Name
	}
	value, suggestions, ok := command.Match(name, names)
	if !ok {
		return nil, fmt.Errorf("%w: %q%s", character.ErrNotFound, name, didYouMean(suggestions))
	}
	c, _ := s.roster.FindByName(value)
	return c, nil
}

// libraryCondition resolves a condition by id or fuzzy name.
func (s *Session) libraryCondition(name string) (*condition.Definition, error) {
	if d, ok := s.conditions.Get(name); ok {
		return d, nil
	}
	all := s.conditions.All()
	return matchDefinition(name, all)
}

func matchDefinition(name string, defs []*condition.Definition) (*condition.Definition, error) {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	value, suggestions, ok := command.Match(name, names)
	if !ok {
		return nil, fmt.Errorf("%w: %q%s", condition.ErrNotFound, name, didYouMean(suggestions))
	}
	for _, d := range defs {
		if d.Name == value {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", condition.ErrNotFound, name)
}

// libraryItem resolves an item by id or fuzzy name.
func (s *Session) libraryItem(name string) (*inventory.Item, error) {
	if it, ok := s.items.Get(name); ok {
		return it, nil
	}
	value, suggestions, ok := command.Match(name, s.items.Names())
	if !ok {
		return nil, fmt.Errorf("%w: %q%s", inventory.ErrNotFound, name, didYouMean(suggestions))
	}
	it, _ := s.items.FindByName(value)
	return it, nil
}
