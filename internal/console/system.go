package console

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/htbah/campaign-manager/internal/game/command"
	"github.com/htbah/campaign-manager/internal/game/rules"
)

var helpOrder = []string{command.CategoryCharacter, command.CategoryLibrary, command.CategoryCombat, command.CategorySystem}

func (s *Session) cmdHelp(_ context.Context, _ *command.Command, args []string) error {
	if len(args) > 0 {
		cmd, ok := s.registry.Resolve(strings.ToLower(args[0]))
		if !ok {
			return fmt.Errorf("%w %q%s", ErrUnknownCommand, args[0], didYouMean(s.registry.Suggest(args[0])))
		}
		s.printf("%s %s\n  %s\n", cmd.Name, cmd.Usage, cmd.Help)
		if len(cmd.Aliases) > 0 {
			s.printf("  aliases: %s\n", strings.Join(cmd.Aliases, ", "))
		}
		return nil
	}
	byCat := s.registry.CommandsByCategory()
	for _, cat := range helpOrder {
		cmds := byCat[cat]
		if len(cmds) == 0 {
			continue
		}
		s.printf("%s:\n", cat)
		tw := newTable(s.out)
		for _, cmd := range cmds {
			fmt.Fprintf(tw, "  %s %s\t%s\t\n", cmd.Name, cmd.Usage, cmd.Help)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	s.printf("Names with spaces go in double quotes. Type cancel at any question to abort.\n")
	return nil
}

// cmdSave writes one character, or every character plus both libraries.
// Characters failing validation are reported and left unsaved.
func (s *Session) cmdSave(ctx context.Context, cmd *command.Command, args []string) error {
	if len(args) > 1 {
		return usage(cmd)
	}
	ids := make([]string, 0)
	if len(args) == 1 {
		c, err := s.character(args[0])
		if err != nil {
			return err
		}
		ids = append(ids, c.ID)
	} else {
		for _, c := range s.roster.List() {
			ids = append(ids, c.ID)
		}
	}

	var problems rules.Problems
	saved := 0
	for _, id := range ids {
		p, err := s.roster.Snapshot(id)
		if err != nil {
			return err
		}
		if err := p.Character.Validate(); err != nil {
			problems.Addf("%s not saved: %v", p.Character.Name, err)
			continue
		}
		if err := s.store.SaveCharacter(ctx, p); err != nil {
			return fmt.Errorf("saving %s: %w", p.Character.Name, err)
		}
		delete(s.dirty, id)
		saved++
	}
	var flushErr error
	if len(args) == 0 {
		flushErr = errors.Join(s.conditions.Flush(ctx), s.items.Flush(ctx))
	}
	s.logger.Info("campaign saved", zap.Int("characters", saved), zap.Int("rejected", len(problems)))
	s.printf("saved %d character(s)\n", saved)
	return errors.Join(flushErr, problems.Err())
}

func (s *Session) cmdReload(ctx context.Context, _ *command.Command, args []string) error {
	force := len(args) == 1 && strings.EqualFold(args[0], "force")
	if names := s.dirtyNames(); len(names) > 0 && !force {
		return rules.Validationf("unsaved changes for %s; use \"reload force\" to discard them", strings.Join(names, ", "))
	}
	if err := s.Load(ctx); err != nil {
		return err
	}
	s.printf("loaded %d character(s), %d condition(s), %d item(s)\n",
		len(s.roster.List()), s.conditions.Len(), len(s.items.All()))
	return nil
}

func (s *Session) cmdQuit(ctx context.Context, _ *command.Command, _ []string) error {
	if names := s.dirtyNames(); len(names) > 0 {
		ok, err := s.prompter.Confirm(ctx, fmt.Sprintf("Discard unsaved changes for %s?", strings.Join(names, ", ")))
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
	return ErrQuit
}
