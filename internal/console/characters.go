package console

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/htbah/campaign-manager/internal/game/character"
	"github.com/htbah/campaign-manager/internal/game/command"
	"github.com/htbah/campaign-manager/internal/game/condition"
	"github.com/htbah/campaign-manager/internal/game/dice"
	"github.com/htbah/campaign-manager/internal/game/rules"
)

func (s *Session) cmdChars(_ context.Context, _ *command.Command, _ []string) error {
	list := s.roster.List()
	if len(list) == 0 {
		s.printf("no characters loaded\n")
		return nil
	}
	tw := newTable(s.out)
	fmt.Fprintln(tw, "NAME\tROLE\tHP\tPOINTS LEFT\tCONDITIONS\t")
	for _, c := range list {
		sh, err := s.roster.Sheet(c.ID)
		if err != nil {
			return err
		}
		name := c.Name
		if s.dirty[c.ID] {
			name += " *"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t\n", name, c.Role, sh.HitPoints, sh.Derived.Remaining, len(sh.Active))
	}
	return tw.Flush()
}

func (s *Session) cmdSheet(_ context.Context, cmd *command.Command, args []string) error {
	if len(args) != 1 {
		return usage(cmd)
	}
	c, err := s.character(args[0])
	if err != nil {
		return err
	}
	sh, err := s.roster.Sheet(c.ID)
	if err != nil {
		return err
	}
	writeSheet(s.out, sh, func(condID string) []condition.Source {
		return s.roster.Ledger().Sources(c.ID, condID)
	})
	return nil
}

func (s *Session) cmdCheck(_ context.Context, cmd *command.Command, args []string) error {
	if len(args) < 3 || len(args) > 4 {
		return usage(cmd)
	}
	c, err := s.character(args[0])
	if err != nil {
		return err
	}
	sh, err := s.roster.Sheet(c.ID)
	if err != nil {
		return err
	}
	name, err := matchName(args[1], character.CheckNames(c.Skills), "skill or category")
	if err != nil {
		return err
	}
	chk, err := sh.Check(name)
	if err != nil {
		return err
	}
	rolled, err := dice.ParseRoll(args[2])
	if err != nil {
		return err
	}
	bonus := 0
	if len(args) == 4 {
		if bonus, err = dice.ParseModifier(args[3]); err != nil {
			return err
		}
	}
	res, err := s.evaluator.Evaluate(chk.Chance, bonus, rolled)
	if err != nil {
		return err
	}
	s.printf("%s\n", checkLine(c.Name, chk, res, bonus))
	return nil
}

func (s *Session) cmdSkill(_ context.Context, cmd *command.Command, args []string) error {
	if len(args) < 3 {
		return usage(cmd)
	}
	c, err := s.character(args[1])
	if err != nil {
		return err
	}
	var change func(character.SkillSet) error
	var done string
	switch strings.ToLower(args[0]) {
	case "set":
		if len(args) != 4 {
			return usage(cmd)
		}
		skill, err := matchName(args[2], skillNames(c.Skills), "skill")
		if err != nil {
			return err
		}
		value, err := parseValue(args[3])
		if err != nil {
			return err
		}
		change = func(set character.SkillSet) error { return set.SetSkill(skill, value) }
		done = fmt.Sprintf("%s = %d", skill, value)
	case "add":
		if len(args) != 5 {
			return usage(cmd)
		}
		cat := args[2]
		if existing, _, ok := command.Match(cat, c.Skills.Categories()); ok && strings.EqualFold(existing, cat) {
			cat = existing
		}
		skill := strings.TrimSpace(args[3])
		value, err := parseValue(args[4])
		if err != nil {
			return err
		}
		change = func(set character.SkillSet) error { return set.AddSkill(cat, skill, value) }
		done = fmt.Sprintf("%s added to %s with %d", skill, cat, value)
	case "remove", "rm":
		if len(args) != 3 {
			return usage(cmd)
		}
		skill, err := matchName(args[2], skillNames(c.Skills), "skill")
		if err != nil {
			return err
		}
		change = func(set character.SkillSet) error { return set.RemoveSkill(skill) }
		done = skill + " removed"
	default:
		return usage(cmd)
	}
	if err := s.roster.UpdateSkills(c.ID, change); err != nil {
		return err
	}
	s.markDirty(c.ID)
	s.printf("%s: %s, %d of %d points left\n", c.Name, done, c.Skills.Remaining(), rules.SkillPointPool)
	return nil
}

func (s *Session) cmdCond(_ context.Context, cmd *command.Command, args []string) error {
	if len(args) < 2 {
		return usage(cmd)
	}
	c, err := s.character(args[1])
	if err != nil {
		return err
	}
	switch strings.ToLower(args[0]) {
	case "list", "ls":
		active := s.roster.Ledger().Active(c.ID)
		if len(active) == 0 {
			s.printf("%s has no active conditions\n", c.Name)
			return nil
		}
		for _, d := range active {
			s.printf("%s  (%s)\n", d.Summary(), sourceList(s.roster.Ledger().Sources(c.ID, d.ID)))
		}
		return nil
	case "add":
		if len(args) != 3 {
			return usage(cmd)
		}
		d, err := s.libraryCondition(args[2])
		if err != nil {
			return err
		}
		warn, err := s.roster.AddCondition(c.ID, d.ID)
		if err != nil {
			return err
		}
		s.markDirty(c.ID)
		s.printf("%s now has %s\n", c.Name, d.Summary())
		if warn != nil {
			s.printf("warning: %s\n", warn)
		}
		return nil
	case "remove", "rm":
		if len(args) != 3 {
			return usage(cmd)
		}
		d, err := matchDefinition(args[2], s.roster.Ledger().Active(c.ID))
		if err != nil {
			return err
		}
		if err := s.roster.RemoveCondition(c.ID, d.ID); err != nil {
			return err
		}
		s.markDirty(c.ID)
		if s.roster.Ledger().IsActive(c.ID, d.ID) {
			s.printf("%s: manual %s removed, still granted by an item\n", c.Name, d.Name)
		} else {
			s.printf("%s no longer has %s\n", c.Name, d.Name)
		}
		return nil
	default:
		return usage(cmd)
	}
}

func (s *Session) cmdEquip(_ context.Context, cmd *command.Command, args []string) error {
	if len(args) != 2 {
		return usage(cmd)
	}
	c, err := s.character(args[0])
	if err != nil {
		return err
	}
	it, err := s.libraryItem(args[1])
	if err != nil {
		return err
	}
	warnings, err := s.roster.Equip(c.ID, it)
	if err != nil {
		return err
	}
	s.markDirty(c.ID)
	s.printf("%s equips %s\n", c.Name, itemLine(it))
	for _, w := range warnings {
		s.printf("warning: %s\n", w)
	}
	return nil
}

func (s *Session) cmdUnequip(_ context.Context, cmd *command.Command, args []string) error {
	if len(args) != 2 {
		return usage(cmd)
	}
	c, err := s.character(args[0])
	if err != nil {
		return err
	}
	names := make([]string, len(c.Items))
	for i, it := range c.Items {
		names[i] = it.Name
	}
	name, err := matchName(args[1], names, "equipped item")
	if err != nil {
		return err
	}
	if err := s.roster.Unequip(c.ID, name); err != nil {
		return err
	}
	s.markDirty(c.ID)
	s.printf("%s puts away %s\n", c.Name, name)
	return nil
}

func (s *Session) cmdLibrary(_ context.Context, cmd *command.Command, args []string) error {
	if len(args) != 1 {
		return usage(cmd)
	}
	switch strings.ToLower(args[0]) {
	case "conditions", "cond", "c":
		all := s.conditions.All()
		if len(all) == 0 {
			s.printf("the condition library is empty\n")
		}
		for _, d := range all {
			s.printf("%s\n", d.Summary())
		}
	case "items", "item", "i":
		all := s.items.All()
		if len(all) == 0 {
			s.printf("the item library is empty\n")
		}
		for _, it := range all {
			s.printf("%s\n", itemLine(it))
		}
	default:
		return usage(cmd)
	}
	return nil
}

// matchName resolves input against names or explains what was close.
func matchName(input string, names []string, kind string) (string, error) {
	value, suggestions, ok := command.Match(input, names)
	if !ok {
		return "", rules.Validationf("unknown %s %q%s", kind, input, didYouMean(suggestions))
	}
	return value, nil
}

func skillNames(set character.SkillSet) []string {
	var out []string
	for _, cat := range set.Categories() {
		out = append(out, set.SkillNames(cat)...)
	}
	return out
}

func parseValue(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, rules.Validationf("value %q is not a whole number", s)
	}
	return n, nil
}
