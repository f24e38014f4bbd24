package console

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/htbah/campaign-manager/internal/game/combat"
	"github.com/htbah/campaign-manager/internal/game/command"
	"github.com/htbah/campaign-manager/internal/game/rules"
)

func (s *Session) cmdFight(ctx context.Context, cmd *command.Command, args []string) error {
	if len(args) == 0 {
		return usage(cmd)
	}
	sub, err := matchName(args[0], command.FightSubcommands, "fight subcommand")
	if err != nil {
		return err
	}
	rest := args[1:]
	switch sub {
	case "add":
		return s.fightAdd(rest)
	case "remove":
		return s.fightRemove(rest)
	case "team":
		return s.fightTeam(rest)
	case "surprise":
		return s.fightSurprise(rest)
	case "start":
		return s.fightStart(ctx)
	case "next":
		tc, err := s.encounter.AdvanceTurn()
		if err != nil {
			return err
		}
		s.printf("%s\n", turnLine(tc))
		return nil
	case "reset":
		tc, err := s.encounter.ResetRound()
		if err != nil {
			return err
		}
		s.printf("round %d restarted\n%s\n", tc.Round, turnLine(tc))
		return nil
	case "turn":
		return s.fightTurn(ctx)
	case "hp":
		return s.fightHP(rest)
	case "damage":
		return s.fightDamage(rest)
	case "status":
		return s.fightStatus()
	case "end":
		s.encounter = combat.NewEncounter(s.roster, s.logger)
		s.printf("encounter closed\n")
		return nil
	}
	return usage(cmd)
}

// fight add <character> [count] [team]
func (s *Session) fightAdd(args []string) error {
	if len(args) < 1 || len(args) > 3 {
		return rules.Validationf("usage: fight add <character> [count] [team]")
	}
	c, err := s.character(args[0])
	if err != nil {
		return err
	}
	count := 1
	team := s.encounter.Teams()[0]
	if len(args) >= 2 {
		if count, err = strconv.Atoi(args[1]); err != nil {
			return rules.Validationf("count %q is not a whole number", args[1])
		}
	}
	if len(args) == 3 {
		if team, err = matchName(args[2], s.encounter.Teams(), "team"); err != nil {
			return err
		}
	}
	actors, err := s.encounter.AddCombatants(c.ID, team, count)
	if err != nil {
		return err
	}
	for _, a := range actors {
		s.printf("%s joins %s with %d HP\n", a.Name, a.Team, a.MaxHP)
	}
	if s.encounter.Started() {
		s.printf("the fight is running; new combatants act after the next start\n")
	}
	return nil
}

// fight remove <actor>
func (s *Session) fightRemove(args []string) error {
	if len(args) != 1 {
		return rules.Validationf("usage: fight remove <combatant>")
	}
	a, err := s.actor(args[0])
	if err != nil {
		return err
	}
	if err := s.encounter.Remove(a.InstanceID); err != nil {
		return err
	}
	s.printf("%s leaves the fight\n", a.Name)
	return nil
}

// fight team <name> adds a team; fight team <combatant> <team> moves a combatant.
func (s *Session) fightTeam(args []string) error {
	switch len(args) {
	case 1:
		if err := s.encounter.AddTeam(args[0]); err != nil {
			return err
		}
		s.printf("teams: %s\n", strings.Join(s.encounter.Teams(), ", "))
		return nil
	case 2:
		a, err := s.actor(args[0])
		if err != nil {
			return err
		}
		team, err := matchName(args[1], s.encounter.Teams(), "team")
		if err != nil {
			return err
		}
		if err := s.encounter.AssignTeam(a.InstanceID, team); err != nil {
			return err
		}
		s.printf("%s fights for %s\n", a.Name, team)
		return nil
	default:
		return rules.Validationf("usage: fight team <name> | fight team <combatant> <team>")
	}
}

// fight surprise [combatant...] replaces the surprised set; no names clears it.
func (s *Session) fightSurprise(args []string) error {
	ids := make([]string, 0, len(args))
	names := make([]string, 0, len(args))
	for _, arg := range args {
		a, err := s.actor(arg)
		if err != nil {
			return err
		}
		ids = append(ids, a.InstanceID)
		names = append(names, a.Name)
	}
	if err := s.encounter.SetSurprised(ids); err != nil {
		return err
	}
	if len(names) == 0 {
		s.printf("nobody is surprised\n")
		return nil
	}
	s.printf("surprised in round 1: %s\n", strings.Join(names, ", "))
	return nil
}

// fightStart asks for every combatant's initiative roll and bonus, then
// orders the fight.
func (s *Session) fightStart(ctx context.Context) error {
	actors := s.encounter.Actors()
	if len(actors) == 0 {
		return rules.Validationf("no combatants in the encounter")
	}
	rolls := make([]combat.InitiativeRoll, 0, len(actors))
	for _, a := range actors {
		rolled, err := s.prompter.Number(ctx, fmt.Sprintf("Initiative W10 for %s", a.Name), false)
		if err != nil {
			return err
		}
		bonus, err := s.prompter.Number(ctx, fmt.Sprintf("Initiative bonus for %s", a.Name), true)
		if err != nil {
			return err
		}
		rolls = append(rolls, combat.InitiativeRoll{InstanceID: a.InstanceID, Rolled: rolled, Bonus: bonus})
	}
	tc, err := s.encounter.Start(rolls)
	if err != nil {
		return err
	}
	tw := newTable(s.out)
	fmt.Fprintln(tw, "#\tNAME\tTEAM\tROLL\tHANDELN\tBONUS\tTOTAL\t")
	for i, e := range s.encounter.Initiative() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%+d\t%d\t\n", i+1, e.Actor.Name, e.Actor.Team, e.Rolled, e.ActionScore, e.Bonus, e.Total())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	s.printf("%s\n", turnLine(tc))
	return nil
}

func (s *Session) fightTurn(ctx context.Context) error {
	rep, err := s.encounter.ExecuteTurn(ctx, s.prompter)
	if err != nil {
		return err
	}
	for _, ev := range rep.Events {
		s.printf("%s\n", ev)
	}
	if rep.DamageReport != nil {
		s.printf("%s\n", damageLine(*rep.DamageReport))
	}
	return nil
}

// fight hp <combatant> <delta>
func (s *Session) fightHP(args []string) error {
	if len(args) != 2 {
		return rules.Validationf("usage: fight hp <combatant> <+/-amount>")
	}
	a, err := s.actor(args[0])
	if err != nil {
		return err
	}
	delta, err := parseSigned(args[1])
	if err != nil {
		return err
	}
	after, err := s.encounter.AdjustHP(a.InstanceID, delta)
	if err != nil {
		return err
	}
	s.printf("%s: %d/%d HP (%s)\n", after.Name, after.CurrentHP, after.MaxHP, after.Status())
	return nil
}

// fight damage <combatant> <amount>
func (s *Session) fightDamage(args []string) error {
	if len(args) != 2 {
		return rules.Validationf("usage: fight damage <combatant> <amount>")
	}
	a, err := s.actor(args[0])
	if err != nil {
		return err
	}
	amount, err := parseSigned(args[1])
	if err != nil {
		return err
	}
	rep, err := s.encounter.ApplyDamage(a.InstanceID, amount)
	if err != nil {
		return err
	}
	s.printf("%s\n", damageLine(rep))
	return nil
}

func (s *Session) fightStatus() error {
	actors := s.encounter.Actors()
	if s.encounter.Started() {
		actors = s.encounter.Order()
		cur, _ := s.encounter.Current()
		s.printf("round %d, %s's turn\n", s.encounter.Round(), cur.Name)
	} else {
		s.printf("not started; teams: %s\n", strings.Join(s.encounter.Teams(), ", "))
	}
	if len(actors) == 0 {
		s.printf("no combatants\n")
		return nil
	}
	tw := newTable(s.out)
	fmt.Fprintln(tw, "NAME\tTEAM\tHP\tSTATUS\tPARRY\tROUND DMG\t")
	for _, a := range actors {
		parry := "ready"
		if !s.encounter.CanParry(a.InstanceID) {
			parry = "used"
		}
		status := a.Status().String()
		if s.encounter.IsSurprisedBlocked(a.InstanceID) {
			status += ", surprised"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\t%s\t%d\t\n", a.Name, a.Team, a.CurrentHP, a.MaxHP, status, parry, s.encounter.RoundDamage(a.InstanceID))
	}
	return tw.Flush()
}

// actor resolves a combatant by instance id or fuzzy name.
func (s *Session) actor(name string) (combat.Actor, error) {
	if a, ok := s.encounter.Actor(name); ok {
		return a, nil
	}
	actors := s.encounter.Actors()
	names := make([]string, len(actors))
	for i, a := range actors {
		names[i] = a.Name
	}
	value, suggestions, ok := command.Match(name, names)
	if !ok {
		return combat.Actor{}, fmt.Errorf("%w: %q%s", combat.ErrActorNotFound, name, didYouMean(suggestions))
	}
	for _, a := range actors {
		if a.Name == value {
			return a, nil
		}
	}
	return combat.Actor{}, fmt.Errorf("%w: %q", combat.ErrActorNotFound, name)
}

func parseSigned(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, rules.Validationf("amount %q is not a whole number", s)
	}
	return n, nil
}
