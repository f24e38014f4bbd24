package console

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/htbah/campaign-manager/internal/game/character"
	"github.com/htbah/campaign-manager/internal/game/combat"
	"github.com/htbah/campaign-manager/internal/game/condition"
	"github.com/htbah/campaign-manager/internal/game/dice"
	"github.com/htbah/campaign-manager/internal/game/inventory"
	"github.com/htbah/campaign-manager/internal/game/rules"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// writeSheet renders a full character sheet. sources lists who holds each
// active condition.
func writeSheet(w io.Writer, sh *character.Sheet, sources func(condID string) []condition.Source) {
	c := sh.Character
	fmt.Fprintf(w, "%s (%s)  id %s\n", c.Name, c.Role, c.ID)
	if line := profileLine(c.Profile); line != "" {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "Hit points: %d (base %d)   Damage: %s", sh.HitPoints, c.HitPoints, c.BaseDamage)
	if c.Armor.Enabled {
		fmt.Fprintf(w, "   Armor: %d, condition %d", c.Armor.Value, c.Armor.Condition)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Skill points: %d of %d used, %d remaining\n", sh.Derived.Total, rules.SkillPointPool, sh.Derived.Remaining)

	tw := newTable(w)
	fmt.Fprintln(tw, "\tBASE\tEFFECTIVE\tINSPIRATION")
	for _, cat := range c.Skills.Categories() {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", cat, sh.Derived.Categories[cat], sh.Effective.Categories[cat], sh.Inspiration[cat])
		for _, skill := range c.Skills.SkillNames(cat) {
			raw, _ := c.Skills.Value(skill)
			fmt.Fprintf(tw, "  %s\t%d\t%d\t\n", skill, raw, sh.Effective.Skills[skill])
		}
	}
	tw.Flush()

	if len(c.Items) > 0 {
		fmt.Fprintln(w, "Items:")
		for _, it := range c.Items {
			fmt.Fprintf(w, "  %s\n", itemLine(it))
		}
	}
	if len(sh.Active) > 0 {
		fmt.Fprintln(w, "Conditions:")
		for _, d := range sh.Active {
			fmt.Fprintf(w, "  %s  (%s)\n", d.Summary(), sourceList(sources(d.ID)))
		}
	}
	for _, warn := range sh.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

func profileLine(p character.Profile) string {
	var parts []string
	add := func(label, v string) {
		if v != "" {
			parts = append(parts, label+": "+v)
		}
	}
	add("Class", p.Class)
	add("Gender", p.Gender)
	if p.Age > 0 {
		parts = append(parts, fmt.Sprintf("Age: %d", p.Age))
	}
	add("Build", p.Build)
	add("Religion", p.Religion)
	add("Occupation", p.Occupation)
	add("Marital status", p.MaritalStatus)
	return strings.Join(parts, "  ")
}

func itemLine(it *inventory.Item) string {
	var b strings.Builder
	b.WriteString(it.Name)
	if it.IsWeapon {
		fmt.Fprintf(&b, " [weapon %s", it.DamageFormula)
		if it.WeaponCategory != "" {
			fmt.Fprintf(&b, ", %s", it.WeaponCategory)
		}
		b.WriteString("]")
	}
	if len(it.LinkedConditions) > 0 {
		fmt.Fprintf(&b, " grants %d condition(s)", len(it.LinkedConditions))
	}
	return b.String()
}

func sourceList(sources []condition.Source) string {
	parts := make([]string, len(sources))
	for i, src := range sources {
		parts[i] = src.String()
	}
	return strings.Join(parts, ", ")
}

// checkLine renders one evaluated check.
func checkLine(name string, chk character.Check, res dice.Result, bonus int) string {
	label := chk.Name
	if !chk.IsCategory {
		label = fmt.Sprintf("%s (%s)", chk.Name, chk.Category)
	}
	return fmt.Sprintf("%s: %s %d %+d = %d, rolled %d: %s (critical success <= %d, critical failure >= %d)",
		name, label, chk.Chance, bonus, res.FinalChance, res.Rolled, res.Outcome(),
		res.CritSuccessThreshold, dice.MaxRoll-res.CritFailThreshold+1)
}

func turnLine(tc combat.TurnChange) string {
	var b strings.Builder
	for _, sk := range tc.Skipped {
		fmt.Fprintf(&b, "%s is skipped (%s)\n", sk.Actor.Name, sk.Reason)
	}
	if tc.NewRound {
		fmt.Fprintf(&b, "--- round %d ---\n", tc.Round)
	}
	fmt.Fprintf(&b, "round %d: %s's turn", tc.Round, tc.Actor.Name)
	return b.String()
}

func damageLine(rep combat.DamageReport) string {
	line := fmt.Sprintf("%s takes %d damage: %d -> %d/%d HP (%d this round)",
		rep.TargetName, rep.Amount, rep.HPBefore, rep.HPAfter, rep.MaxHP, rep.RoundDamage)
	switch {
	case rep.BecameDead:
		line += ", dead"
	case rep.BecameUnconscious:
		line += ", unconscious"
	}
	return line
}
