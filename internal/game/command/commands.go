// Package command provides the console command registry, the line parser,
// fuzzy name matching, and the built-in command definitions.
package command

// Categories for organizing commands.
const (
	CategoryCharacter = "character"
	CategoryLibrary   = "library"
	CategoryCombat    = "combat"
	CategorySystem    = "system"
)

// Handler identifiers mapping commands to console handlers.
const (
	HandlerHelp    = "help"
	HandlerChars   = "chars"
	HandlerSheet   = "sheet"
	HandlerCheck   = "check"
	HandlerSkill   = "skill"
	HandlerCond    = "cond"
	HandlerEquip   = "equip"
	HandlerUnequip = "unequip"
	HandlerLibrary = "library"
	HandlerSave    = "save"
	HandlerReload  = "reload"
	HandlerFight   = "fight"
	HandlerQuit    = "quit"
)

// Command defines an operator command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Usage is the argument synopsis shown by help.
	Usage string
	// Help is the short help text.
	Help string
	// Category groups the command for help output.
	Category string
	// Handler maps to the console handler.
	Handler string
}

// BuiltinCommands returns all built-in console commands.
func BuiltinCommands() []Command {
	return []Command{
		// Character commands
		{Name: "chars", Aliases: []string{"ls", "characters"}, Help: "List loaded characters", Category: CategoryCharacter, Handler: HandlerChars},
		{Name: "sheet", Aliases: []string{"show"}, Usage: "<character>", Help: "Show a character sheet with effective values", Category: CategoryCharacter, Handler: HandlerSheet},
		{Name: "check", Aliases: []string{"roll", "probe"}, Usage: "<character> <skill|category> <roll> [bonus]", Help: "Evaluate a skill check", Category: CategoryCharacter, Handler: HandlerCheck},
		{Name: "skill", Aliases: []string{"sk"}, Usage: "set|add|remove <character> ...", Help: "Edit skills within the point budget", Category: CategoryCharacter, Handler: HandlerSkill},
		{Name: "cond", Aliases: []string{"condition", "zustand"}, Usage: "list|add|remove <character> [condition]", Help: "Show or change active conditions", Category: CategoryCharacter, Handler: HandlerCond},
		{Name: "equip", Aliases: []string{"eq"}, Usage: "<character> <item>", Help: "Equip an item from the library", Category: CategoryCharacter, Handler: HandlerEquip},
		{Name: "unequip", Aliases: []string{"ueq"}, Usage: "<character> <item>", Help: "Remove an equipped item", Category: CategoryCharacter, Handler: HandlerUnequip},

		// Library commands
		{Name: "library", Aliases: []string{"lib"}, Usage: "conditions|items", Help: "List the condition or item library", Category: CategoryLibrary, Handler: HandlerLibrary},

		// Combat commands
		{Name: "fight", Aliases: []string{"f", "kampf"}, Usage: "add|remove|team|surprise|start|next|reset|turn|hp|damage|status|end ...", Help: "Run an encounter", Category: CategoryCombat, Handler: HandlerFight},

		// System commands
		{Name: "save", Aliases: []string{"w"}, Usage: "[character]", Help: "Save one or all characters and the libraries", Category: CategorySystem, Handler: HandlerSave},
		{Name: "reload", Aliases: nil, Usage: "[force]", Help: "Reload characters and libraries from storage", Category: CategorySystem, Handler: HandlerReload},
		{Name: "quit", Aliases: []string{"exit", "q"}, Help: "Leave the console", Category: CategorySystem, Handler: HandlerQuit},
		{Name: "help", Aliases: []string{"?", "h"}, Usage: "[command]", Help: "Show available commands", Category: CategorySystem, Handler: HandlerHelp},
	}
}

// FightSubcommands lists the subcommands accepted by fight, in help order.
var FightSubcommands = []string{
	"add", "remove", "team", "surprise", "start", "next", "reset", "turn", "hp", "damage", "status", "end",
}
