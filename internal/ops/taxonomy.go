package ops

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// groupCategories lists the categories each help group may hold.
var groupCategories = map[CommandGroup][]CommandCategory{
	GroupIngest:   {CategoryPipeline, CategoryValidation},
	GroupWorkflow: {CategoryRecovery, CategoryVCS},
	GroupSupport:  {CategoryInformation, CategoryUtility},
}

// CheckTaxonomy reports every registered command without a known group or
// a category belonging to that group, and every subcommand of root that
// was never registered and so would be missing from the grouped help.
func CheckTaxonomy(r *Registry, root *cobra.Command) []string {
	var problems []string
	for name, c := range r.GetAllCommands() {
		allowed, ok := groupCategories[c.Group]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: unknown group %q", name, c.Group))
			continue
		}
		if !containsCategory(allowed, c.Category) {
			problems = append(problems, fmt.Sprintf("%s: category %q not allowed in group %s", name, c.Category, c.Group))
		}
	}
	if root != nil {
		for _, sub := range root.Commands() {
			if sub.Hidden || sub.Name() == "help" || sub.Name() == "completion" {
				continue
			}
			if _, ok := r.GetCommand(sub.Name()); !ok {
				problems = append(problems, fmt.Sprintf("%s: not registered", sub.Name()))
			}
		}
	}
	sort.Strings(problems)
	return problems
}

func containsCategory(list []CommandCategory, c CommandCategory) bool {
	for _, v := range list {
		if v == c {
			return true
		}
	}
	return false
}
