// Package ops classifies the CLI's commands into help groups and
// functional categories.
package ops

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/cobra"
)

// CommandGroup represents the operational classification of commands
type CommandGroup string

const (
	GroupIngest   CommandGroup = "ingest"   // ingest, validate
	GroupWorkflow CommandGroup = "workflow" // rollback, cleanup, commit
	GroupSupport  CommandGroup = "support"  // slug, version
)

// CommandCategory is the functional area of a command within its group.
type CommandCategory string

const (
	CategoryPipeline    CommandCategory = "pipeline"
	CategoryValidation  CommandCategory = "validation"
	CategoryRecovery    CommandCategory = "recovery"
	CategoryVCS         CommandCategory = "vcs"
	CategoryInformation CommandCategory = "information"
	CategoryUtility     CommandCategory = "utility"
)

// CommandRegistration represents a registered command with its classification
type CommandRegistration struct {
	Name        string
	Group       CommandGroup
	Category    CommandCategory
	Command     *cobra.Command
	Description string
}

// Registry manages command classifications and registrations
type Registry struct {
	mu         sync.RWMutex
	commands   map[string]*CommandRegistration
	groupIndex map[CommandGroup][]*CommandRegistration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands:   make(map[string]*CommandRegistration),
		groupIndex: make(map[CommandGroup][]*CommandRegistration),
	}
}

var globalRegistry = NewRegistry()

// GetRegistry returns the global command registry
func GetRegistry() *Registry {
	return globalRegistry
}

// RegisterCommand registers a command with its operational classification
func RegisterCommand(name string, group CommandGroup, cmd *cobra.Command, description string) error {
	return GetRegistry().Register(name, group, "", cmd, description)
}

// RegisterCommandWithTaxonomy registers a command with both group and category.
func RegisterCommandWithTaxonomy(name string, group CommandGroup, category CommandCategory, cmd *cobra.Command, description string) error {
	return GetRegistry().Register(name, group, category, cmd, description)
}

// Register adds a command to the registry
func (r *Registry) Register(name string, group CommandGroup, category CommandCategory, cmd *cobra.Command, description string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[name]; exists {
		return fmt.Errorf("command %s already registered", name)
	}

	registration := &CommandRegistration{
		Name:        name,
		Group:       group,
		Category:    category,
		Command:     cmd,
		Description: description,
	}

	r.commands[name] = registration
	r.groupIndex[group] = append(r.groupIndex[group], registration)
	return nil
}

// GetCommand returns a registered command by name
func (r *Registry) GetCommand(name string) (*CommandRegistration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, exists := r.commands[name]
	return cmd, exists
}

// GetCommandsByGroup returns the commands of a group sorted by name.
func (r *Registry) GetCommandsByGroup(group CommandGroup) []*CommandRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]*CommandRegistration(nil), r.groupIndex[group]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetAllCommands returns all registered commands
func (r *Registry) GetAllCommands() map[string]*CommandRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*CommandRegistration, len(r.commands))
	for k, v := range r.commands {
		result[k] = v
	}
	return result
}

// ListGroups returns all command groups and their command counts
func (r *Registry) ListGroups() map[CommandGroup]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[CommandGroup]int)
	for group, commands := range r.groupIndex {
		result[group] = len(commands)
	}
	return result
}
