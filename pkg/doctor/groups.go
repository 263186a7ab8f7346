package doctor

import "runtime"

// groupDefinition describes a check group.
type groupDefinition struct {
	Name        string
	Description string
	Platform    string
}

// groupDefinitions defines the check groups with their metadata.
var groupDefinitions = map[string]groupDefinition{
	GroupHost: {
		Name:        "Host",
		Description: "Docker, KVM and privileges needed to install and run the VM",
		Platform:    PlatformLinux,
	},
	GroupToolchains: {
		Name:        "Toolchains",
		Description: "Language toolchains and editors from the component catalog",
	},
	GroupAI: {
		Name:        "AI Assistants",
		Description: "Enabled AI CLIs and their API keys",
	},
}

// groupOrder is the display order.
var groupOrder = []string{GroupHost, GroupToolchains, GroupAI}

// GetGroups returns all check groups applicable to the platform, in
// display order.
func GetGroups(platform string) []CheckGroup {
	if platform == "" {
		platform = runtime.GOOS
	}

	var groups []CheckGroup
	for _, groupID := range groupOrder {
		def := groupDefinitions[groupID]
		// Skip if group is for a different platform
		if def.Platform != "" && def.Platform != platform {
			continue
		}
		groups = append(groups, CheckGroup{
			ID:          groupID,
			Name:        def.Name,
			Description: def.Description,
			Platform:    def.Platform,
		})
	}
	return groups
}

// GetGroupDefinition returns the definition for a specific group.
func GetGroupDefinition(groupID string) (groupDefinition, bool) {
	def, ok := groupDefinitions[groupID]
	return def, ok
}
