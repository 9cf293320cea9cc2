package config

// PageConfig holds page-specific configuration for a single exam host.
// This allows customizing detection behavior per exam platform: hosted
// platforms differ in language and in how much window chrome they draw,
// which affects both the warning texts and the devtools threshold.
type PageConfig struct {
	// TabSwitchMessage overrides the warning text for page-hidden transitions.
	// If empty, the global message is used.
	TabSwitchMessage string `yaml:"tabSwitchMessage,omitempty"`

	// FocusLossMessage overrides the warning text for window-blur transitions.
	// If empty, the global message is used.
	FocusLossMessage string `yaml:"focusLossMessage,omitempty"`

	// DevtoolsMessage overrides the warning text for devtools detections.
	// If empty, the global message is used.
	DevtoolsMessage string `yaml:"devtoolsMessage,omitempty"`

	// DevtoolsThreshold overrides the dimension delta in pixels above which
	// devtools are suspected. If zero, the global threshold is used.
	// Raise this for platforms that draw sidebars or embedded toolbars.
	DevtoolsThreshold int `yaml:"devtoolsThreshold,omitempty"`
}

// File represents the structure of the .examwatch configuration file.
type File struct {
	// Pages maps exam hosts to their page-specific configurations.
	// Keys should be the host without the protocol (e.g., "exam.example.edu").
	Pages map[string]PageConfig `yaml:"pages,omitempty"`

	// Defaults contains default page configuration applied to all hosts
	// unless overridden in the page-specific configuration.
	Defaults PageConfig `yaml:"defaults,omitempty"`
}

// GetPageConfig returns the configuration for a specific exam host.
// It merges the page-specific configuration with defaults.
func (cf *File) GetPageConfig(host string) PageConfig {
	// Start with defaults
	result := cf.Defaults

	// Override with page-specific configuration if present
	if pageConfig, ok := cf.Pages[host]; ok {
		if pageConfig.TabSwitchMessage != "" {
			result.TabSwitchMessage = pageConfig.TabSwitchMessage
		}
		if pageConfig.FocusLossMessage != "" {
			result.FocusLossMessage = pageConfig.FocusLossMessage
		}
		if pageConfig.DevtoolsMessage != "" {
			result.DevtoolsMessage = pageConfig.DevtoolsMessage
		}
		if pageConfig.DevtoolsThreshold != 0 {
			result.DevtoolsThreshold = pageConfig.DevtoolsThreshold
		}
	}

	return result
}
