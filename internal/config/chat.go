package config

// ChatConfig tunes the interactive session.
type ChatConfig struct {
	HistoryLimit     int    `json:"history_limit,omitempty"`     // default 40
	SupplyBudget     int    `json:"supply_budget,omitempty"`     // characters, default 12000
	ConstitutionPath string `json:"constitution_path,omitempty"` // default constitution/ideation.md
	DraftsDir        string `json:"drafts_dir,omitempty"`        // default paper/sections
	NotesDir         string `json:"notes_dir,omitempty"`         // default notes
	Greeting         *bool  `json:"greeting,omitempty"`          // default true
	Render           *bool  `json:"render,omitempty"`            // markdown rendering on a TTY, default true
}

// GetChatConfig returns chat config with defaults applied.
func (c *UserConfig) GetChatConfig() ChatConfig {
	cfg := ChatConfig{}
	if c.Chat != nil {
		cfg = *c.Chat
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 40
	}
	if cfg.SupplyBudget <= 0 {
		cfg.SupplyBudget = 12000
	}
	if cfg.ConstitutionPath == "" {
		cfg.ConstitutionPath = "constitution/ideation.md"
	}
	if cfg.DraftsDir == "" {
		cfg.DraftsDir = "paper/sections"
	}
	if cfg.NotesDir == "" {
		cfg.NotesDir = "notes"
	}
	if cfg.Greeting == nil {
		t := true
		cfg.Greeting = &t
	}
	if cfg.Render == nil {
		t := true
		cfg.Render = &t
	}
	return cfg
}
