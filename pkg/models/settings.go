package models

// Settings holds the learning parameters a user can tune
type Settings struct {
	PoolSize          int `json:"pool_size" mapstructure:"pool_size"`
	RequiredStreak    int `json:"required_streak" mapstructure:"required_streak"`
	AutoAddVerbs      int `json:"auto_add_verbs" mapstructure:"auto_add_verbs"`
	AutoAddAdjectives int `json:"auto_add_adjectives" mapstructure:"auto_add_adjectives"`
	AutoAddNouns      int `json:"auto_add_nouns" mapstructure:"auto_add_nouns"`
}

// DefaultSettings returns the settings used before anything is stored
func DefaultSettings() Settings {
	return Settings{
		PoolSize:          20,
		RequiredStreak:    2,
		AutoAddVerbs:      1,
		AutoAddAdjectives: 2,
		AutoAddNouns:      4,
	}
}

// AutoAdd returns the replenishment quantity configured for a kind
func (s Settings) AutoAdd(kind Kind) int {
	switch kind {
	case KindVerb, KindVerbForm:
		return s.AutoAddVerbs
	case KindAdjective:
		return s.AutoAddAdjectives
	case KindNoun:
		return s.AutoAddNouns
	}
	return 0
}

// Normalize replaces non-positive session parameters with defaults
func (s Settings) Normalize() Settings {
	def := DefaultSettings()
	if s.PoolSize <= 0 {
		s.PoolSize = def.PoolSize
	}
	if s.RequiredStreak <= 0 {
		s.RequiredStreak = def.RequiredStreak
	}
	if s.AutoAddVerbs < 0 {
		s.AutoAddVerbs = 0
	}
	if s.AutoAddAdjectives < 0 {
		s.AutoAddAdjectives = 0
	}
	if s.AutoAddNouns < 0 {
		s.AutoAddNouns = 0
	}
	return s
}
