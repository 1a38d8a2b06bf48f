package config

// Siftfile represents the structure of the sift.yaml configuration file.
type Siftfile struct {
	Version         string   `yaml:"version"`
	Roots           []string `yaml:"roots"`
	Include         []string `yaml:"include"`
	Exclude         []string `yaml:"exclude"`
	IntervalMS      *int     `yaml:"interval_ms"`
	DebounceMS      *int     `yaml:"debounce_ms"`
	StateDir        string   `yaml:"state_dir"`
	Watch           *bool    `yaml:"watch"`
	MaxKeys         int      `yaml:"max_keys"`
	ContinueOnError bool     `yaml:"continue_on_error"`
	Output          string   `yaml:"output"`
}

// SupportedVersion is the only config file version understood by this loader.
const SupportedVersion = "1"
