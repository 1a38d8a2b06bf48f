package ports

import "go.trai.ch/sift/internal/core/domain"

// ConfigLoader defines the interface for loading the scanner configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load finds the configuration for the given working directory.
	// It returns the defaults when no configuration file exists.
	Load(cwd string) (domain.Config, error)
}
