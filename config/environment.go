package config

import (
	"os"
	"strings"
)

// Environment is the deployment stage read from APP_ENV.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

var environmentAliases = map[string]Environment{
	"dev":         Development,
	"prod":        Production,
	"producation": Production,
	"stag":        Staging,
	"stagging":    Staging,
}

// configFiles maps a stage to the file LoadConfig reads instead of
// DefaultConfigPath.
var configFiles = map[Environment]string{
	Production: "config/config.production.yml",
	Staging:    "config/config.staging.yml",
}

// CurrentEnvironment returns the normalised APP_ENV, development when unset.
func CurrentEnvironment() Environment {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV")))
	if raw == "" {
		return Development
	}
	if env, ok := environmentAliases[raw]; ok {
		return env
	}
	return Environment(raw)
}

// ProductionLike stages refuse to fall back to a local Redis.
func (e Environment) ProductionLike() bool {
	return e == Production || e == Staging
}

// resolveConfigPath swaps the default path for the stage specific file.
// An explicit non-default path always wins.
func resolveConfigPath(path string) string {
	if path == "" {
		path = DefaultConfigPath
	}
	stageFile, ok := configFiles[CurrentEnvironment()]
	if ok && (path == DefaultConfigPath || path == stageFile) {
		return stageFile
	}
	return path
}
