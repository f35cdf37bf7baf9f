package instance

import (
	"fmt"
	"regexp"

	"github.com/matheus3301/campus/internal/config"
)

const DefaultName = "main"

// Institute names become directory names and socket paths, and are passed
// on the command line to an auto-started daemon, so they never start with
// "-" or "_".
var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Select returns the active institute: the --institute flag, else the
// configured default (config.toml or CAMPUS_INSTITUTE), else "main".
func Select(flagOverride string, cfg *config.Config) (string, error) {
	name := resolve(flagOverride, cfg)
	if !namePattern.MatchString(name) {
		return "", fmt.Errorf("invalid institute name %q: use up to 64 lowercase letters, digits, '-' or '_', starting with a letter or digit", name)
	}
	return name, nil
}

func resolve(flagOverride string, cfg *config.Config) string {
	if flagOverride != "" {
		return flagOverride
	}
	if cfg != nil && cfg.DefaultInstitute != "" {
		return cfg.DefaultInstitute
	}
	return DefaultName
}
