package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-crossover/pkg/errors"
)

// CheckConfigCompatibility checks that a configuration file written for configVersion can be
// read by a binary at binaryVersion.
//
// Compatibility Rules:
//   - An empty config version or a "main" version on either side skips the check
//   - Major versions must match exactly
//   - Minor versions must match exactly
//   - Patch versions can differ (e.g., 1.2.0 reads files written for 1.2.5)
func CheckConfigCompatibility(binaryVersion, configVersion string) error {
	binaryVersion = strings.TrimPrefix(binaryVersion, "v")
	configVersion = strings.TrimPrefix(configVersion, "v")

	if configVersion == "" || binaryVersion == "main" || configVersion == "main" {
		return nil
	}

	binary, err := semver.NewVersion(binaryVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid binary version %q", binaryVersion)
	}

	config, err := semver.NewVersion(configVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid config version %q", configVersion)
	}

	if binary.Major() != config.Major() || binary.Minor() != config.Minor() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"config written for %d.%d.x cannot be read by crossover %s",
			config.Major(), config.Minor(), binary.String())
	}

	return nil
}
