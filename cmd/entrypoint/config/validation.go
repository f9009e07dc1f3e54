// Package config validation: structural checks that run on every invocation,
// plus the credential-strategy policy that only applies on first boot.
package config

import (
	"errors"
	"fmt"

	"github.com/dbfleet/mysql-entrypoint/internal/validate"
)

// ErrNoCredentialStrategy indicates no bootstrap credential strategy was
// specified. Fatal before any mutation of the data directory: the operator
// must pick an explicit root password, allow an empty one, or request a
// generated one.
var ErrNoCredentialStrategy = errors.New(
	"database is uninitialized and no credential strategy is specified: set " +
		"MYSQL_ROOT_PASSWORD, MYSQL_ALLOW_EMPTY_PASSWORD, or MYSQL_RANDOM_ROOT_PASSWORD")

// ValidateConfig checks the structural configuration on every invocation.
// Credential strategy is deliberately not checked here; it only matters when
// the data directory is empty.
func ValidateConfig() error {
	if err := validate.ValidateRequiredString(Global.DataDir, "data directory"); err != nil {
		return err
	}
	if err := validate.ValidateRequiredString(Global.ConfigFile, "config artifact path"); err != nil {
		return err
	}
	if err := validate.ValidateRequiredString(Global.Socket, "socket path"); err != nil {
		return err
	}

	validLogLevels := map[string]bool{
		"DEBUG": true,
		"INFO":  true,
		"WARN":  true,
		"ERROR": true,
	}
	if !validLogLevels[Global.LogLevel] {
		return fmt.Errorf("invalid log level: %s", Global.LogLevel)
	}

	// The discovery address only matters for replica setup, but when present
	// it must at least look like host:port.
	if Global.DiscoveryAddr != "" {
		if err := validate.ValidateField(Global.DiscoveryAddr, "hostname_port"); err != nil {
			return fmt.Errorf("invalid discovery service address %q: %w", Global.DiscoveryAddr, err)
		}
	}
	return nil
}

// ValidateCredentials enforces the bootstrap credential policy: at least one
// of the three strategies must be specified before first-boot initialization
// is allowed to touch the data directory. Evaluated only when the data
// directory holds no schema yet.
func ValidateCredentials() error {
	if Global.RootPassword == "" && !Global.AllowEmptyPassword && !Global.RandomRootPassword {
		return ErrNoCredentialStrategy
	}
	return nil
}
