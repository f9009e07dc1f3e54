// Package config provides configuration management for the database
// entrypoint.
//
// The configuration surface is the container environment: the documented
// MYSQL_* variables control credential strategy and account provisioning,
// INNODB_BUFFER_POOL_SIZE overrides the derived buffer pool sizing, and
// DISCOVERY_SERVICE / SERVICE_NAME point replica setup at the external
// discovery catalog. Everything else is a path or binary name with a fixed
// container-image default.
//
// Configuration state lives in the package-level Global instance, populated
// once by InitializeConfig before any command runs and validated by
// ValidateConfig. The credential-strategy check is separate (ValidateCredentials)
// because it only applies on first boot, when the data directory is empty.
package config

import "os"

const (
	DefaultDataDir      = "/var/lib/mysql"                     // Server data directory
	DefaultConfigFile   = "/etc/mysql/my.cnf"                  // Config artifact path
	DefaultSocket       = "/var/run/mysqld/mysqld.sock"        // Local server socket
	DefaultInitDir      = "/docker-entrypoint-initdb.d"        // Operator init files
	DefaultStatusFile   = "/var/lib/mysql/master_status"       // Binlog status record
	DefaultServerBinary = "mysqld"                             // Database server binary
	DefaultClientBinary = "mysql"                              // Command-line client binary
	DefaultServiceName  = "mysql"                              // Discovery service name
	DefaultLogLevel     = "INFO"                               // Log level
)

// Config holds all entrypoint configuration values.
type Config struct {
	// Credential strategy and account provisioning (MYSQL_* environment)
	RootPassword       string // Explicit root password
	AllowEmptyPassword bool   // Root account may have no password
	RandomRootPassword bool   // Generate and disclose a root password
	OnetimePassword    bool   // Expire the root password after bootstrap
	Database           string // Default application schema
	User               string // Default application user
	Password           string // Password for the application user
	ReplUser           string // Replication account
	ReplPassword       string // Password for the replication account

	// Node configuration
	BufferPoolSize string // Explicit buffer pool override, used verbatim
	DataDir        string // Server data directory
	ConfigFile     string // Config artifact rewritten every boot
	Socket         string // Local server socket path
	InitDir        string // Operator init-file directory
	ServerBinary   string // Database server binary
	ClientBinary   string // Command-line client binary

	// Replica setup
	DiscoveryAddr    string // Discovery catalog address, host:port; empty disables replica setup
	ServiceName      string // Service name looked up in the catalog
	MasterStatusFile string // Persisted binlog status record

	// Operational
	LogLevel string // Log level: DEBUG, INFO, WARN, ERROR
}

// Global configuration instance
var Global Config

// InitializeConfig populates Global from the environment, applying container
// defaults for everything the environment leaves unset. Safe to call more
// than once; later calls re-read the environment.
func InitializeConfig() {
	Global = Config{
		RootPassword:       os.Getenv("MYSQL_ROOT_PASSWORD"),
		AllowEmptyPassword: envFlag("MYSQL_ALLOW_EMPTY_PASSWORD"),
		RandomRootPassword: envFlag("MYSQL_RANDOM_ROOT_PASSWORD"),
		OnetimePassword:    envFlag("MYSQL_ONETIME_PASSWORD"),
		Database:           os.Getenv("MYSQL_DATABASE"),
		User:               os.Getenv("MYSQL_USER"),
		Password:           os.Getenv("MYSQL_PASSWORD"),
		ReplUser:           os.Getenv("MYSQL_REPL_USER"),
		ReplPassword:       os.Getenv("MYSQL_REPL_PASSWORD"),

		BufferPoolSize: os.Getenv("INNODB_BUFFER_POOL_SIZE"),
		DataDir:        envOr("DATADIR", DefaultDataDir),
		ConfigFile:     envOr("MYSQL_CONFIG_FILE", DefaultConfigFile),
		Socket:         envOr("MYSQL_SOCKET", DefaultSocket),
		InitDir:        envOr("MYSQL_INITDB_DIR", DefaultInitDir),
		ServerBinary:   DefaultServerBinary,
		ClientBinary:   DefaultClientBinary,

		DiscoveryAddr:    os.Getenv("DISCOVERY_SERVICE"),
		ServiceName:      envOr("SERVICE_NAME", DefaultServiceName),
		MasterStatusFile: envOr("MASTER_STATUS_FILE", DefaultStatusFile),

		LogLevel: envOr("LOG_LEVEL", DefaultLogLevel),
	}
}

// envFlag reports whether a boolean environment toggle is set. Any non-empty
// value counts, matching the conventions of the upstream database images.
func envFlag(name string) bool {
	return os.Getenv(name) != ""
}

// envOr returns the environment value or a default when unset.
func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
