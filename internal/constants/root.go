package constants

import "time"

const (
	AppName            = "habitreward"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/habitreward/habitreward.db"
	Version            = "v0.3.0"

	// EnvConnectionString holds a PostgreSQL connection string when the keyring is not used
	EnvConnectionString = "HABITREWARD_DB_CONNECTION"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "habitreward-"
	BackupFileSuffix = ".db"

	// Completion retry constants
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 50 * time.Millisecond
	DefaultLockTimeout = 5 * time.Second
	SQLiteBusyTimeout  = 5000 // milliseconds
)
