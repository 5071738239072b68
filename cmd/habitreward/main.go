package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/julianstephens/habitreward/internal/cli"
	"github.com/julianstephens/habitreward/internal/cli/backups"
	"github.com/julianstephens/habitreward/internal/cli/habits"
	"github.com/julianstephens/habitreward/internal/cli/rewards"
	"github.com/julianstephens/habitreward/internal/cli/settings"
	"github.com/julianstephens/habitreward/internal/cli/system"
	"github.com/julianstephens/habitreward/internal/cli/users"
	"github.com/julianstephens/habitreward/internal/constants"
	apperrors "github.com/julianstephens/habitreward/internal/errors"
	"github.com/julianstephens/habitreward/internal/keyring"
	"github.com/julianstephens/habitreward/internal/logger"
	"github.com/julianstephens/habitreward/internal/storage"
	"github.com/julianstephens/habitreward/internal/storage/postgres"
	"github.com/julianstephens/habitreward/internal/storage/sqlite"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Database file path or PostgreSQL connection string. For PostgreSQL, credentials must NOT be embedded in the connection string. Use ${env_conn}, .pgpass, or the OS keyring instead." type:"string" default:"${default_config}" env:"HABITREWARD_CONFIG"`
	Debug   bool   `help:"Log debug output to stderr." env:"HABITREWARD_DEBUG"`
	Seed    uint64 `help:"Seed for the reward draw. 0 seeds from the clock." env:"HABITREWARD_SEED"`

	Init     system.InitCmd       `cmd:"" help:"Initialize habitreward storage."`
	Migrate  system.MigrateCmd    `cmd:"" help:"Run database migrations."`
	Doctor   system.DoctorCmd     `cmd:"" help:"Run health checks and diagnostics."`
	Keyring  system.KeyringCmd    `cmd:"" help:"Manage the PostgreSQL connection string in the OS keyring."`
	Settings settings.SettingsCmd `cmd:"" help:"Show or change engine settings."`
	Backup   backups.BackupCmd    `cmd:"" help:"Manage database backups."`
	User     users.UserCmd        `cmd:"" help:"Manage users."`
	Habit    habits.HabitCmd      `cmd:"" help:"Manage habits."`
	Complete habits.CompleteCmd   `cmd:"" help:"Record a habit completion and draw a reward."`
	Log      habits.LogCmd        `cmd:"" help:"Show a user's completion history for a habit."`
	Claim    rewards.ClaimCmd     `cmd:"" help:"Claim an achieved reward."`
	Progress rewards.ProgressCmd  `cmd:"" help:"Show a user's reward progress."`
	Catalog  rewards.CatalogCmd   `cmd:"" help:"Manage the habit and reward catalog."`
}

// Commands that open the store themselves, or never touch it.
var selfLoading = map[string]bool{
	"init":    true,
	"doctor":  true,
	"keyring": true,
}

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	kctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Habit completion reward engine"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":        constants.Version,
			"default_config": constants.DefaultConfigPath,
			"env_conn":       constants.EnvConnectionString,
		},
	)

	store, configDir, err := openStore(CLI.Config)
	if err != nil {
		apperrors.Fatal(err)
	}
	defer store.Close()

	if err := logger.Init(logger.Config{Debug: CLI.Debug, ConfigDir: configDir}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	seed := CLI.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	appCtx := (&cli.Context{Store: store, Seed: seed}).WithContext(ctx)

	command := strings.Fields(kctx.Command())[0]
	if !selfLoading[command] {
		if err := store.Load(ctx); err != nil {
			apperrors.Fatal(err)
		}
	}

	if err := kctx.Run(appCtx); err != nil {
		apperrors.Fatal(err)
	}
}

// openStore picks the backend. An explicit connection string wins; with the
// default path, a connection string from the environment or keyring selects
// PostgreSQL before falling back to SQLite.
func openStore(config string) (storage.Provider, string, error) {
	home, _ := os.UserHomeDir()
	configDir := filepath.Join(home, ".config", constants.AppName)

	if postgres.IsConnString(config) {
		if err := postgres.ValidateConnString(config); err != nil {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, "", fmt.Errorf("PostgreSQL connection strings with embedded credentials are NOT allowed on the command line. "+
					"Use 'habitreward keyring set', the %s environment variable, or a .pgpass file instead", constants.EnvConnectionString)
			}
			return nil, "", err
		}
		store, err := postgres.New(config)
		return store, configDir, err
	}

	if config == constants.DefaultConfigPath {
		connStr, src, err := keyring.ResolveConnectionString()
		if err != nil {
			return nil, "", err
		}
		if src != keyring.SourceNone {
			store, err := postgres.New(connStr)
			return store, configDir, err
		}
	}

	path := expandPath(config, home)
	if path == sqlite.MemoryPath {
		return sqlite.NewStore(path), configDir, nil
	}
	return sqlite.NewStore(path), filepath.Dir(path), nil
}

func expandPath(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
