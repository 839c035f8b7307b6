package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

const (
	appName    = "tendalyze-etl"
	appVersion = "1.0.0"
)

// CLI represents the command-line interface
var CLI struct {
	DatabaseURL string `help:"PostgreSQL connection string" env:"DATABASE_URL" name:"database-url"`
	LogLevel    string `help:"Log level" env:"LOG_LEVEL" default:"info"`
	LogFormat   string `help:"Log format (json or console)" env:"LOG_FORMAT" default:"console"`
	RedisURL    string `help:"Redis URL for cache invalidation and ingest events" env:"REDIS_URL" default:"redis://localhost:6379"`
	EnableRedis bool   `help:"Publish ingest events and invalidate cached reports" env:"ENABLE_REDIS" default:"false" negatable:""`

	Migrate   MigrateCmd   `cmd:"" help:"Apply database migrations"`
	Check     CheckCmd     `cmd:"" help:"Print the server version and play count"`
	Teams     TeamsCmd     `cmd:"" help:"Load a teams CSV"`
	Hudl      HudlCmd      `cmd:"" help:"Load a Hudl play-by-play CSV as one game"`
	Normalize NormalizeCmd `cmd:"" help:"Fill formation_norm for plays that lack it"`
	Version   VersionCmd   `cmd:"" help:"Show version information"`
}

// VersionCmd represents the version command
type VersionCmd struct{}

// Run executes the version command
func (cmd *VersionCmd) Run() error {
	fmt.Printf("%s v%s\n", appName, appVersion)
	return nil
}

func main() {
	// Variables already set in the environment win over .env
	_ = godotenv.Load()

	ctx := kong.Parse(&CLI,
		kong.Name(appName),
		kong.Description("Load football play-by-play exports into the tendalyze datastore."),
		kong.UsageOnError(),
	)

	appCtx := &Context{
		DatabaseURL: CLI.DatabaseURL,
		LogLevel:    CLI.LogLevel,
		LogFormat:   CLI.LogFormat,
		RedisURL:    CLI.RedisURL,
		EnableRedis: CLI.EnableRedis,
	}

	err := ctx.Run(appCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
