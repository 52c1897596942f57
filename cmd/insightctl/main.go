// Package main provides the insightctl operator CLI.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"fininsight/internal/config"
	apphttp "fininsight/internal/http"
	"fininsight/internal/logger"
	"fininsight/internal/models"
	"fininsight/internal/services/dataloader"
	"fininsight/internal/services/insights"
	"fininsight/internal/services/insightstate"
	"fininsight/internal/services/pgstore"
	"fininsight/internal/services/storage"
	"fininsight/internal/version"
)

const usage = `Usage: insightctl <command> [flags]

Commands:
  generate   print insights for a user
  encrypt    encrypt the data directory with a password
  decrypt    decrypt the data directory
  migrate    apply Postgres schema migrations
  version    print build information
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "generate":
		err = runGenerate(cfg, log, args, os.Stdout)
	case "encrypt":
		err = runEncrypt(cfg, true)
	case "decrypt":
		err = runEncrypt(cfg, false)
	case "migrate":
		err = runMigrate(cfg, args)
	case "version":
		fmt.Println(version.Get().String())
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		log.Error().Err(err).Str("command", cmd).Msg("failed")
		os.Exit(1)
	}
}

func runGenerate(cfg *config.Config, log zerolog.Logger, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	user := fs.String("user", "default", "user id")
	nowStr := fs.String("now", "", "evaluation time (RFC3339 or YYYY-MM-DD), default now")
	source := fs.String("source", cfg.Source, "snapshot source: files or postgres")
	typ := fs.String("type", "", "only show one insight type")
	all := fs.Bool("all", false, "include dismissed and snoozed insights")
	if err := fs.Parse(args); err != nil {
		return err
	}

	now, err := apphttp.ParseNow(*nowStr, time.Now())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := storage.New(cfg.DataDirectory)
	if err != nil {
		return err
	}
	if store.IsEncrypted() {
		password, err := readPassword("Password: ")
		if err != nil {
			return err
		}
		if err := store.Unlock(password); err != nil {
			return err
		}
	}

	since := now.AddDate(0, 0, -cfg.WindowDays)
	var snap insights.Snapshot
	switch *source {
	case config.SourcePostgres:
		db, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		snap, err = db.LoadSnapshot(ctx, *user, since, now)
		if err != nil {
			return err
		}
	case config.SourceFiles:
		loader := dataloader.New(cfg.DataDirectory, cfg.SettingsDirectory, store, log)
		snap, err = loader.LoadSnapshot(ctx, *user, since, now)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown source %q", *source)
	}

	engine := insights.New()
	var list []models.Insight
	if *typ != "" {
		t, err := models.ParseInsightType(*typ)
		if err != nil {
			return err
		}
		list, err = engine.GenerateType(ctx, snap, now, t)
		if err != nil {
			return err
		}
	} else {
		list, err = engine.Generate(ctx, snap, now)
		if err != nil {
			return err
		}
	}

	if !*all {
		state, err := insightstate.Open(store, cfg.StateFile(), log)
		if err != nil {
			return err
		}
		list = state.Visible(*user, list, now)
	}

	fmt.Fprint(out, renderInsights(*user, now, list))
	return nil
}

func runEncrypt(cfg *config.Config, enable bool) error {
	store, err := storage.New(cfg.DataDirectory)
	if err != nil {
		return err
	}

	if !enable {
		password, err := readPassword("Password: ")
		if err != nil {
			return err
		}
		if err := store.DisableEncryption(password); err != nil {
			return err
		}
		fmt.Println("Data directory decrypted.")
		return nil
	}

	password, err := readPassword("New password: ")
	if err != nil {
		return err
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}
	if err := store.EnableEncryption(password); err != nil {
		return err
	}
	fmt.Println("Data directory encrypted.")
	return nil
}

func runMigrate(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dbURL := fs.String("database-url", cfg.DatabaseURL, "Postgres connection URL")
	dir := fs.String("dir", cfg.MigrationsDir, "migrations directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dbURL == "" {
		return errors.New("database url is required (FININSIGHT_DATABASE_URL or -database-url)")
	}

	if err := pgstore.RunMigrations(*dbURL, *dir); err != nil {
		return err
	}
	fmt.Println("Migrations applied.")
	return nil
}

var stdin = bufio.NewReader(os.Stdin)

// readPassword prompts on stderr and reads without echo when stdin is a
// terminal; piped input is read as a single line
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := stdin.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}
