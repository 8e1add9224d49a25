// Command patentectl runs one-off maintenance tasks against the database:
// migrations, spreadsheet imports and the corpus batch jobs.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/patente-app/backend/internal/auth"
	"github.com/patente-app/backend/internal/config"
	"github.com/patente-app/backend/internal/corpus"
	"github.com/patente-app/backend/internal/database"
	"github.com/patente-app/backend/internal/translator"
)

const usage = `usage: patentectl <command> [flags] [args]

commands:
  migrate                          apply pending migrations
  import-questions <file>          upsert questions from .xlsx or .csv
  import-translations <file>       upsert translations from .xlsx or .csv
  crossref                         rebuild question/translation cross-references
  translate                        fill missing Persian question texts
  grant-admin <email>              give a user the admin role
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Ignoring .env: %v", err)
	}
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1], os.Args[2:]); err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func run(ctx context.Context, cfg config.Config, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	sheet := fs.String("sheet", "", "worksheet name (xlsx only, default first sheet)")
	startRow := fs.Int("start-row", 2, "first data row, 1-based")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := database.Connect(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		return err
	}

	svc := corpus.NewService(corpus.NewStore(db))
	importCfg := func() (corpus.ImportConfig, error) {
		if fs.NArg() != 1 {
			return corpus.ImportConfig{}, fmt.Errorf("expected one file argument")
		}
		c := corpus.DefaultImportConfig(fs.Arg(0))
		c.SheetName = *sheet
		c.StartRow = *startRow
		return c, nil
	}

	switch cmd {
	case "migrate":
		log.Println("Migrations applied")
		return nil
	case "import-questions":
		c, err := importCfg()
		if err != nil {
			return err
		}
		res, err := svc.ImportQuestions(ctx, c)
		if err != nil {
			return err
		}
		return printJSON(res)
	case "import-translations":
		c, err := importCfg()
		if err != nil {
			return err
		}
		res, err := svc.ImportTranslations(ctx, c)
		if err != nil {
			return err
		}
		return printJSON(res)
	case "crossref":
		res, err := svc.RunCrossReference(ctx)
		if err != nil {
			return err
		}
		return printJSON(res)
	case "translate":
		llm, model := translator.NewClient(cfg)
		res, err := translator.NewService(svc.Store(), llm, model).TranslateMissing(ctx)
		if err != nil {
			return err
		}
		return printJSON(res)
	case "grant-admin":
		return grantAdmin(ctx, db, fs.Args())
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func grantAdmin(ctx context.Context, db *sqlx.DB, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected one email argument")
	}
	if err := auth.NewStore(db).SetAdmin(ctx, strings.ToLower(strings.TrimSpace(args[0])), true); err != nil {
		return err
	}
	log.Printf("%s is now an admin", args[0])
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
