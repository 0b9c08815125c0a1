// Command importer runs catalog imports and admin maintenance against the
// database without going through the HTTP API.
//
//	importer import -file produtos.xlsx [-strict]
//	importer create-admin -email ops@loja.com -password secret -name Ops
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gradeshop_api/internal/config"
	"github.com/GTDGit/gradeshop_api/internal/database"
	"github.com/GTDGit/gradeshop_api/internal/repository"
	"github.com/GTDGit/gradeshop_api/internal/service"
	"github.com/GTDGit/gradeshop_api/internal/utils"
)

const usage = `usage:
  importer import -file <produtos.json|produtos.xlsx> [-strict]
  importer create-admin -email <email> -password <password> [-name <name>]`

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "import":
		err = runImport(os.Args[2:], os.Stdout)
	case "create-admin":
		err = runCreateAdmin(os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Error().Err(err).Str("command", os.Args[1]).Msg("command failed")
		os.Exit(1)
	}
}

func runImport(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	file := fs.String("file", "", "JSON or XLSX file with the products to import")
	strict := fs.Bool("strict", false, "import the whole batch in one transaction")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("-file is required")
	}

	records, err := readRecords(*file)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	profiles, err := service.LoadGradeProfiles(cfg.Import.GradeProfilesPath)
	if err != nil {
		return err
	}

	// Image mirroring is left to the API's sweep; rows stay pending.
	imports := service.NewImportService(repository.NewStore(db), profiles, nil, 0)

	opts := service.ImportOptions{Mode: service.ImportModeBestEffort}
	if *strict {
		opts.Mode = service.ImportModeStrict
	}
	report, err := imports.Reconcile(context.Background(), records, opts)
	if err != nil {
		return err
	}
	return writeReport(out, report)
}

// readRecords loads import records from a .json file ({"products": [...]})
// or an .xlsx workbook in the import template layout.
func readRecords(path string) ([]service.ImportProduct, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return service.ParseImportWorkbook(f)
	case ".json":
		var req service.ImportRequest
		if err := json.NewDecoder(f).Decode(&req); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return req.Products, nil
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

func writeReport(out io.Writer, report *service.BatchReport) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func runCreateAdmin(args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	email := fs.String("email", "", "admin email")
	password := fs.String("password", "", "admin password")
	name := fs.String("name", "", "display name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("-email and -password are required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	auth := service.NewAdminAuthService(repository.NewAdminUserRepository(db), utils.NewJWTIssuer(cfg.JWTSecret, cfg.JWTTTL))
	user, err := auth.CreateAdmin(context.Background(), *email, *password, *name)
	if err != nil {
		return err
	}
	log.Info().Int("admin_id", user.ID).Str("email", user.Email).Msg("admin created")
	return nil
}
