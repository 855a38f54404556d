package commands

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/forge-cli/forge/internal/cli/config"
	"github.com/forge-cli/forge/internal/generate"
	"github.com/forge-cli/forge/internal/inspect"
	"github.com/forge-cli/forge/internal/migrations"
	"github.com/forge-cli/forge/internal/sync"
)

// env bundles everything a command needs: the loaded config, the
// generator, the migration finder, and (when a database is configured
// and reachable) a live-schema inspector.
type env struct {
	cfg    *config.Config
	gen    *generate.Generator
	finder *migrations.Finder
	insp   inspect.Inspector
	db     *sql.DB
	logger *zap.Logger
}

func newEnv(force bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	gen, err := generate.New(cfg.Layout(), force)
	if err != nil {
		return nil, err
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	e := &env{
		cfg:    cfg,
		gen:    gen,
		finder: migrations.NewFinder(cfg.Paths.Migrations),
		logger: logger,
	}

	db, err := cfg.Connect()
	if err != nil {
		return nil, err
	}
	if db != nil {
		insp, err := inspect.New(db, cfg.Database.Driver)
		if err != nil {
			db.Close()
			return nil, err
		}
		e.db = db
		e.insp = insp
	}

	return e, nil
}

func (e *env) close() {
	if e.db != nil {
		e.db.Close()
	}
	e.logger.Sync()
}

func (e *env) engine(morphTargets []string) *sync.Engine {
	return sync.New(sync.Options{
		Inspector:    e.insp,
		Finder:       e.finder,
		Generator:    e.gen,
		Logger:       e.logger,
		MorphTargets: morphTargets,
	})
}

var modelNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)

// validateModelName rejects names that cannot become a Go identifier.
func validateModelName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return fmt.Errorf("model name must be 1-100 characters")
	}
	if !modelNameRe.MatchString(name) {
		return fmt.Errorf("model name can only contain letters and numbers")
	}
	return nil
}

// reportSync prints the per-model outcome of a sync run.
func reportSync(success, info, warn *color.Color, results []sync.Result) {
	for _, r := range results {
		switch {
		case r.Err != nil:
			warn.Printf("Failed %s: %v\n", r.Model, r.Err)
		case r.Missing:
			warn.Printf("Skipped %s: no model file at %s\n", r.Model, r.Path)
		case len(r.Added) > 0:
			success.Printf("✓ %s: added %s\n", r.Model, strings.Join(r.Added, ", "))
		default:
			info.Printf("%s: up to date\n", r.Model)
		}
	}
}

// reportSuggestions lists pending polymorphic proposals without writing
// them; relations sync owns the confirmation flow.
func reportSuggestions(info *color.Color, suggestions []sync.Suggestion) {
	if len(suggestions) == 0 {
		return
	}
	info.Printf("\n%d polymorphic suggestion(s) available:\n", len(suggestions))
	for _, s := range suggestions {
		info.Printf("  %s.%s (morph %q)\n", s.Model, s.Method.Name, s.Record.MorphName)
	}
	info.Println("Run 'forge relations sync' to review and apply them.")
}
