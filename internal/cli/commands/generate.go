package commands

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/forge-cli/forge/internal/generate"
	"github.com/forge-cli/forge/internal/inspect"
	"github.com/forge-cli/forge/internal/migrations"
	"github.com/forge-cli/forge/internal/naming"
	"github.com/forge-cli/forge/internal/relations"
	"github.com/forge-cli/forge/internal/sync"
)

// NewGenerateCommand creates the generate command
func NewGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"g"},
		Short:   "Code generation commands",
		Long: `Generate CRUD boilerplate for a model: the model struct, request,
controller, repository, routes, and a migration when none exists yet.

Examples:
  forge generate crud Post
  forge generate crud Post --relations="user:belongsTo,tag:belongsToMany"
  forge g crud Comment --api=false`,
	}

	cmd.AddCommand(newGenerateCrudCommand())

	return cmd
}

func newGenerateCrudCommand() *cobra.Command {
	var (
		api          bool
		addRoutes    bool
		force        bool
		interactive  bool
		relationSpec string
	)

	cmd := &cobra.Command{
		Use:   "crud [model]",
		Short: "Generate CRUD boilerplate for a model",
		Long: `Generate the full CRUD stack for a model.

Produces the model struct, a validated request type, a controller
(JSON API or form-based), a repository with its provider binding, a
route group, and a create-table migration when none exists yet. Field
definitions come from the model's migration file when one is present.

Relationships are inferred from the schema or migrations unless an
explicit --relations list is given. Tokens look like model:type with
type one of belongsTo, hasOne, hasMany, belongsToMany.

Examples:
  forge generate crud Post
  forge generate crud Post --relations="user:belongsTo" --routes=false
  forge generate crud Post --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			successColor := color.New(color.FgGreen, color.Bold)
			infoColor := color.New(color.FgCyan)
			warningColor := color.New(color.FgYellow)

			var modelName string
			if len(args) > 0 {
				modelName = args[0]
			} else if interactive {
				prompt := &survey.Input{
					Message: "Model name (singular, CamelCase):",
				}
				if err := survey.AskOne(prompt, &modelName, survey.WithValidator(survey.Required)); err != nil {
					return err
				}
			} else {
				return fmt.Errorf("model name required\n\nUsage: forge generate crud <model>")
			}
			if err := validateModelName(modelName); err != nil {
				return err
			}
			model := naming.Studly(naming.Singular(modelName))
			table := naming.ModelToTable(model)

			env, err := newEnv(force)
			if err != nil {
				return err
			}
			defer env.close()

			// Flags win over forge.yml; the config fills in whatever was
			// not given on the command line.
			if !cmd.Flags().Changed("api") {
				api = env.cfg.Generate.APIController
			}
			if !cmd.Flags().Changed("routes") {
				addRoutes = env.cfg.Generate.AddRoutes
			}

			// Explicit relation tokens, parsed up front so bad input
			// fails before anything is written.
			var requested []relations.Record
			if relationSpec != "" {
				var skipped []string
				requested, skipped = relations.ParseRelationSpec(table, relationSpec)
				for _, token := range skipped {
					warningColor.Printf("Skipping malformed relation token %q\n", token)
				}
				if len(requested) == 0 {
					return fmt.Errorf("no valid relation tokens in %q", relationSpec)
				}
			}

			// Field definitions come from the migration when one exists;
			// otherwise a create-table migration is generated first.
			cols, err := env.finder.ColumnsFor(table)
			if errors.Is(err, migrations.ErrNotFound) {
				cols, err = scaffoldMigration(env, infoColor, model, requested)
			}
			if err != nil {
				return err
			}
			fields := generate.FieldsFromColumns(cols)

			path, err := env.gen.GenerateModel(model, fields)
			if err != nil {
				return err
			}
			successColor.Printf("✓ Created %s\n", path)

			path, err = env.gen.GenerateRequest(model, fields, !api)
			if err != nil {
				return err
			}
			successColor.Printf("✓ Created %s\n", path)

			path, err = env.gen.GenerateController(model, api)
			if err != nil {
				return err
			}
			successColor.Printf("✓ Created %s\n", path)

			if env.cfg.Generate.Repository {
				path, err = env.gen.GenerateRepository(model)
				if err != nil {
					return err
				}
				successColor.Printf("✓ Created %s\n", path)
				if _, err := env.gen.AddRepositoryBinding(model); err != nil {
					return err
				}
			}

			if addRoutes {
				added, err := env.gen.AddRoute(model, api)
				if err != nil {
					return err
				}
				route := naming.Kebab(table)
				if added {
					successColor.Printf("✓ Added /%s routes\n", route)
				} else {
					infoColor.Printf("Routes for /%s already registered\n", route)
				}
			}

			engine := env.engine(nil)
			if len(requested) > 0 {
				res, err := engine.AddRelations(model, requested)
				if err != nil {
					return err
				}
				reportSync(successColor, infoColor, warningColor, []sync.Result{res})
			} else if env.cfg.Generate.DetectRelationships {
				results, suggestions, err := engine.SyncOne(model)
				if err != nil {
					return err
				}
				reportSync(successColor, infoColor, warningColor, results)
				reportSuggestions(infoColor, suggestions)
			}

			infoColor.Println("\nNext steps:")
			fmt.Println("  1. Review the generated files and adjust validation rules")
			fmt.Println("  2. Run your migrations")
			fmt.Println("  3. Re-run 'forge relations sync' after schema changes")
			fmt.Println()

			return nil
		},
	}

	cmd.Flags().BoolVar(&api, "api", true, "Generate a JSON API controller (false for a form-based controller)")
	cmd.Flags().BoolVar(&addRoutes, "routes", true, "Register the resource's routes")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing generated files")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Prompt for the model name")
	cmd.Flags().StringVar(&relationSpec, "relations", "", `Explicit relations, e.g. "user:belongsTo,tag:belongsToMany"`)

	return cmd
}

// scaffoldMigration writes the create-table migration for a brand-new
// model and returns the columns it declares.
func scaffoldMigration(env *env, infoColor *color.Color, model string, requested []relations.Record) ([]migrations.Column, error) {
	var fks []inspect.ForeignKeyFact
	for _, rec := range requested {
		if rec.Kind != relations.BelongsTo {
			continue
		}
		fks = append(fks, inspect.ForeignKeyFact{
			Column:           rec.LocalField,
			ReferencedTable:  rec.ForeignTable,
			ReferencedColumn: rec.ForeignField,
		})
	}

	up, err := env.gen.GenerateMigration(model, fks)
	if err != nil {
		return nil, err
	}
	infoColor.Printf("No migration found for %s, created %s\n", naming.ModelToTable(model), up)

	for _, rec := range requested {
		if rec.Kind != relations.BelongsToMany {
			continue
		}
		pivot, err := env.gen.GeneratePivotMigration(model, rec.RelatedModel)
		if err != nil {
			return nil, err
		}
		infoColor.Printf("Created pivot migration %s\n", pivot)
	}

	return env.finder.ColumnsFor(naming.ModelToTable(model))
}
