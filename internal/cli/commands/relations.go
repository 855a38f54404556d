package commands

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/forge-cli/forge/internal/cli/ui"
	"github.com/forge-cli/forge/internal/naming"
	"github.com/forge-cli/forge/internal/relations"
	"github.com/forge-cli/forge/internal/sync"
)

// NewRelationsCommand creates the relations command
func NewRelationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relations",
		Short: "Relationship management commands",
		Long: `Add explicit relationship accessors to a model or sync inferred
relationships across the whole application.

Examples:
  forge relations add Post --relations="user:belongsTo,tag:belongsToMany"
  forge relations sync Post
  forge relations sync --all`,
	}

	cmd.AddCommand(newRelationsAddCommand())
	cmd.AddCommand(newRelationsSyncCommand())

	return cmd
}

func newRelationsAddCommand() *cobra.Command {
	var relationSpec string

	cmd := &cobra.Command{
		Use:   "add [model]",
		Short: "Add explicit relationship accessors to a model",
		Long: `Merge the requested relationship accessors into an existing model file.

Tokens look like model:type with type one of belongsTo, hasOne,
hasMany, belongsToMany. Malformed tokens are reported and skipped;
accessors the model already declares are left untouched.

Examples:
  forge relations add Post --relations="user:belongsTo"
  forge relations add User --relations="post:hasMany,profile:hasOne"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			successColor := color.New(color.FgGreen, color.Bold)
			infoColor := color.New(color.FgCyan)
			warningColor := color.New(color.FgYellow)

			if len(args) == 0 {
				return fmt.Errorf("model name required\n\nUsage: forge relations add <model> --relations=...")
			}
			if err := validateModelName(args[0]); err != nil {
				return err
			}
			model := naming.Studly(naming.Singular(args[0]))

			if relationSpec == "" {
				return fmt.Errorf("--relations is required\n\nUsage: forge relations add <model> --relations=\"user:belongsTo\"")
			}

			records, skipped := relations.ParseRelationSpec(naming.ModelToTable(model), relationSpec)
			for _, token := range skipped {
				warningColor.Printf("Skipping malformed relation token %q\n", token)
			}
			if len(records) == 0 {
				return fmt.Errorf("no valid relation tokens in %q", relationSpec)
			}

			env, err := newEnv(false)
			if err != nil {
				return err
			}
			defer env.close()

			res, err := env.engine(nil).AddRelations(model, records)
			if err != nil {
				return err
			}
			reportSync(successColor, infoColor, warningColor, []sync.Result{res})

			return nil
		},
	}

	cmd.Flags().StringVar(&relationSpec, "relations", "", `Relations to add, e.g. "user:belongsTo,tag:belongsToMany"`)

	return cmd
}

func newRelationsSyncCommand() *cobra.Command {
	var (
		all          bool
		morphTargets []string
	)

	cmd := &cobra.Command{
		Use:   "sync [model]",
		Short: "Sync inferred relationships into model files",
		Long: `Infer relationships from the live schema (falling back to migration
files) and merge the accessors into model files. Direct relationships
are written first, then the reciprocal accessors they imply on other
models. Existing accessors are never touched, so re-running is safe.

Polymorphic columns produce suggestions for their likely targets.
Each suggestion is confirmed interactively unless --morph-targets
names the targets up front, in which case they are applied directly.

Examples:
  forge relations sync Post
  forge relations sync --all
  forge relations sync --all --morph-targets=Post,User`,
		RunE: func(cmd *cobra.Command, args []string) error {
			successColor := color.New(color.FgGreen, color.Bold)
			infoColor := color.New(color.FgCyan)
			warningColor := color.New(color.FgYellow)

			if len(args) == 0 && !all {
				return fmt.Errorf("model name or --all required\n\nUsage: forge relations sync <model> | forge relations sync --all")
			}

			env, err := newEnv(false)
			if err != nil {
				return err
			}
			defer env.close()

			engine := env.engine(morphTargets)

			var (
				results     []sync.Result
				suggestions []sync.Suggestion
			)
			if all {
				results, suggestions, err = engine.SyncAll()
			} else {
				if err := validateModelName(args[0]); err != nil {
					return err
				}
				model := naming.Studly(naming.Singular(args[0]))
				results, suggestions, err = engine.SyncOne(model)
			}
			if err != nil {
				return err
			}

			if all {
				ui.RenderSyncSummary(os.Stdout, results, color.NoColor)
			} else {
				reportSync(successColor, infoColor, warningColor, results)
			}

			// --morph-targets is an explicit opt-in, so its suggestions
			// apply without prompting.
			autoConfirm := len(morphTargets) > 0
			for _, s := range suggestions {
				if !autoConfirm {
					var apply bool
					prompt := &survey.Confirm{
						Message: fmt.Sprintf("Add %s accessor to %s (morph %q)?", s.Method.Name, s.Model, s.Record.MorphName),
					}
					if err := survey.AskOne(prompt, &apply); err != nil {
						return err
					}
					if !apply {
						infoColor.Printf("Skipped %s.%s\n", s.Model, s.Method.Name)
						continue
					}
				}
				res, err := engine.CommitSuggestion(s)
				if err != nil {
					warningColor.Printf("Could not apply %s.%s: %v\n", s.Model, s.Method.Name, err)
					continue
				}
				reportSync(successColor, infoColor, warningColor, []sync.Result{res})
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Sync every model known to the schema or migrations")
	cmd.Flags().StringSliceVar(&morphTargets, "morph-targets", nil, "Apply polymorphic accessors to these models without prompting")

	return cmd
}
