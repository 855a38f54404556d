// Package sync walks every known model, infers its relationships from the
// best available evidence, and merges the generated accessors into the
// model source files. Direct relationships land in a first phase and
// reciprocal ones in a second, so each file is rewritten at most once per
// phase regardless of how many models point at it.
package sync

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/forge-cli/forge/internal/generate"
	"github.com/forge-cli/forge/internal/inspect"
	"github.com/forge-cli/forge/internal/merge"
	"github.com/forge-cli/forge/internal/migrations"
	"github.com/forge-cli/forge/internal/naming"
	"github.com/forge-cli/forge/internal/relations"
)

// ErrModelNotFound is returned when a named target model has no source
// file. In batch runs the same condition is a logged skip instead.
var ErrModelNotFound = errors.New("model file not found")

// Options wires an Engine. Inspector may be nil when no database is
// configured; evidence then comes from migration files alone.
type Options struct {
	Inspector    inspect.Inspector
	Finder       *migrations.Finder
	Generator    *generate.Generator
	Logger       *zap.Logger
	MorphTargets []string
}

// Engine orchestrates relationship sync runs.
type Engine struct {
	inspector  inspect.Inspector
	finder     *migrations.Finder
	gen        *generate.Generator
	classifier *relations.Classifier
	logger     *zap.Logger
	morphOpts  relations.Options
}

// New returns an Engine for the given options.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		inspector:  opts.Inspector,
		finder:     opts.Finder,
		gen:        opts.Generator,
		classifier: relations.NewClassifier(logger),
		logger:     logger,
		morphOpts:  relations.Options{MorphTargets: opts.MorphTargets},
	}
}

// Result reports what one model file received during a sync phase.
type Result struct {
	Model   string
	Path    string
	Added   []string
	Skipped []string
	// Missing marks a model whose source file does not exist; nothing
	// was written for it.
	Missing bool
	// Err records a write failure for this file. In batch runs it does
	// not stop the remaining targets.
	Err error
}

// Suggestion is a polymorphic accessor proposed for a model other than
// the one that declared the morph columns. It is never written without
// an explicit commit.
type Suggestion struct {
	Model  string
	Path   string
	Record relations.Record
	Method merge.Method
}

// SyncAll syncs every model known to the evidence sources. Models without
// a source file are skipped and reported, never fatal.
func (e *Engine) SyncAll() ([]Result, []Suggestion, error) {
	tables, err := e.allTables()
	if err != nil {
		return nil, nil, err
	}
	return e.run(tables, false)
}

// SyncOne syncs a single named model plus the reciprocal accessors its
// relationships imply on other models. A missing source file for the
// named model is fatal; missing related models are skipped.
func (e *Engine) SyncOne(model string) ([]Result, []Suggestion, error) {
	table := naming.ModelToTable(model)
	if _, err := os.Stat(e.gen.ModelPath(model)); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrModelNotFound, e.gen.ModelPath(model))
	}
	return e.run([]string{table}, true)
}

// AddRelations merges explicitly requested accessors into model's file.
// The records come from parsed --relations tokens, not inference.
func (e *Engine) AddRelations(model string, records []relations.Record) (Result, error) {
	path := e.gen.ModelPath(model)
	if _, err := os.Stat(path); err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrModelNotFound, path)
	}
	return e.mergeRecords(naming.Studly(model), path, records)
}

// CommitSuggestion writes one confirmed suggestion into its target model.
func (e *Engine) CommitSuggestion(s Suggestion) (Result, error) {
	if _, err := os.Stat(s.Path); err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrModelNotFound, s.Path)
	}
	report, err := merge.Merge(s.Path, []merge.Method{s.Method})
	if err != nil {
		return Result{}, err
	}
	return Result{Model: s.Model, Path: s.Path, Added: report.Added, Skipped: report.Skipped}, nil
}

// run executes the two sync phases over the given tables.
func (e *Engine) run(tables []string, strictFirst bool) ([]Result, []Suggestion, error) {
	var results []Result
	var suggestions []Suggestion

	// Reciprocals accumulate across all source models and are applied
	// once per target in the second phase.
	reverse := map[string][]relations.Record{}

	allTables, err := e.allTables()
	if err != nil {
		return nil, nil, err
	}

	// Phase 1: direct relationships per model.
	for i, table := range tables {
		model := naming.TableToModel(table)
		path := e.gen.ModelPath(model)
		if _, err := os.Stat(path); err != nil {
			if strictFirst && i == 0 {
				return nil, nil, fmt.Errorf("%w: %s", ErrModelNotFound, path)
			}
			e.logger.Warn("model file missing, skipping", zap.String("model", model), zap.String("path", path))
			results = append(results, Result{Model: model, Path: path, Missing: true})
			continue
		}

		records, morphSuggestions, err := e.classify(table, allTables)
		if err != nil {
			return nil, nil, err
		}
		suggestions = append(suggestions, morphSuggestions...)

		res, err := e.mergeRecords(model, path, records)
		if err != nil {
			if strictFirst && i == 0 {
				return nil, nil, err
			}
			e.logger.Warn("write failed, continuing with remaining models",
				zap.String("model", model), zap.Error(err))
			results = append(results, Result{Model: model, Path: path, Err: err})
			continue
		}
		results = append(results, res)

		for target, recs := range relations.ReverseAll(model, records) {
			reverse[target] = append(reverse[target], recs...)
		}
	}

	// Phase 2: reciprocal relationships, one write per target model.
	targets := make([]string, 0, len(reverse))
	for target := range reverse {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	for _, target := range targets {
		path := e.gen.ModelPath(target)
		if _, err := os.Stat(path); err != nil {
			e.logger.Warn("related model file missing, skipping reciprocal",
				zap.String("model", target), zap.String("path", path))
			results = append(results, Result{Model: target, Path: path, Missing: true})
			continue
		}
		res, err := e.mergeRecords(target, path, relations.Dedupe(reverse[target]))
		if err != nil {
			e.logger.Warn("write failed, continuing with remaining models",
				zap.String("model", target), zap.Error(err))
			results = append(results, Result{Model: target, Path: path, Err: err})
			continue
		}
		results = append(results, res)
	}

	return results, suggestions, nil
}

// classify gathers evidence for table and returns its direct relationship
// records plus any polymorphic suggestions for other models.
func (e *Engine) classify(table string, allTables []string) ([]relations.Record, []Suggestion, error) {
	facts, incoming, src, err := e.evidence(table)
	if err != nil {
		return nil, nil, err
	}

	records := e.classifier.Classify(table, facts, incoming, allTables, src)

	var suggestions []Suggestion
	if e.finder != nil {
		morphs, err := e.finder.MorphsFor(table)
		if err != nil && !errors.Is(err, migrations.ErrNotFound) {
			return nil, nil, err
		}
		if len(morphs) > 0 {
			for _, rec := range e.classifier.ClassifyMorphs(table, morphs, allTables, e.morphOpts) {
				if rec.Kind == relations.MorphTo {
					records = append(records, rec)
					continue
				}
				s, err := e.suggestion(rec)
				if err != nil {
					return nil, nil, err
				}
				suggestions = append(suggestions, s)
			}
		}
	}

	return relations.Dedupe(records), suggestions, nil
}

func (e *Engine) suggestion(rec relations.Record) (Suggestion, error) {
	method, err := generate.RenderMethod(rec.RelatedModel, rec)
	if err != nil {
		return Suggestion{}, err
	}
	rec.SuggestedCode = method.Source
	return Suggestion{
		Model:  rec.RelatedModel,
		Path:   e.gen.ModelPath(rec.RelatedModel),
		Record: rec,
		Method: method,
	}, nil
}

// evidence picks the source for one table: the live schema when it is
// reachable and actually knows the table, migration files otherwise.
func (e *Engine) evidence(table string) ([]inspect.ForeignKeyFact, []inspect.IncomingFact, relations.Source, error) {
	if e.inspector != nil {
		facts, incoming, ok := e.schemaEvidence(table)
		if ok && len(facts)+len(incoming) > 0 {
			return facts, incoming, relations.NewSchemaSource(e.inspector), nil
		}
	}
	if e.finder == nil {
		return nil, nil, relations.NewSchemaSource(e.inspector), nil
	}

	facts, err := e.finder.FactsFor(table)
	if err != nil && !errors.Is(err, migrations.ErrNotFound) {
		return nil, nil, nil, err
	}
	incoming, err := e.finder.ReverseScan(table)
	if err != nil {
		return nil, nil, nil, err
	}
	return facts, incoming, relations.NewMigrationSource(e.finder), nil
}

// schemaEvidence reads live-schema facts, reporting ok=false on any
// unavailability so the caller can fall back.
func (e *Engine) schemaEvidence(table string) ([]inspect.ForeignKeyFact, []inspect.IncomingFact, bool) {
	exists, err := e.inspector.HasTable(table)
	if err != nil {
		e.logger.Info("live schema unavailable, falling back to migrations", zap.Error(err))
		return nil, nil, false
	}
	if !exists {
		return nil, nil, false
	}
	facts, err := e.inspector.ForeignKeysOf(table)
	if err != nil {
		e.logger.Info("live schema unavailable, falling back to migrations", zap.Error(err))
		return nil, nil, false
	}
	incoming, err := e.inspector.ForeignKeysReferencing(table)
	if err != nil {
		e.logger.Info("live schema unavailable, falling back to migrations", zap.Error(err))
		return nil, nil, false
	}
	return facts, incoming, true
}

// allTables unions the tables known to the live schema and the migration
// directory, deduplicated and sorted.
func (e *Engine) allTables() ([]string, error) {
	seen := map[string]bool{}
	var out []string

	if e.inspector != nil {
		tables, err := e.inspector.ListTables()
		if err != nil {
			e.logger.Info("live schema unavailable, falling back to migrations", zap.Error(err))
		} else {
			for _, t := range tables {
				if !seen[t] {
					seen[t] = true
					out = append(out, t)
				}
			}
		}
	}

	if e.finder != nil {
		tables, err := e.finder.AllTables()
		if err != nil {
			return nil, err
		}
		for _, t := range tables {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}

	sort.Strings(out)
	return out, nil
}

// mergeRecords renders accessors for records and merges them into path.
func (e *Engine) mergeRecords(model, path string, records []relations.Record) (Result, error) {
	methods := make([]merge.Method, 0, len(records))
	for _, rec := range records {
		m, err := generate.RenderMethod(model, rec)
		if err != nil {
			return Result{}, err
		}
		methods = append(methods, m)
	}
	report, err := merge.Merge(path, methods)
	if err != nil {
		return Result{}, err
	}
	return Result{Model: model, Path: path, Added: report.Added, Skipped: report.Skipped}, nil
}
