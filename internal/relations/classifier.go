package relations

import (
	"strings"

	"go.uber.org/zap"

	"github.com/forge-cli/forge/internal/inspect"
	"github.com/forge-cli/forge/internal/naming"
)

// Source supplies the evidence the classifier needs about tables other than
// the one under analysis: pivot candidates' foreign keys, uniqueness of
// referencing columns, and polymorphic column declarations. The live-schema
// source cannot see morph columns and reports none; the migration source
// cannot see uniqueness and reports false.
type Source interface {
	ForeignKeysOf(table string) ([]inspect.ForeignKeyFact, error)
	IsUnique(table, column string) (bool, error)
	MorphsOf(table string) ([]string, error)
}

// Options tunes classification for one run.
type Options struct {
	// MorphTargets restricts SuggestedMorph candidates to these model
	// names. Empty means every known model is a candidate.
	MorphTargets []string
}

// Classifier builds normalized relationship records from raw facts.
type Classifier struct {
	logger *zap.Logger
}

// NewClassifier returns a Classifier. A nil logger disables logging.
func NewClassifier(logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{logger: logger}
}

// Classify produces the relationship records for table. facts are the
// table's outgoing foreign keys, incoming the foreign keys pointing at it,
// and allTables every table known to the evidence source. The result is
// deduplicated by method name, first record wins.
func (c *Classifier) Classify(table string, facts []inspect.ForeignKeyFact, incoming []inspect.IncomingFact, allTables []string, src Source) []Record {
	var records []Record

	// 1. Outgoing foreign keys: this table belongs to the referenced one.
	for _, f := range facts {
		records = append(records, c.belongsTo(f))
	}

	// 2. Pivot tables: a two-segment table named after this table and
	// another, carrying foreign keys into both.
	pivotRecords, pivotTables := c.pivots(table, allTables, src)

	// 3. Incoming foreign keys: hasOne when the referencing column is
	// unique, hasMany otherwise. hasMany is the default whenever
	// uniqueness cannot be determined. Keys arriving from a recognized
	// pivot table already surface as belongsToMany and are not inverted.
	for _, f := range incoming {
		if pivotTables[f.SourceTable] {
			continue
		}
		records = append(records, c.inverse(f, src))
	}

	records = append(records, pivotRecords...)

	// Polymorphic columns only surface through migration evidence; the
	// engine calls ClassifyMorphs separately on fallback runs.

	return Dedupe(records)
}

func (c *Classifier) belongsTo(f inspect.ForeignKeyFact) Record {
	method := naming.SingularCamel(f.ReferencedTable)
	if base, ok := strings.CutSuffix(f.Column, "_id"); ok && base != "" {
		method = naming.Camel(base)
	}
	return Record{
		Kind:         BelongsTo,
		LocalField:   f.Column,
		ForeignField: f.ReferencedColumn,
		ForeignTable: f.ReferencedTable,
		RelatedModel: naming.TableToModel(f.ReferencedTable),
		MethodName:   method,
	}
}

func (c *Classifier) inverse(f inspect.IncomingFact, src Source) Record {
	unique, err := src.IsUnique(f.SourceTable, f.Column)
	if err != nil {
		c.logger.Info("uniqueness undetermined, defaulting to hasMany",
			zap.String("table", f.SourceTable),
			zap.String("column", f.Column),
			zap.Error(err))
		unique = false
	}

	rec := Record{
		LocalField:   f.ReferencedColumn,
		ForeignField: f.Column,
		ForeignTable: f.SourceTable,
		RelatedModel: naming.TableToModel(f.SourceTable),
	}
	if unique {
		rec.Kind = HasOne
		rec.MethodName = naming.SingularCamel(f.SourceTable)
	} else {
		rec.Kind = HasMany
		rec.MethodName = naming.PluralCamel(f.SourceTable)
	}
	return rec
}

func (c *Classifier) pivots(table string, allTables []string, src Source) ([]Record, map[string]bool) {
	singular := naming.Singular(table)
	var records []Record
	pivotTables := map[string]bool{}

	for _, candidate := range allTables {
		if candidate == table {
			continue
		}
		segs := strings.Split(candidate, "_")
		if len(segs) != 2 {
			continue
		}

		var other string
		switch singular {
		case segs[0]:
			other = segs[1]
		case segs[1]:
			other = segs[0]
		default:
			continue
		}
		related := naming.Plural(other)

		fks, err := src.ForeignKeysOf(candidate)
		if err != nil {
			c.logger.Info("pivot candidate skipped, foreign keys unavailable",
				zap.String("table", candidate), zap.Error(err))
			continue
		}
		var intoSelf, intoRelated string
		for _, fk := range fks {
			switch fk.ReferencedTable {
			case table:
				intoSelf = fk.Column
			case related:
				intoRelated = fk.Column
			}
		}
		if intoSelf == "" || intoRelated == "" {
			continue
		}

		pivotTables[candidate] = true
		records = append(records, Record{
			Kind:         BelongsToMany,
			LocalField:   intoSelf,
			ForeignField: intoRelated,
			ForeignTable: related,
			RelatedModel: naming.TableToModel(related),
			MethodName:   naming.PluralCamel(related),
			PivotTable:   candidate,
		})
	}
	return records, pivotTables
}

// ClassifyMorphs produces the MorphTo record for table plus one
// SuggestedMorph per candidate model. Candidates default to every model in
// allTables other than the owner; an explicit target list narrows them.
// The suggestion accessor on each candidate is the pluralized owner table.
func (c *Classifier) ClassifyMorphs(table string, morphBases []string, allTables []string, opts Options) []Record {
	var records []Record
	owner := naming.TableToModel(table)

	for _, base := range morphBases {
		records = append(records, Record{
			Kind:       MorphTo,
			LocalField: base + "_id",
			MorphName:  base,
			MethodName: naming.Camel(base),
		})

		candidates := opts.MorphTargets
		if len(candidates) == 0 {
			for _, t := range allTables {
				if t == table {
					continue
				}
				candidates = append(candidates, naming.TableToModel(t))
			}
		}
		for _, model := range candidates {
			if model == owner {
				continue
			}
			records = append(records, Record{
				Kind:         SuggestedMorph,
				ForeignTable: table,
				RelatedModel: model,
				MorphName:    base,
				MethodName:   naming.PluralCamel(table),
			})
		}
	}
	return records
}
