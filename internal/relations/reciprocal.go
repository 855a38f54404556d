package relations

import (
	"github.com/forge-cli/forge/internal/naming"
)

// ReverseOf derives the relationship the related model should declare back
// toward sourceModel. The second return is false when the record has no
// derivable reverse (morph kinds route through suggestion handling instead).
//
//	belongsTo     -> hasMany       (plural accessor of the source model)
//	hasMany       -> belongsTo     (singular accessor of the source model)
//	hasOne        -> belongsTo     (singular accessor of the source model)
//	belongsToMany -> belongsToMany (plural accessor, same pivot)
func ReverseOf(sourceModel string, rec Record) (Record, bool) {
	sourceTable := naming.ModelToTable(sourceModel)

	switch rec.Kind {
	case BelongsTo:
		return Record{
			Kind:         HasMany,
			LocalField:   rec.ForeignField,
			ForeignField: rec.LocalField,
			ForeignTable: sourceTable,
			RelatedModel: sourceModel,
			MethodName:   naming.PluralCamel(sourceTable),
		}, true
	case HasMany, HasOne:
		return Record{
			Kind:         BelongsTo,
			LocalField:   rec.ForeignField,
			ForeignField: rec.LocalField,
			ForeignTable: sourceTable,
			RelatedModel: sourceModel,
			MethodName:   naming.SingularCamel(sourceTable),
		}, true
	case BelongsToMany:
		return Record{
			Kind:         BelongsToMany,
			LocalField:   rec.ForeignField,
			ForeignField: rec.LocalField,
			ForeignTable: sourceTable,
			RelatedModel: sourceModel,
			MethodName:   naming.PluralCamel(sourceTable),
			PivotTable:   rec.PivotTable,
		}, true
	default:
		return Record{}, false
	}
}

// ReverseAll groups the reverse of every record by its target model,
// deduplicated by method name per target. Records without a reverse are
// skipped.
func ReverseAll(sourceModel string, records []Record) map[string][]Record {
	byTarget := make(map[string][]Record)
	for _, rec := range records {
		rev, ok := ReverseOf(sourceModel, rec)
		if !ok {
			continue
		}
		byTarget[rec.RelatedModel] = append(byTarget[rec.RelatedModel], rev)
	}
	for model, recs := range byTarget {
		byTarget[model] = Dedupe(recs)
	}
	return byTarget
}
