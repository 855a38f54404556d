// Package relations turns raw foreign-key evidence into typed relationship
// records and derives the reciprocal record for each related model. It is
// the inference core behind crud generation and relation syncing.
package relations

import (
	"fmt"
	"sort"
	"strings"

	"github.com/forge-cli/forge/internal/naming"
)

// Kind classifies one directed association between two models.
type Kind int

const (
	// BelongsTo is a many-to-one association held by the source model.
	BelongsTo Kind = iota
	// HasOne is a one-to-one association inverted from a unique foreign key.
	HasOne
	// HasMany is a one-to-many association inverted from a foreign key.
	HasMany
	// BelongsToMany is a many-to-many association through a pivot table.
	BelongsToMany
	// MorphTo is a polymorphic owner lookup on the declaring model.
	MorphTo
	// SuggestedMorph is an advisory polymorphic accessor proposed for a
	// different model; it is never written without confirmation.
	SuggestedMorph
)

// String returns the camelCase name used in CLI tokens and generated docs.
func (k Kind) String() string {
	switch k {
	case BelongsTo:
		return "belongsTo"
	case HasOne:
		return "hasOne"
	case HasMany:
		return "hasMany"
	case BelongsToMany:
		return "belongsToMany"
	case MorphTo:
		return "morphTo"
	case SuggestedMorph:
		return "suggestedMorph"
	default:
		return "unknown"
	}
}

// ParseKind maps a CLI relation-token type onto a Kind. Only the four
// user-suppliable kinds are accepted; morph kinds are inference-only.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "belongsTo":
		return BelongsTo, true
	case "hasOne":
		return HasOne, true
	case "hasMany":
		return HasMany, true
	case "belongsToMany":
		return BelongsToMany, true
	default:
		return 0, false
	}
}

// Record is one detected association edge, destined for a single model file.
type Record struct {
	Kind         Kind
	LocalField   string // column on the source table, when applicable
	ForeignField string // column on the foreign table, when applicable
	ForeignTable string // related table
	RelatedModel string // studly model name resolved from the related table
	MethodName   string // accessor name to generate
	PivotTable   string // BelongsToMany only
	MorphName    string // MorphTo / SuggestedMorph only
	// SuggestedCode is the rendered accessor proposal for SuggestedMorph
	// records. It is advisory and requires confirmation before merging.
	SuggestedCode string
}

// Dedupe drops records whose MethodName was already seen, keeping the
// first occurrence. MethodName must be unique within one target class.
func Dedupe(records []Record) []Record {
	seen := make(map[string]bool, len(records))
	out := records[:0]
	for _, r := range records {
		if seen[r.MethodName] {
			continue
		}
		seen[r.MethodName] = true
		out = append(out, r)
	}
	return out
}

// PivotTableName returns the conventional pivot table for two tables:
// both segments singularized, sorted, joined by an underscore.
// Example: ("posts", "tags") -> "post_tag"
func PivotTableName(a, b string) string {
	segs := []string{naming.Singular(a), naming.Singular(b)}
	sort.Strings(segs)
	return strings.Join(segs, "_")
}

// ParseRelationSpec parses a --relations value of comma-separated
// model:type tokens. Malformed tokens are returned in skipped rather than
// aborting the parse; the caller decides how to report them.
func ParseRelationSpec(table, spec string) (records []Record, skipped []string) {
	for _, token := range strings.Split(spec, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		parts := strings.SplitN(token, ":", 2)
		if len(parts) != 2 || parts[0] == "" {
			skipped = append(skipped, token)
			continue
		}
		kind, ok := ParseKind(parts[1])
		if !ok {
			skipped = append(skipped, token)
			continue
		}
		records = append(records, recordForToken(table, naming.Studly(parts[0]), kind))
	}
	return Dedupe(records), skipped
}

func recordForToken(table, model string, kind Kind) Record {
	related := naming.ModelToTable(model)
	rec := Record{
		Kind:         kind,
		ForeignTable: related,
		RelatedModel: model,
	}
	switch kind {
	case BelongsTo:
		rec.LocalField = naming.ForeignKeyColumn(related)
		rec.ForeignField = "id"
		rec.MethodName = naming.SingularCamel(related)
	case HasOne:
		rec.LocalField = "id"
		rec.ForeignField = naming.ForeignKeyColumn(table)
		rec.MethodName = naming.SingularCamel(related)
	case HasMany:
		rec.LocalField = "id"
		rec.ForeignField = naming.ForeignKeyColumn(table)
		rec.MethodName = naming.PluralCamel(related)
	case BelongsToMany:
		rec.LocalField = naming.ForeignKeyColumn(table)
		rec.ForeignField = naming.ForeignKeyColumn(related)
		rec.PivotTable = PivotTableName(table, related)
		rec.MethodName = naming.PluralCamel(related)
	}
	return rec
}

// Validate reports records that violate the per-kind field invariants.
// It exists for tests and defensive checks in the sync engine.
func (r Record) Validate() error {
	switch r.Kind {
	case BelongsToMany:
		if r.PivotTable == "" {
			return fmt.Errorf("belongsToMany record %q missing pivot table", r.MethodName)
		}
	case MorphTo, SuggestedMorph:
		if r.MorphName == "" {
			return fmt.Errorf("%s record %q missing morph name", r.Kind, r.MethodName)
		}
	default:
		if r.ForeignTable == "" {
			return fmt.Errorf("%s record %q missing foreign table", r.Kind, r.MethodName)
		}
	}
	if r.MethodName == "" {
		return fmt.Errorf("record for %s missing method name", r.RelatedModel)
	}
	return nil
}
