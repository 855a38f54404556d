package generate

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/forge-cli/forge/internal/merge"
	"github.com/forge-cli/forge/internal/naming"
	"github.com/forge-cli/forge/internal/relations"
)

// Relationship accessors are rendered inline rather than from template
// files; each is a single method and the set is closed over the Kind enum.
var methodTemplates = map[relations.Kind]*template.Template{
	relations.BelongsTo: tmpl("belongsTo", `// {{.Accessor}} returns the {{.Related}} this {{.Model}} belongs to.
func (m *{{.Model}}) {{.Accessor}}(db *gorm.DB) (*{{.Related}}, error) {
	var rec {{.Related}}
	if err := db.Table("{{.ForeignTable}}").Where("{{.ForeignField}} = ?", m.{{.LocalGoField}}).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}`),

	relations.HasOne: tmpl("hasOne", `// {{.Accessor}} returns the {{.Related}} that references this {{.Model}}.
func (m *{{.Model}}) {{.Accessor}}(db *gorm.DB) (*{{.Related}}, error) {
	var rec {{.Related}}
	if err := db.Table("{{.ForeignTable}}").Where("{{.ForeignField}} = ?", m.{{.LocalGoField}}).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}`),

	relations.HasMany: tmpl("hasMany", `// {{.Accessor}} returns the {{.Related}} records that reference this {{.Model}}.
func (m *{{.Model}}) {{.Accessor}}(db *gorm.DB) ([]{{.Related}}, error) {
	var recs []{{.Related}}
	err := db.Table("{{.ForeignTable}}").Where("{{.ForeignField}} = ?", m.{{.LocalGoField}}).Find(&recs).Error
	return recs, err
}`),

	relations.BelongsToMany: tmpl("belongsToMany", `// {{.Accessor}} returns the {{.Related}} records linked through {{.Pivot}}.
func (m *{{.Model}}) {{.Accessor}}(db *gorm.DB) ([]{{.Related}}, error) {
	var recs []{{.Related}}
	err := db.Table("{{.ForeignTable}}").
		Joins("JOIN {{.Pivot}} ON {{.Pivot}}.{{.ForeignField}} = {{.ForeignTable}}.id").
		Where("{{.Pivot}}.{{.LocalField}} = ?", m.ID).
		Find(&recs).Error
	return recs, err
}`),

	relations.MorphTo: tmpl("morphTo", `// {{.Accessor}} scopes a query to the record this {{.Model}} is attached
// to; the concrete table is named by m.{{.MorphTypeGoField}}.
func (m *{{.Model}}) {{.Accessor}}(db *gorm.DB) *gorm.DB {
	return db.Table(m.{{.MorphTypeGoField}}).Where("id = ?", m.{{.MorphIDGoField}})
}`),

	relations.SuggestedMorph: tmpl("suggestedMorph", `// {{.Accessor}} returns the {{.Related}} records attached to this {{.Model}}.
func (m *{{.Model}}) {{.Accessor}}(db *gorm.DB) ([]{{.Related}}, error) {
	var recs []{{.Related}}
	err := db.Table("{{.ForeignTable}}").
		Where("{{.MorphName}}_type = ? AND {{.MorphName}}_id = ?", "{{.Model}}", m.ID).
		Find(&recs).Error
	return recs, err
}`),
}

func tmpl(name, body string) *template.Template {
	return template.Must(template.New(name).Parse(body))
}

type methodData struct {
	Model            string
	Related          string
	Accessor         string
	ForeignTable     string
	ForeignField     string
	LocalField       string
	LocalGoField     string
	Pivot            string
	MorphName        string
	MorphTypeGoField string
	MorphIDGoField   string
}

// RenderMethod renders the accessor for one relationship record, destined
// for model's source file. The merger keys its presence check on the
// returned method name.
func RenderMethod(model string, rec relations.Record) (merge.Method, error) {
	t, ok := methodTemplates[rec.Kind]
	if !ok {
		return merge.Method{}, fmt.Errorf("no accessor template for kind %s", rec.Kind)
	}

	data := methodData{
		Model:        model,
		Related:      rec.RelatedModel,
		Accessor:     naming.Studly(rec.MethodName),
		ForeignTable: rec.ForeignTable,
		ForeignField: rec.ForeignField,
		LocalField:   rec.LocalField,
		Pivot:        rec.PivotTable,
		MorphName:    rec.MorphName,
	}
	if rec.LocalField != "" {
		data.LocalGoField = GoFieldName(rec.LocalField)
	}
	if rec.Kind == relations.MorphTo {
		data.MorphTypeGoField = GoFieldName(rec.MorphName + "_type")
		data.MorphIDGoField = GoFieldName(rec.MorphName + "_id")
	}
	if rec.Kind == relations.SuggestedMorph {
		data.Model = rec.RelatedModel
		data.Related = naming.TableToModel(rec.ForeignTable)
	}

	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return merge.Method{}, fmt.Errorf("failed to render %s accessor: %w", rec.Kind, err)
	}
	return merge.Method{Name: data.Accessor, Source: b.String()}, nil
}
