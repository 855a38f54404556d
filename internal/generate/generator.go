package generate

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/forge-cli/forge/internal/inspect"
	"github.com/forge-cli/forge/internal/merge"
	"github.com/forge-cli/forge/internal/naming"
	"github.com/forge-cli/forge/internal/relations"
)

//go:embed templates/*
var templatesFS embed.FS

// ErrExists is returned when a target file is already present and the
// generator was not told to overwrite it.
var ErrExists = fmt.Errorf("file already exists (use --force to overwrite)")

// Layout names the directories generated application code lands in.
type Layout struct {
	Models       string
	Controllers  string
	Requests     string
	Repositories string
	Routes       string
	Migrations   string
}

// DefaultLayout mirrors the conventional app/ tree.
func DefaultLayout() Layout {
	return Layout{
		Models:       "app/models",
		Controllers:  "app/controllers",
		Requests:     "app/requests",
		Repositories: "app/repositories",
		Routes:       "app/routes",
		Migrations:   "migrations",
	}
}

// Generator renders scaffolding files into an application tree.
type Generator struct {
	layout Layout
	force  bool
	tmpl   *template.Template
}

// New parses the embedded templates and returns a Generator writing
// into layout. With force set, existing scaffold files are overwritten;
// shared files (routes, provider, controller base) are never clobbered.
func New(layout Layout, force bool) (*Generator, error) {
	t, err := template.ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Generator{layout: layout, force: force, tmpl: t}, nil
}

// scaffoldData feeds every per-resource template.
type scaffoldData struct {
	Model          string
	Table          string
	Singular       string
	Route          string
	Fields         []Field
	FillableFields []Field
	Fillable       []string
	NeedsTime      bool
	NeedsForm      bool

	// Import switches for the request template, computed over the
	// fillable fields only so generated files never carry unused imports.
	RequestNeedsTime bool
	NeedsStrconv     bool
	NeedsFmt         bool
}

func (g *Generator) data(model string, fields []Field, withForm bool) scaffoldData {
	table := naming.ModelToTable(model)
	fillable := fillableFields(fields)
	strconvNeeded := withForm && needsStrconv(fillable)
	timeNeeded := needsTime(fillable)
	return scaffoldData{
		Model:          naming.Studly(model),
		Table:          table,
		Singular:       naming.Singular(table),
		Route:          naming.Kebab(table),
		Fields:         fields,
		FillableFields: fillable,
		Fillable:       Fillable(fields),
		NeedsTime:      needsTime(fields),
		NeedsForm:      withForm,

		RequestNeedsTime: timeNeeded,
		NeedsStrconv:     strconvNeeded,
		NeedsFmt:         hasString(fillable) || strconvNeeded || (withForm && timeNeeded),
	}
}

func hasString(fields []Field) bool {
	for _, f := range fields {
		if f.GoType == "string" {
			return true
		}
	}
	return false
}

func fillableFields(fields []Field) []Field {
	var out []Field
	for _, f := range fields {
		if guardedColumns[f.Column] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func needsStrconv(fields []Field) bool {
	for _, f := range fields {
		if f.GoType == "int64" || f.GoType == "float64" {
			return true
		}
	}
	return false
}

// ModelPath returns where the model source for the named model lives.
func (g *Generator) ModelPath(model string) string {
	return filepath.Join(g.layout.Models, naming.Snake(model)+".go")
}

// GenerateModel renders the model struct file and returns its path.
func (g *Generator) GenerateModel(model string, fields []Field) (string, error) {
	path := g.ModelPath(model)
	return path, g.render("model.go.tmpl", path, g.data(model, fields, false), g.force)
}

// GenerateController renders the controller for model. With api set the
// controller speaks JSON; otherwise it renders views and reads forms.
// The shared controller base file is created alongside if missing.
func (g *Generator) GenerateController(model string, api bool) (string, error) {
	base := filepath.Join(g.layout.Controllers, "base.go")
	if err := g.render("controller_base.go.tmpl", base, nil, false); err != nil && err != ErrExists {
		return "", err
	}
	name := "controller_web.go.tmpl"
	if api {
		name = "controller_api.go.tmpl"
	}
	path := filepath.Join(g.layout.Controllers, naming.Snake(model)+"_controller.go")
	return path, g.render(name, path, g.data(model, nil, false), g.force)
}

// GenerateRequest renders the validated request type for model. withForm
// additionally emits a form-decoding constructor for web controllers.
func (g *Generator) GenerateRequest(model string, fields []Field, withForm bool) (string, error) {
	path := filepath.Join(g.layout.Requests, naming.Snake(model)+"_request.go")
	return path, g.render("request.go.tmpl", path, g.data(model, fields, withForm), g.force)
}

// GenerateRepository renders the repository for model and makes sure the
// repository provider file exists.
func (g *Generator) GenerateRepository(model string) (string, error) {
	provider := filepath.Join(g.layout.Repositories, "provider.go")
	if err := g.render("provider.go.tmpl", provider, nil, false); err != nil && err != ErrExists {
		return "", err
	}
	path := filepath.Join(g.layout.Repositories, naming.Snake(model)+"_repository.go")
	return path, g.render("repository.go.tmpl", path, g.data(model, nil, false), g.force)
}

// GenerateMigration writes timestamped up/down migration files creating
// the model's table, with one BIGINT REFERENCES line per foreign key.
// It returns the up file's path.
func (g *Generator) GenerateMigration(model string, fks []inspect.ForeignKeyFact) (string, error) {
	table := naming.ModelToTable(model)
	if err := os.MkdirAll(g.layout.Migrations, 0755); err != nil {
		return "", fmt.Errorf("failed to create migrations directory: %w", err)
	}
	version := time.Now().Unix()
	up := filepath.Join(g.layout.Migrations, fmt.Sprintf("%d_create_%s.up.sql", version, table))
	down := filepath.Join(g.layout.Migrations, fmt.Sprintf("%d_create_%s.down.sql", version, table))

	migData := struct {
		Table       string
		ForeignKeys []inspect.ForeignKeyFact
	}{Table: table, ForeignKeys: fks}

	if err := g.render("migration.up.sql.tmpl", up, migData, g.force); err != nil {
		return "", err
	}
	if err := g.render("migration.down.sql.tmpl", down, migData, g.force); err != nil {
		return "", err
	}
	return up, nil
}

// GeneratePivotMigration writes the join-table migration for a
// belongsToMany pair. left and right are model names.
func (g *Generator) GeneratePivotMigration(left, right string) (string, error) {
	leftTable := naming.ModelToTable(left)
	rightTable := naming.ModelToTable(right)
	pivot := relations.PivotTableName(leftTable, rightTable)
	if err := os.MkdirAll(g.layout.Migrations, 0755); err != nil {
		return "", fmt.Errorf("failed to create migrations directory: %w", err)
	}
	version := time.Now().Unix()
	up := filepath.Join(g.layout.Migrations, fmt.Sprintf("%d_create_%s.up.sql", version, pivot))
	down := filepath.Join(g.layout.Migrations, fmt.Sprintf("%d_create_%s.down.sql", version, pivot))

	migData := struct {
		Table       string
		ForeignKeys []inspect.ForeignKeyFact
	}{
		Table: pivot,
		ForeignKeys: []inspect.ForeignKeyFact{
			{Column: naming.ForeignKeyColumn(leftTable), ReferencedTable: leftTable, ReferencedColumn: "id"},
			{Column: naming.ForeignKeyColumn(rightTable), ReferencedTable: rightTable, ReferencedColumn: "id"},
		},
	}

	if err := g.render("pivot.up.sql.tmpl", up, migData, g.force); err != nil {
		return "", err
	}
	if err := g.render("migration.down.sql.tmpl", down, migData, g.force); err != nil {
		return "", err
	}
	return up, nil
}

// RoutesPath returns the shared routes file, creating it from the
// scaffold if it does not exist yet.
func (g *Generator) RoutesPath() (string, error) {
	path := filepath.Join(g.layout.Routes, "routes.go")
	if err := g.render("routes.go.tmpl", path, nil, false); err != nil && err != ErrExists {
		return "", err
	}
	return path, nil
}

// AddRoute appends the resource's route group to the shared routes
// file. Re-running is a no-op once the group is present.
func (g *Generator) AddRoute(model string, api bool) (bool, error) {
	path, err := g.RoutesPath()
	if err != nil {
		return false, err
	}
	d := g.data(model, nil, false)
	ctor := fmt.Sprintf("controllers.New%sController(repos.%s())", d.Model, d.Model)
	if !api {
		ctor = fmt.Sprintf("controllers.New%sController(repos.%s(), views)", d.Model, d.Model)
	}
	snippet := fmt.Sprintf(`	r.Route("/%s", func(r chi.Router) {
		c := %s
		r.Get("/", c.Index)
		r.Post("/", c.Store)
		r.Get("/{id}", c.Show)
		r.Put("/{id}", c.Update)
		r.Delete("/{id}", c.Destroy)
	})`, d.Route, ctor)
	return merge.AppendInside(path, fmt.Sprintf(`r.Route("/%s"`, d.Route), snippet)
}

// AddRepositoryBinding appends the model's accessor method to the
// repository provider. Re-running is a no-op once the method exists.
func (g *Generator) AddRepositoryBinding(model string) (bool, error) {
	provider := filepath.Join(g.layout.Repositories, "provider.go")
	if err := g.render("provider.go.tmpl", provider, nil, false); err != nil && err != ErrExists {
		return false, err
	}
	d := g.data(model, nil, false)
	src := fmt.Sprintf(`// %s returns the %s repository.
func (p *Provider) %s() *%sRepository {
	return New%sRepository(p.db)
}`, d.Model, d.Singular, d.Model, d.Model, d.Model)
	report, err := merge.Merge(provider, []merge.Method{{Name: d.Model, Source: src}})
	if err != nil {
		return false, err
	}
	return len(report.Added) > 0, nil
}

// render executes the named template into path. Without overwrite set an
// existing file is reported via ErrExists and left alone.
func (g *Generator) render(name, path string, data any, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return ErrExists
	}
	var buf bytes.Buffer
	if err := g.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
