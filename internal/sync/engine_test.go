package sync

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forge-cli/forge/internal/generate"
	"github.com/forge-cli/forge/internal/migrations"
	"github.com/forge-cli/forge/internal/relations"
)

type fixture struct {
	dir    string
	layout generate.Layout
	engine *Engine
}

func newFixture(t *testing.T, morphTargets []string) *fixture {
	t.Helper()
	dir := t.TempDir()
	layout := generate.Layout{
		Models:       filepath.Join(dir, "app", "models"),
		Controllers:  filepath.Join(dir, "app", "controllers"),
		Requests:     filepath.Join(dir, "app", "requests"),
		Repositories: filepath.Join(dir, "app", "repositories"),
		Routes:       filepath.Join(dir, "app", "routes"),
		Migrations:   filepath.Join(dir, "migrations"),
	}
	gen, err := generate.New(layout, false)
	require.NoError(t, err)

	engine := New(Options{
		Finder:       migrations.NewFinder(layout.Migrations),
		Generator:    gen,
		MorphTargets: morphTargets,
	})
	return &fixture{dir: dir, layout: layout, engine: engine}
}

func (f *fixture) writeModel(t *testing.T, name, model string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(f.layout.Models, 0755))
	path := filepath.Join(f.layout.Models, name)
	src := "package models\n\ntype " + model + " struct {\n\tID int64\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func (f *fixture) writeMigration(t *testing.T, name, sql string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(f.layout.Migrations, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(f.layout.Migrations, name), []byte(sql), 0644))
}

func (f *fixture) read(t *testing.T, path string) string {
	t.Helper()
	src, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(src)
}

func seedBlog(t *testing.T, f *fixture) (userPath, postPath string) {
	userPath = f.writeModel(t, "user.go", "User")
	postPath = f.writeModel(t, "post.go", "Post")
	f.writeMigration(t, "001_create_users.up.sql", `
CREATE TABLE users (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL
);`)
	f.writeMigration(t, "002_create_posts.up.sql", `
CREATE TABLE posts (
    id BIGSERIAL PRIMARY KEY,
    title VARCHAR(255) NOT NULL,
    user_id BIGINT NOT NULL REFERENCES users(id)
);`)
	return userPath, postPath
}

func TestSyncAllTwoPhases(t *testing.T) {
	f := newFixture(t, nil)
	userPath, postPath := seedBlog(t, f)

	results, suggestions, err := f.engine.SyncAll()
	require.NoError(t, err)
	assert.Empty(t, suggestions)

	post := f.read(t, postPath)
	assert.Contains(t, post, "func (m *Post) User(db *gorm.DB) (*User, error)")

	user := f.read(t, userPath)
	assert.Contains(t, user, "func (m *User) Posts(db *gorm.DB) ([]Post, error)")

	var added []string
	for _, r := range results {
		added = append(added, r.Added...)
	}
	assert.ElementsMatch(t, []string{"User", "Posts"}, added)
}

func TestSyncAllIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	userPath, postPath := seedBlog(t, f)

	_, _, err := f.engine.SyncAll()
	require.NoError(t, err)
	first := f.read(t, postPath) + f.read(t, userPath)

	results, _, err := f.engine.SyncAll()
	require.NoError(t, err)
	second := f.read(t, postPath) + f.read(t, userPath)

	assert.Equal(t, first, second)
	for _, r := range results {
		assert.Empty(t, r.Added, r.Model)
	}
}

func TestSyncOneAppliesReciprocals(t *testing.T) {
	f := newFixture(t, nil)
	userPath, postPath := seedBlog(t, f)

	_, _, err := f.engine.SyncOne("Post")
	require.NoError(t, err)

	assert.Contains(t, f.read(t, postPath), "func (m *Post) User")
	assert.Contains(t, f.read(t, userPath), "func (m *User) Posts")
}

func TestSyncOneMissingModelIsFatal(t *testing.T) {
	f := newFixture(t, nil)
	seedBlog(t, f)

	_, _, err := f.engine.SyncOne("Tag")
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestSyncAllSkipsMissingModels(t *testing.T) {
	f := newFixture(t, nil)
	seedBlog(t, f)
	f.writeMigration(t, "003_create_tags.up.sql", `
CREATE TABLE tags (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL
);`)

	results, _, err := f.engine.SyncAll()
	require.NoError(t, err)

	var missing []string
	for _, r := range results {
		if r.Missing {
			missing = append(missing, r.Model)
		}
	}
	assert.Equal(t, []string{"Tag"}, missing)
}

func TestSyncPivotTable(t *testing.T) {
	f := newFixture(t, nil)
	_, postPath := seedBlog(t, f)
	tagPath := f.writeModel(t, "tag.go", "Tag")
	f.writeMigration(t, "003_create_tags.up.sql", `
CREATE TABLE tags (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL
);`)
	f.writeMigration(t, "004_create_post_tag.up.sql", `
CREATE TABLE post_tag (
    post_id BIGINT NOT NULL REFERENCES posts(id),
    tag_id BIGINT NOT NULL REFERENCES tags(id),
    PRIMARY KEY (post_id, tag_id)
);`)

	_, _, err := f.engine.SyncAll()
	require.NoError(t, err)

	post := f.read(t, postPath)
	assert.Contains(t, post, "func (m *Post) Tags(db *gorm.DB) ([]Tag, error)")
	assert.Contains(t, post, `Joins("JOIN post_tag ON post_tag.tag_id = tags.id")`)

	tag := f.read(t, tagPath)
	assert.Contains(t, tag, "func (m *Tag) Posts(db *gorm.DB) ([]Post, error)")
}

func TestSyncMorphSuggestions(t *testing.T) {
	f := newFixture(t, []string{"Post"})
	_, postPath := seedBlog(t, f)
	commentPath := f.writeModel(t, "comment.go", "Comment")
	f.writeMigration(t, "003_create_comments.up.sql", `
CREATE TABLE comments (
    id BIGSERIAL PRIMARY KEY,
    body TEXT NOT NULL,
    commentable_id BIGINT NOT NULL,
    commentable_type VARCHAR(255) NOT NULL
);`)

	_, suggestions, err := f.engine.SyncAll()
	require.NoError(t, err)

	// The declaring model gets its morphTo accessor directly.
	comment := f.read(t, commentPath)
	assert.Contains(t, comment, "func (m *Comment) Commentable(db *gorm.DB) *gorm.DB")

	// Suggestions are proposed, not written.
	require.Len(t, suggestions, 1)
	s := suggestions[0]
	assert.Equal(t, "Post", s.Model)
	assert.Equal(t, relations.SuggestedMorph, s.Record.Kind)
	assert.NotContains(t, f.read(t, postPath), "Comments")

	// Committing writes the accessor into the target model.
	res, err := f.engine.CommitSuggestion(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"Comments"}, res.Added)
	assert.Contains(t, f.read(t, postPath), "func (m *Post) Comments(db *gorm.DB) ([]Comment, error)")
}

func TestAddRelations(t *testing.T) {
	f := newFixture(t, nil)
	_, postPath := seedBlog(t, f)

	records, skipped := relations.ParseRelationSpec("posts", "user:belongsTo,tag:belongsToMany,bogus")
	assert.Equal(t, []string{"bogus"}, skipped)

	res, err := f.engine.AddRelations("Post", records)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"User", "Tags"}, res.Added)

	post := f.read(t, postPath)
	assert.Contains(t, post, "func (m *Post) User")
	assert.Contains(t, post, "func (m *Post) Tags")
	assert.Equal(t, 1, strings.Count(post, "func (m *Post) User"))
}

func TestAddRelationsMissingModel(t *testing.T) {
	f := newFixture(t, nil)
	seedBlog(t, f)

	_, err := f.engine.AddRelations("Tag", nil)
	assert.ErrorIs(t, err, ErrModelNotFound)
}
