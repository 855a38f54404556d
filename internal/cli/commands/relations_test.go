package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func seedProject(t *testing.T) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join("app", "models"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll("migrations", 0755); err != nil {
		t.Fatal(err)
	}

	writeModel := func(name, model string) {
		src := "package models\n\ntype " + model + " struct {\n\tID int64\n}\n"
		if err := os.WriteFile(filepath.Join("app", "models", name), []byte(src), 0644); err != nil {
			t.Fatal(err)
		}
	}
	writeModel("user.go", "User")
	writeModel("post.go", "Post")

	migrations := map[string]string{
		"001_create_users.up.sql": `CREATE TABLE users (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL
);`,
		"002_create_posts.up.sql": `CREATE TABLE posts (
    id BIGSERIAL PRIMARY KEY,
    title VARCHAR(255) NOT NULL,
    user_id BIGINT NOT NULL REFERENCES users(id)
);`,
	}
	for name, sql := range migrations {
		if err := os.WriteFile(filepath.Join("migrations", name), []byte(sql), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestNewRelationsCommand(t *testing.T) {
	cmd := NewRelationsCommand()

	if cmd.Use != "relations" {
		t.Errorf("expected Use to be 'relations', got %s", cmd.Use)
	}

	for _, expected := range []string{"add", "sync"} {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == expected {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected %s subcommand to be registered", expected)
		}
	}
}

func TestRelationsAddRequiresModel(t *testing.T) {
	inTempProject(t)

	cmd := NewRelationsCommand()
	cmd.SetArgs([]string{"add", "--relations", "user:belongsTo"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected an error when no model name is given")
	}
}

func TestRelationsAddMissingModelFile(t *testing.T) {
	inTempProject(t)
	seedProject(t)

	cmd := NewRelationsCommand()
	cmd.SetArgs([]string{"add", "Tag", "--relations", "post:belongsTo"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected an error for a model without a source file")
	}
}

func TestRelationsAddAllTokensInvalid(t *testing.T) {
	inTempProject(t)
	seedProject(t)

	cmd := NewRelationsCommand()
	cmd.SetArgs([]string{"add", "Post", "--relations", "bogus,comment:morphTo"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected an error when every token is invalid")
	}
}

func TestRelationsAddMergesAccessors(t *testing.T) {
	inTempProject(t)
	seedProject(t)

	cmd := NewRelationsCommand()
	cmd.SetArgs([]string{"add", "Post", "--relations", "user:belongsTo,tag:belongsToMany"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected relations add to succeed, got %v", err)
	}

	model := readFile(t, filepath.Join("app", "models", "post.go"))
	if !strings.Contains(model, "func (m *Post) User(db *gorm.DB)") {
		t.Error("expected belongsTo accessor on Post")
	}
	if !strings.Contains(model, "func (m *Post) Tags(db *gorm.DB)") {
		t.Error("expected belongsToMany accessor on Post")
	}
}

func TestRelationsSyncRequiresTarget(t *testing.T) {
	inTempProject(t)

	cmd := NewRelationsCommand()
	cmd.SetArgs([]string{"sync"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected an error without a model name or --all")
	}
}

func TestRelationsSyncAll(t *testing.T) {
	inTempProject(t)
	seedProject(t)

	cmd := NewRelationsCommand()
	cmd.SetArgs([]string{"sync", "--all"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected sync to succeed, got %v", err)
	}

	post := readFile(t, filepath.Join("app", "models", "post.go"))
	if !strings.Contains(post, "func (m *Post) User(db *gorm.DB)") {
		t.Error("expected belongsTo accessor on Post")
	}

	user := readFile(t, filepath.Join("app", "models", "user.go"))
	if !strings.Contains(user, "func (m *User) Posts(db *gorm.DB)") {
		t.Error("expected reciprocal hasMany accessor on User")
	}
}

func TestRelationsSyncSingleModel(t *testing.T) {
	inTempProject(t)
	seedProject(t)

	cmd := NewRelationsCommand()
	cmd.SetArgs([]string{"sync", "Post"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected sync to succeed, got %v", err)
	}

	post := readFile(t, filepath.Join("app", "models", "post.go"))
	if !strings.Contains(post, "func (m *Post) User(db *gorm.DB)") {
		t.Error("expected belongsTo accessor on Post")
	}
}

func TestRelationsSyncUnknownModelFails(t *testing.T) {
	inTempProject(t)
	seedProject(t)

	cmd := NewRelationsCommand()
	cmd.SetArgs([]string{"sync", "Tag"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected an error for a model without a source file")
	}
}

func TestRelationsSyncMorphTargetsAutoApply(t *testing.T) {
	inTempProject(t)
	seedProject(t)

	comment := "package models\n\ntype Comment struct {\n\tID int64\n}\n"
	if err := os.WriteFile(filepath.Join("app", "models", "comment.go"), []byte(comment), 0644); err != nil {
		t.Fatal(err)
	}
	sql := `CREATE TABLE comments (
    id BIGSERIAL PRIMARY KEY,
    body TEXT NOT NULL,
    commentable_id BIGINT NOT NULL,
    commentable_type VARCHAR(255) NOT NULL
);`
	if err := os.WriteFile(filepath.Join("migrations", "003_create_comments.up.sql"), []byte(sql), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := NewRelationsCommand()
	cmd.SetArgs([]string{"sync", "--all", "--morph-targets", "Post"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected sync to succeed, got %v", err)
	}

	commentSrc := readFile(t, filepath.Join("app", "models", "comment.go"))
	if !strings.Contains(commentSrc, "func (m *Comment) Commentable(db *gorm.DB)") {
		t.Error("expected morphTo accessor on Comment")
	}

	post := readFile(t, filepath.Join("app", "models", "post.go"))
	if !strings.Contains(post, "func (m *Post) Comments(db *gorm.DB)") {
		t.Error("expected suggested polymorphic accessor applied to Post")
	}
}
