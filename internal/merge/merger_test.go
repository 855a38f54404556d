package merge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const postModel = `package models

// Post is a generated model.
type Post struct {
	ID    int64
	Title string
}

// TableName returns the backing table.
func (m *Post) TableName() string {
	return "posts"
}
`

const userMethod = `// User returns the owning User.
func (m *Post) User(ctx context.Context, db *sql.DB) (*User, error) {
	return findUser(ctx, db, m.UserID)
}`

func writeModel(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "post.go")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestMerge(t *testing.T) {
	t.Run("appends new method", func(t *testing.T) {
		path := writeModel(t, postModel)

		report, err := Merge(path, []Method{{Name: "User", Source: userMethod}})
		require.NoError(t, err)
		assert.Equal(t, []string{"User"}, report.Added)
		assert.Empty(t, report.Skipped)

		text := readFile(t, path)
		assert.Contains(t, text, "func (m *Post) User(")
		// Original content intact.
		assert.Contains(t, text, "func (m *Post) TableName()")
	})

	t.Run("second merge is a no-op", func(t *testing.T) {
		path := writeModel(t, postModel)

		_, err := Merge(path, []Method{{Name: "User", Source: userMethod}})
		require.NoError(t, err)
		first := readFile(t, path)

		report, err := Merge(path, []Method{{Name: "User", Source: userMethod}})
		require.NoError(t, err)
		assert.Empty(t, report.Added)
		assert.Equal(t, []string{"User"}, report.Skipped)
		assert.Equal(t, first, readFile(t, path))
	})

	t.Run("existing method skipped by name", func(t *testing.T) {
		path := writeModel(t, postModel)

		report, err := Merge(path, []Method{
			{Name: "TableName", Source: "func (m *Post) TableName() string { return \"other\" }"},
			{Name: "User", Source: userMethod},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"User"}, report.Added)
		assert.Equal(t, []string{"TableName"}, report.Skipped)
	})

	t.Run("comment mentioning the declaration also causes a skip", func(t *testing.T) {
		model := postModel + "\n// see also: func (m *Post) User() for ownership\n"
		path := writeModel(t, model)

		report, err := Merge(path, []Method{{Name: "User", Source: userMethod}})
		require.NoError(t, err)
		assert.Empty(t, report.Added)
		assert.Equal(t, []string{"User"}, report.Skipped)
	})

	t.Run("trailing whitespace preserved", func(t *testing.T) {
		model := postModel + "\n\n"
		path := writeModel(t, model)

		_, err := Merge(path, []Method{{Name: "User", Source: userMethod}})
		require.NoError(t, err)

		text := readFile(t, path)
		assert.True(t, len(text) > 3)
		assert.Equal(t, "\n\n\n", text[len(text)-3:])
	})

	t.Run("missing file reports error without writing", func(t *testing.T) {
		_, err := Merge(filepath.Join(t.TempDir(), "absent.go"), []Method{{Name: "User", Source: userMethod}})
		assert.Error(t, err)
	})

	t.Run("file without anchor", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.go")
		require.NoError(t, os.WriteFile(path, []byte("package models\n"), 0644))

		_, err := Merge(path, []Method{{Name: "User", Source: userMethod}})
		assert.ErrorIs(t, err, ErrNoAnchor)
	})

	t.Run("zero accepted methods leaves file untouched", func(t *testing.T) {
		path := writeModel(t, postModel)
		before := readFile(t, path)

		report, err := Merge(path, []Method{{Name: "TableName", Source: "x"}})
		require.NoError(t, err)
		assert.Empty(t, report.Added)
		assert.Equal(t, before, readFile(t, path))
	})
}

func TestAppendInside(t *testing.T) {
	const routes = `package routes

func RegisterRoutes(r chi.Router) {
	r.Mount("/users", UserRoutes())
}
`

	t.Run("inserts before final brace", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "routes.go")
		require.NoError(t, os.WriteFile(path, []byte(routes), 0644))

		wrote, err := AppendInside(path, `"/posts"`, "\tr.Mount(\"/posts\", PostRoutes())")
		require.NoError(t, err)
		assert.True(t, wrote)

		text := readFile(t, path)
		assert.Contains(t, text, "r.Mount(\"/users\", UserRoutes())\n\tr.Mount(\"/posts\", PostRoutes())\n}")
	})

	t.Run("idempotent by needle", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "routes.go")
		require.NoError(t, os.WriteFile(path, []byte(routes), 0644))

		_, err := AppendInside(path, `"/posts"`, "\tr.Mount(\"/posts\", PostRoutes())")
		require.NoError(t, err)
		first := readFile(t, path)

		wrote, err := AppendInside(path, `"/posts"`, "\tr.Mount(\"/posts\", PostRoutes())")
		require.NoError(t, err)
		assert.False(t, wrote)
		assert.Equal(t, first, readFile(t, path))
	})
}

func TestMethodDeclared(t *testing.T) {
	assert.True(t, methodDeclared("func (m *Post) User() {}", "User"))
	assert.True(t, methodDeclared("func (m *Post)User() {}", "User"))
	assert.False(t, methodDeclared("// the user field", "User"))
	assert.False(t, methodDeclared("func (m *Post) Username() {}", "User"))
}
