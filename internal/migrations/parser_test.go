package migrations

import (
	"testing"

	"github.com/forge-cli/forge/internal/inspect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const commentsMigration = `
CREATE TABLE comments (
    id BIGSERIAL PRIMARY KEY,
    body TEXT NOT NULL,
    post_id BIGINT NOT NULL REFERENCES posts(id),
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
`

const ordersMigration = `
CREATE TABLE orders (
    id BIGSERIAL PRIMARY KEY,
    total NUMERIC(10, 2) NOT NULL,
    user_id BIGINT NOT NULL,
    coupon_id BIGINT,
    FOREIGN KEY (user_id) REFERENCES users(id),
    CONSTRAINT fk_orders_coupon FOREIGN KEY (coupon_id) REFERENCES coupons (id)
);
`

const imagesMigration = `
CREATE TABLE images (
    id BIGSERIAL PRIMARY KEY,
    url TEXT NOT NULL,
    imageable_id BIGINT NOT NULL,
    imageable_type VARCHAR(255) NOT NULL
);
`

func TestParseCreateTable(t *testing.T) {
	t.Run("column-level references", func(t *testing.T) {
		facts := ParseCreateTable(commentsMigration, "comments")
		require.Len(t, facts, 1)
		assert.Equal(t, inspect.ForeignKeyFact{
			Column:           "post_id",
			ReferencedTable:  "posts",
			ReferencedColumn: "id",
		}, facts[0])
	})

	t.Run("table-level foreign key triad", func(t *testing.T) {
		facts := ParseCreateTable(ordersMigration, "orders")
		require.Len(t, facts, 2)
		assert.Equal(t, "user_id", facts[0].Column)
		assert.Equal(t, "users", facts[0].ReferencedTable)
		assert.Equal(t, "coupon_id", facts[1].Column)
		assert.Equal(t, "coupons", facts[1].ReferencedTable)
	})

	t.Run("convention-based target from column name", func(t *testing.T) {
		src := `CREATE TABLE posts (
    id BIGSERIAL PRIMARY KEY,
    title VARCHAR(255) NOT NULL,
    user_id BIGINT NOT NULL
);`
		facts := ParseCreateTable(src, "posts")
		require.Len(t, facts, 1)
		assert.Equal(t, inspect.ForeignKeyFact{
			Column:           "user_id",
			ReferencedTable:  "users",
			ReferencedColumn: "id",
		}, facts[0])
	})

	t.Run("references without explicit column defaults to id", func(t *testing.T) {
		src := `CREATE TABLE posts (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT REFERENCES users
);`
		facts := ParseCreateTable(src, "posts")
		require.Len(t, facts, 1)
		assert.Equal(t, "id", facts[0].ReferencedColumn)
	})

	t.Run("morph pair is not treated as a conventional foreign key", func(t *testing.T) {
		facts := ParseCreateTable(imagesMigration, "images")
		assert.Empty(t, facts)
	})

	t.Run("quoted identifiers", func(t *testing.T) {
		src := "CREATE TABLE \"comments\" (\n  \"post_id\" BIGINT NOT NULL REFERENCES \"posts\"(\"id\")\n);"
		facts := ParseCreateTable(src, "comments")
		require.Len(t, facts, 1)
		assert.Equal(t, "posts", facts[0].ReferencedTable)
	})

	t.Run("wrong table yields nothing", func(t *testing.T) {
		assert.Empty(t, ParseCreateTable(commentsMigration, "posts"))
	})

	t.Run("duplicate column kept first-seen", func(t *testing.T) {
		src := `CREATE TABLE posts (
    user_id BIGINT NOT NULL REFERENCES users(id),
    FOREIGN KEY (user_id) REFERENCES accounts(id)
);`
		facts := ParseCreateTable(src, "posts")
		require.Len(t, facts, 1)
		assert.Equal(t, "users", facts[0].ReferencedTable)
	})
}

func TestParseMorphColumns(t *testing.T) {
	t.Run("detects id/type pair", func(t *testing.T) {
		morphs := ParseMorphColumns(imagesMigration, "images")
		assert.Equal(t, []string{"imageable"}, morphs)
	})

	t.Run("lone id column is not a morph", func(t *testing.T) {
		morphs := ParseMorphColumns(commentsMigration, "comments")
		assert.Empty(t, morphs)
	})
}

func TestParseColumns(t *testing.T) {
	cols := ParseColumns(ordersMigration, "orders")
	require.Len(t, cols, 4)
	assert.Equal(t, Column{Name: "id", SQLType: "BIGSERIAL"}, cols[0])
	assert.Equal(t, Column{Name: "total", SQLType: "NUMERIC"}, cols[1])
	assert.Equal(t, Column{Name: "user_id", SQLType: "BIGINT"}, cols[2])
	assert.Equal(t, Column{Name: "coupon_id", SQLType: "BIGINT"}, cols[3])
}
