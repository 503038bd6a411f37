package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSQL(t *testing.T) {
	sql := `-- conversation sessions
CREATE TABLE a (
  id TEXT PRIMARY KEY -- trailing comments stay
);

  -- indented comment
CREATE INDEX idx_a ON a (id);
;
`
	assert.Equal(t, []string{
		"CREATE TABLE a (\n  id TEXT PRIMARY KEY -- trailing comments stay\n)",
		"CREATE INDEX idx_a ON a (id)",
	}, splitSQL(sql))
}

func TestSplitSQLEmpty(t *testing.T) {
	assert.Empty(t, splitSQL("-- nothing here\n\n"))
}
