package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSQLStatements(t *testing.T) {
	statements := parseSQLStatements(Schema)

	assert.Len(t, statements, 2)
	assert.Contains(t, statements[0], "CREATE TABLE IF NOT EXISTS ipo_notification_state")
	assert.NotContains(t, statements[0], "--")
	assert.Contains(t, statements[1], "CREATE INDEX IF NOT EXISTS")
}

func TestParseSQLStatementsTrailingStatement(t *testing.T) {
	statements := parseSQLStatements("-- comment\nSELECT 1;\n\nSELECT\n  2")

	assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, statements)
}
