// Package convfts adapts a conversation history table the engine does
// not own into a read-only full-text search source. It generalizes the
// reference stack's memories_fts trigger-synced virtual table
// (internal/database/schema.go) and SearchCCMessages
// (internal/database/operations_chat.go) "query a table you don't own,
// join against its FTS shadow, return plain rows" idiom from a hard-coded
// table and a LIKE scan to an arbitrary, validated table name and a real
// FTS5 MATCH query.
package convfts

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/factengine/factengine/internal/engineerr"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_]\w*$`)

// Message is one matched conversation row.
type Message struct {
	Role      string
	Content   string
	CreatedAt string
}

// SearchStatus discriminates the structured, non-exception outcomes a
// search can report alongside or instead of rows.
type SearchStatus string

const (
	SearchOK           SearchStatus = "ok"
	SearchFTSUnavailable SearchStatus = "fts_unavailable"
	SearchQueryError   SearchStatus = "query_error"
)

// SearchResult is the outcome of a Search call.
type SearchResult struct {
	Status   SearchStatus
	Messages []Message
}

// Adapter queries a caller-owned conversation table and its FTS5 shadow
// table ("<table>_fts", content_rowid = id).
type Adapter struct {
	db    *sql.DB
	table string
}

// New validates table against ^[A-Za-z_]\w*$ and returns an Adapter over
// it. An unsafe table name fails immediately with engineerr.UnsafeIdentifier
// rather than at query time, since the name is about to be interpolated
// into SQL (it cannot be parameterized) and must never come from
// uncontrolled input.
func New(db *sql.DB, table string) (*Adapter, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, engineerr.New(engineerr.UnsafeIdentifier, "conversation table name failed validation").
			WithDetails(map[string]any{"table": table})
	}
	return &Adapter{db: db, table: table}, nil
}

// Search runs a parameterized MATCH query ordered by rank and limited to
// limit rows. A storage error whose message indicates a missing table or
// FTS module is reported as SearchFTSUnavailable; any other error from
// the FTS query itself is reported as SearchQueryError; any other
// storage error (I/O, OOM) is propagated as a Go error.
func (a *Adapter) Search(query string, limit int) (*SearchResult, error) {
	ftsTable := a.table + "_fts"
	stmt := fmt.Sprintf(`
		SELECT m.role, m.content, m.created_at
		FROM %s AS f
		JOIN %s AS m ON m.id = f.rowid
		WHERE f.content MATCH ?
		ORDER BY rank
		LIMIT ?
	`, ftsTable, a.table)

	rows, err := a.db.Query(stmt, query, limit)
	if err != nil {
		return classifyFTSError(err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, engineerr.Wrap(engineerr.Fatal, "failed to scan conversation row", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return classifyFTSError(err)
	}

	return &SearchResult{Status: SearchOK, Messages: messages}, nil
}

func classifyFTSError(err error) (*SearchResult, error) {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such table"), strings.Contains(msg, "no such module"):
		return &SearchResult{Status: SearchFTSUnavailable}, nil
	case strings.Contains(msg, "fts5"), strings.Contains(msg, "syntax error"), strings.Contains(msg, "malformed match"):
		return &SearchResult{Status: SearchQueryError}, nil
	default:
		return nil, engineerr.Wrap(engineerr.Fatal, "conversation search failed", err)
	}
}
