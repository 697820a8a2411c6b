package docstore

import (
	"database/sql"
	"time"
)

func buildCreateDocumentsTable() string {
	return `CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		body TEXT NOT NULL,
		updated_at INTEGER NOT NULL);`
}

func buildSelectDocumentCommand(id string) (string, []any, func(*sql.Rows) (string, bool, error)) {
	return `SELECT body FROM documents WHERE id = ?`, []any{id}, processSelectDocumentRows
}

func processSelectDocumentRows(rows *sql.Rows) (string, bool, error) {
	defer rows.Close()

	// only can be one row
	if rows.Next() {
		var body string
		err := rows.Scan(&body)
		if err != nil {
			return "", false, err
		}
		return body, true, nil
	}
	return "", false, rows.Err()
}

func buildUpsertDocumentCommand(id, body string, at time.Time) (string, []any) {
	return `INSERT OR REPLACE INTO documents (id, body, updated_at) VALUES (?, ?, ?)`,
		[]any{id, body, at.UnixMilli()}
}
