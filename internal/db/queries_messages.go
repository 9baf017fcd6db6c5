package db

import "fmt"

// AppendMessages stores messages for a user in one transaction.
func (d *DB) AppendMessages(userID string, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("appending messages: %w", err)
	}
	defer tx.Rollback()

	for _, m := range msgs {
		if _, err := tx.Exec(
			"INSERT INTO messages (user_id, role, content) VALUES (?, ?, ?)",
			userID, m.Role, m.Content,
		); err != nil {
			return fmt.Errorf("appending %s message: %w", m.Role, err)
		}
	}
	return tx.Commit()
}

// LoadHistory returns up to limit of the user's latest messages, oldest first.
func (d *DB) LoadHistory(userID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.conn.Query(
		`SELECT id, role, content, created_at FROM (
			SELECT id, role, content, created_at FROM messages
			WHERE user_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ClearHistory deletes the user's stored messages.
func (d *DB) ClearHistory(userID string) error {
	if _, err := d.conn.Exec("DELETE FROM messages WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}
