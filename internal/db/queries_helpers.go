package db

import (
	"fmt"
	"sort"
	"strings"
)

var allowedColumns = map[string]map[string]bool{
	"schedules": {"cron_expr": true, "enabled": true},
}

// updateRow is a generic helper for updating a row's fields.
func (d *DB) updateRow(table string, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	allowed, ok := allowedColumns[table]
	if !ok {
		return fmt.Errorf("unknown table: %s", table)
	}
	cols := make([]string, 0, len(fields))
	for col := range fields {
		if !allowed[col] {
			return fmt.Errorf("disallowed column %q for table %s", col, table)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	setClauses := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		setClauses[i] = col + " = ?"
		args = append(args, fields[col])
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(setClauses, ", "))
	res, err := d.conn.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("updating %s %d: %w", table, id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%s %d not found", table, id)
	}
	return nil
}
