package localdb

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"slices"

	"golang.org/x/crypto/blake2b"
)

// OwnedTables таблицы каталога, которые downsync очищает и заполняет заново.
// Порядок: сначала дочерние, удалять можно в этом порядке.
var OwnedTables = []string{
	"subjects_in_section",
	"classmates",
	"games",
	"game_types",
	"subject_contents",
	"lessons",
	"subjects",
	"sections",
}

// UserTables данные, созданные на устройстве
var UserTables = []string{
	"test_scores",
	"answers",
	"achievements",
	"notifications",
	"content_progress",
}

// AllTables все таблицы, которые участвуют в контрольной сумме
func AllTables() []string {
	all := append(slices.Clone(OwnedTables), UserTables...)
	return append(all, "users", "roles")
}

// Checksum blake2b-256 по содержимому таблиц в порядке rowid.
// Одинаковая сумма означает побайтно одинаковые строки.
func Checksum(ctx context.Context, q Querier, tables ...string) (string, error) {
	if len(tables) == 0 {
		tables = AllTables()
	}

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}

	for _, table := range tables {
		if !slices.Contains(AllTables(), table) {
			return "", fmt.Errorf("%w: %s", ErrUnknownTable, table)
		}
		fmt.Fprintf(h, "#%s\n", table)
		if err := hashTable(ctx, q, table, h); err != nil {
			return "", fmt.Errorf("checksum %s: %w", table, err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashTable(ctx context.Context, q Querier, table string, w io.Writer) error {
	rows, err := q.QueryContext(ctx, "SELECT * FROM "+table+" ORDER BY rowid")
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		for _, v := range values {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			fmt.Fprintf(w, "%T:%v|", v, v)
		}
		fmt.Fprint(w, "\n")
	}
	return rows.Err()
}

// Counts число строк в каждой таблице
func Counts(ctx context.Context, q Querier) (map[string]int, error) {
	counts := make(map[string]int)
	for _, table := range AllTables() {
		var n int
		if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
