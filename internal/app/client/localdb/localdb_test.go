package localdb

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"edusync/internal/app/client/readiness"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(Memory)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInitialize_NilHandle(t *testing.T) {
	err := Initialize(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrNilHandle)
}

func TestInitialize_CreatesSchemaAndSignalsReady(t *testing.T) {
	db := openTestDB(t)
	gate := readiness.New(time.Second)

	require.NoError(t, Initialize(context.Background(), db, gate))

	got, err := gate.Wait(context.Background(), 0)
	require.NoError(t, err)
	assert.Same(t, db, got)

	for _, table := range append(AllTables(), "device_meta", "schema_migrations") {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		assert.NoError(t, err, "table %s was not created", table)
	}

	version, err := CheckSchema(db)
	assert.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestInitialize_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, Initialize(ctx, db, nil))
	id1, err := DeviceID(ctx, db)
	require.NoError(t, err)

	require.NoError(t, Initialize(ctx, db, nil))
	id2, err := DeviceID(ctx, db)
	require.NoError(t, err)

	var roles int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM roles`).Scan(&roles))
	assert.Equal(t, len(Roles), roles)

	assert.Equal(t, id1, id2, "device id must survive repeated bootstrap")
	_, err = uuid.Parse(id1)
	assert.NoError(t, err)
}

func TestCheckSchema_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	_, err := CheckSchema(db)
	assert.ErrorIs(t, err, ErrSchemaOutdated)
}

func TestSchema_Constraints(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Initialize(context.Background(), db, nil))

	_, err := db.Exec(`INSERT INTO subjects (subject_local_id, server_subject_id, subject_name) VALUES (1, 501, 'Math')`)
	require.NoError(t, err)

	t.Run("quarter outside 1..4", func(t *testing.T) {
		_, err := db.Exec(`INSERT INTO lessons (server_lesson_id, subject_local_id, lesson_title, quarter) VALUES (1, 1, 'L', 5)`)
		assert.Error(t, err)
	})

	t.Run("duplicate server id", func(t *testing.T) {
		_, err := db.Exec(`INSERT INTO subjects (server_subject_id, subject_name) VALUES (501, 'Math again')`)
		assert.Error(t, err)
	})

	t.Run("dangling parent", func(t *testing.T) {
		_, err := db.Exec(`INSERT INTO lessons (server_lesson_id, subject_local_id, lesson_title, quarter) VALUES (2, 99, 'L', 1)`)
		assert.Error(t, err, "foreign keys must be enforced")
	})

	t.Run("junction uniqueness", func(t *testing.T) {
		_, err := db.Exec(`INSERT INTO sections (section_local_id, server_section_id, section_name) VALUES (1, 7, '7-A')`)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO subjects_in_section (section_local_id, subject_local_id) VALUES (1, 1)`)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO subjects_in_section (section_local_id, subject_local_id) VALUES (1, 1)`)
		assert.Error(t, err)
	})

	t.Run("score above max", func(t *testing.T) {
		require.NoError(t, SaveUser(context.Background(), db, User{ServerID: 42, FullName: "Ann Lee", Role: "pupil"}))
		_, err := db.Exec(`INSERT INTO test_scores (user_local_id, test_id, score, max_score, attempt_number, taken_at)
			VALUES (1, 7002, 11, 10, 1, '2024-06-02 09:00:00')`)
		assert.Error(t, err, "server rejects such scores, they must not become dirty rows")

		_, err = db.Exec(`INSERT INTO test_scores (user_local_id, test_id, score, max_score, attempt_number, taken_at)
			VALUES (1, 7002, 10, 10, 1, '2024-06-02 09:00:00')`)
		assert.NoError(t, err)
	})
}

func TestOpen_ForeignKeys(t *testing.T) {
	assert.NoError(t, checkForeignKeys(openTestDB(t)))

	off, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=0")
	require.NoError(t, err)
	t.Cleanup(func() { off.Close() })

	err = checkForeignKeys(off)
	assert.ErrorIs(t, err, ErrForeignKeysOff)
	assert.NotContains(t, err.Error(), "<nil>")
}

func TestSaveUser_Singleton(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, Initialize(ctx, db, nil))

	require.NoError(t, SaveUser(ctx, db, User{ServerID: 42, FullName: "Ann"}))
	require.NoError(t, SaveUser(ctx, db, User{ServerID: 42, FullName: "Ann Lee", Role: "teacher"}))

	var n int
	var name, role string
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n))
	require.NoError(t, db.QueryRow(`
		SELECT u.full_name, r.role_name FROM users u JOIN roles r ON r.role_id = u.role_id`).Scan(&name, &role))
	assert.Equal(t, 1, n)
	assert.Equal(t, "Ann Lee", name)
	assert.Equal(t, "teacher", role)
}

func TestChecksum(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, Initialize(ctx, db, nil))

	before, err := Checksum(ctx, db)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO sections (server_section_id, section_name) VALUES (7, '7-A')`)
	require.NoError(t, err)

	after, err := Checksum(ctx, db)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)

	_, err = db.Exec(`DELETE FROM sections`)
	require.NoError(t, err)

	restored, err := Checksum(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, before, restored)

	_, err = Checksum(ctx, db, "sqlite_master")
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestMeta_LastSync(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, Initialize(ctx, db, nil))

	at, err := LastDownsync(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, at)

	require.NoError(t, SetLastDownsync(ctx, db, "2024-05-01 10:00:00"))
	require.NoError(t, SetLastDownsync(ctx, db, "2024-05-02 10:00:00"))

	at, err = LastDownsync(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-02 10:00:00", at)
}
