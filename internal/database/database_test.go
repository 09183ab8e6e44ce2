package database

import (
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = Schema{
	{Name: "id", Type: "INT"},
	{Name: "name", Type: "VARCHAR(255)"},
}

// newTestDatabase returns a Database backed by sqlmock with exact-string
// statement matching.
func newTestDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Database{
		db:           db,
		name:         "testdb",
		logger:       zerolog.Nop(),
		tempAttempts: tempTableAttempts,
	}, mock
}

// newRegexpTestDatabase matches statements by regular expression, for the
// temporary-table paths where the generated name carries a random suffix.
func newRegexpTestDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Database{
		db:           db,
		name:         "testdb",
		logger:       zerolog.Nop(),
		tempAttempts: tempTableAttempts,
	}, mock
}

func TestTableExists(t *testing.T) {
	d, mock := newTestDatabase(t)

	mock.ExpectQuery("SELECT * FROM INFORMATION_SCHEMA.tables WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?").
		WithArgs("testdb", "users").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("users"))

	exists, err := d.TableExists("users")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTableExistsNoMatch(t *testing.T) {
	d, mock := newTestDatabase(t)

	mock.ExpectQuery("SELECT * FROM INFORMATION_SCHEMA.tables WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?").
		WithArgs("testdb", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}))

	exists, err := d.TableExists("missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateTable(t *testing.T) {
	d, mock := newTestDatabase(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS `users` (`id` INT, `name` VARCHAR(255), PRIMARY KEY (`id`))").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, d.CreateTable("users", testSchema, []string{"id"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTableCompositeKey(t *testing.T) {
	d, mock := newTestDatabase(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS `users` (`id` INT, `name` VARCHAR(255), PRIMARY KEY (`id`, `name`))").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, d.CreateTable("users", testSchema, []string{"id", "name"}))
}

func TestCreateTableNoPrimaryKey(t *testing.T) {
	d, mock := newTestDatabase(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS `events` (`id` INT, `name` VARCHAR(255))").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, d.CreateTable("events", testSchema, nil))
}

func TestCreateTablePrimaryKeyNotInSchema(t *testing.T) {
	d, _ := newTestDatabase(t)

	assert.Panics(t, func() {
		_ = d.CreateTable("users", Schema{{Name: "id", Type: "INT"}}, []string{"nope"})
	})
}

func TestDropTable(t *testing.T) {
	d, mock := newTestDatabase(t)

	mock.ExpectExec("DROP TABLE IF EXISTS `a`, `b`").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, d.DropTable("a", "b"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDropTableNoNames(t *testing.T) {
	d, mock := newTestDatabase(t)

	require.NoError(t, d.DropTable())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenTable(t *testing.T) {
	d, mock := newTestDatabase(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS `users` (`id` INT, `name` VARCHAR(255), PRIMARY KEY (`id`))").
		WillReturnResult(sqlmock.NewResult(0, 0))

	tbl, err := d.OpenTable("users", testSchema, []string{"id"})
	require.NoError(t, err)
	assert.Equal(t, "users", tbl.Name())
}

func TestCreateTemporaryTable(t *testing.T) {
	d, mock := newRegexpTestDatabase(t)

	mock.ExpectExec("CREATE TABLE `job-[0-9a-f]{8}` \\(`id` INT, `name` VARCHAR\\(255\\), PRIMARY KEY \\(`id`\\)\\)").
		WillReturnResult(sqlmock.NewResult(0, 0))

	tbl, err := d.CreateTemporaryTable("job", testSchema, []string{"id"})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^job-[0-9a-f]{8}$`), tbl.Name())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTemporaryTableRetriesThenSucceeds(t *testing.T) {
	d, mock := newRegexpTestDatabase(t)

	collision := &mysql.MySQLError{Number: erTableExists, Message: "Table already exists"}
	mock.ExpectExec("CREATE TABLE `job-[0-9a-f]{8}`").WillReturnError(collision)
	mock.ExpectExec("CREATE TABLE `job-[0-9a-f]{8}`").WillReturnError(collision)
	mock.ExpectExec("CREATE TABLE `job-[0-9a-f]{8}`").WillReturnResult(sqlmock.NewResult(0, 0))

	tbl, err := d.CreateTemporaryTable("job", testSchema, []string{"id"})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^job-[0-9a-f]{8}$`), tbl.Name())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTemporaryTableTooManyAttempts(t *testing.T) {
	d, mock := newRegexpTestDatabase(t)

	collision := &mysql.MySQLError{Number: erTableExists, Message: "Table already exists"}
	for i := 0; i < tempTableAttempts; i++ {
		mock.ExpectExec("CREATE TABLE `job-[0-9a-f]{8}`").WillReturnError(collision)
	}

	_, err := d.CreateTemporaryTable("job", testSchema, []string{"id"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooManyAttempts)
	// All five expectations consumed, and no sixth attempt was made.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTemporaryTableOtherErrorNotRetried(t *testing.T) {
	d, mock := newRegexpTestDatabase(t)

	boom := errors.New("connection reset")
	mock.ExpectExec("CREATE TABLE `job-[0-9a-f]{8}`").WillReturnError(boom)

	_, err := d.CreateTemporaryTable("job", testSchema, []string{"id"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTooManyAttempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClosedDatabase(t *testing.T) {
	d, _ := newTestDatabase(t)
	d.closed = true

	_, err := d.TableExists("users")
	assert.ErrorIs(t, err, ErrClosed)

	assert.ErrorIs(t, d.CreateTable("users", testSchema, nil), ErrClosed)
	assert.ErrorIs(t, d.DropTable("users"), ErrClosed)
}

func TestIsTableExistsErr(t *testing.T) {
	assert.True(t, isTableExistsErr(&mysql.MySQLError{Number: erTableExists}))
	assert.False(t, isTableExistsErr(&mysql.MySQLError{Number: 1064}))
	assert.False(t, isTableExistsErr(errors.New("plain error")))
	assert.False(t, isTableExistsErr(nil))
}
