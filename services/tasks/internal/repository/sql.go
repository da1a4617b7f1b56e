package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/models"
)

// Время в SQL-хранилищах хранится в миллисекундах Unix (BIGINT):
// одинаковая точность с MongoDB и одинаковое сравнение в Postgres и SQLite.
const sqlSchema = `
CREATE TABLE IF NOT EXISTS users (
	id         CHAR(24) PRIMARY KEY,
	clerk_id   TEXT NOT NULL UNIQUE,
	email      TEXT NOT NULL UNIQUE,
	first_name TEXT,
	last_name  TEXT,
	created_at BIGINT NOT NULL,
	updated_at BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS tasks (
	id         CHAR(24) PRIMARY KEY,
	title      TEXT NOT NULL,
	start_at   BIGINT NOT NULL,
	end_at     BIGINT NOT NULL,
	kind       TEXT NOT NULL DEFAULT 'task',
	notes      TEXT,
	completed  BOOLEAN NOT NULL DEFAULT FALSE,
	user_id    CHAR(24) NOT NULL REFERENCES users(id),
	created_at BIGINT NOT NULL,
	updated_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS tasks_user_start_idx ON tasks (user_id, start_at);
`

const taskColumns = `id, title, start_at, end_at, kind, notes, completed, user_id, created_at, updated_at`

type dialect int

const (
	dialectPostgres dialect = iota
	dialectSQLite
)

var placeholderPattern = regexp.MustCompile(`\$\d+`)

// rebind переводит $1, $2... в ? для SQLite. Каждый плейсхолдер
// должен встречаться в запросе один раз и по порядку.
func (d dialect) rebind(query string) string {
	if d == dialectPostgres {
		return query
	}
	return placeholderPattern.ReplaceAllString(query, "?")
}

func (d dialect) isDuplicate(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
			code == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}

// SQLStore - хранилище поверх database/sql (PostgreSQL или SQLite)
type SQLStore struct {
	db    *sql.DB
	tasks *SQLTaskRepository
	users *SQLUserRepository
}

// NewPostgresStore подключается к PostgreSQL через lib/pq
func NewPostgresStore(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newSQLStore(ctx, db, dialectPostgres)
}

// NewSQLiteStore открывает файл SQLite; path ":memory:" - база в памяти
func NewSQLiteStore(ctx context.Context, path string) (*SQLStore, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// одна база в памяти живёт в одном соединении
	db.SetMaxOpenConns(1)
	return newSQLStore(ctx, db, dialectSQLite)
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*SQLStore, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	for _, stmt := range strings.Split(sqlSchema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return &SQLStore{
		db:    db,
		tasks: &SQLTaskRepository{db: db, dialect: d},
		users: &SQLUserRepository{db: db, dialect: d},
	}, nil
}

func (s *SQLStore) Tasks() TaskRepository { return s.tasks }
func (s *SQLStore) Users() UserRepository { return s.users }

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close(context.Context) error {
	return s.db.Close()
}

// SQLTaskRepository - таблица tasks
type SQLTaskRepository struct {
	db      *sql.DB
	dialect dialect
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		id, userID                      string
		startMs, endMs, createdMs, upMs int64
		notes                           sql.NullString
	)
	task := &models.Task{}
	err := row.Scan(&id, &task.Title, &startMs, &endMs, &task.Kind, &notes,
		&task.Completed, &userID, &createdMs, &upMs)
	if err != nil {
		return nil, err
	}
	if task.ID, err = primitive.ObjectIDFromHex(strings.TrimSpace(id)); err != nil {
		return nil, fmt.Errorf("corrupt task id %q: %w", id, err)
	}
	if task.UserID, err = primitive.ObjectIDFromHex(strings.TrimSpace(userID)); err != nil {
		return nil, fmt.Errorf("corrupt user id %q: %w", userID, err)
	}
	if notes.Valid {
		task.Notes = &notes.String
	}
	task.Start = fromMillis(startMs)
	task.End = fromMillis(endMs)
	task.CreatedAt = fromMillis(createdMs)
	task.UpdatedAt = fromMillis(upMs)
	return task, nil
}

func (r *SQLTaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	now := storeTime(time.Now())
	task.Start = storeTime(task.Start)
	task.End = storeTime(task.End)
	task.CreatedAt = now
	task.UpdatedAt = now

	var notes sql.NullString
	if task.Notes != nil {
		notes = sql.NullString{String: *task.Notes, Valid: true}
	}

	query := `INSERT INTO tasks (` + taskColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(query),
		task.ID.Hex(), task.Title, task.Start.UnixMilli(), task.End.UnixMilli(), task.Kind,
		notes, task.Completed, task.UserID.Hex(), now.UnixMilli(), now.UnixMilli())
	return err
}

func (r *SQLTaskRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	task, err := scanTask(r.db.QueryRowContext(ctx, r.dialect.rebind(query), id.Hex()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *SQLTaskRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1 ORDER BY start_at ASC`
	return r.list(ctx, query, userID.Hex())
}

func (r *SQLTaskRepository) ListByUserStartingBetween(ctx context.Context, userID primitive.ObjectID, from, to time.Time) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
	          WHERE user_id = $1 AND start_at >= $2 AND start_at <= $3
	          ORDER BY start_at ASC`
	return r.list(ctx, query, userID.Hex(), from.UnixMilli(), to.UnixMilli())
}

func (r *SQLTaskRepository) list(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (r *SQLTaskRepository) HasAny(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	query := `SELECT 1 FROM tasks WHERE user_id = $1 LIMIT 1`
	var one int
	err := r.db.QueryRowContext(ctx, r.dialect.rebind(query), userID.Hex()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *SQLTaskRepository) Update(ctx context.Context, id primitive.ObjectID, patch models.TaskPatch) (*models.Task, error) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Start != nil {
		add("start_at", storeTime(*patch.Start).UnixMilli())
	}
	if patch.End != nil {
		add("end_at", storeTime(*patch.End).UnixMilli())
	}
	if patch.Kind != nil {
		add("kind", *patch.Kind)
	}
	if patch.Notes != nil {
		add("notes", *patch.Notes)
	}
	if patch.Completed != nil {
		add("completed", *patch.Completed)
	}
	add("updated_at", storeTime(time.Now()).UnixMilli())
	args = append(args, id.Hex())

	query := `UPDATE tasks SET ` + strings.Join(sets, ", ") +
		` WHERE id = $` + strconv.Itoa(len(args)) + ` RETURNING ` + taskColumns
	return r.updateReturning(ctx, query, args...)
}

func (r *SQLTaskRepository) ToggleComplete(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	query := `UPDATE tasks SET completed = NOT completed, updated_at = $1
	          WHERE id = $2 RETURNING ` + taskColumns
	return r.updateReturning(ctx, query, storeTime(time.Now()).UnixMilli(), id.Hex())
}

func (r *SQLTaskRepository) updateReturning(ctx context.Context, query string, args ...any) (*models.Task, error) {
	task, err := scanTask(r.db.QueryRowContext(ctx, r.dialect.rebind(query), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *SQLTaskRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	query := `DELETE FROM tasks WHERE id = $1`
	result, err := r.db.ExecContext(ctx, r.dialect.rebind(query), id.Hex())
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SQLUserRepository - таблица users
type SQLUserRepository struct {
	db      *sql.DB
	dialect dialect
}

func (r *SQLUserRepository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	query := `SELECT id, clerk_id, email, first_name, last_name, created_at, updated_at
	          FROM users WHERE clerk_id = $1`
	var (
		id                  string
		first, last         sql.NullString
		createdMs, updateMs int64
	)
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, r.dialect.rebind(query), externalID).Scan(
		&id, &user.ClerkID, &user.Email, &first, &last, &createdMs, &updateMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if user.ID, err = primitive.ObjectIDFromHex(strings.TrimSpace(id)); err != nil {
		return nil, fmt.Errorf("corrupt user id %q: %w", id, err)
	}
	user.FirstName = first.String
	user.LastName = last.String
	user.CreatedAt = fromMillis(createdMs)
	user.UpdatedAt = fromMillis(updateMs)
	return user, nil
}

func (r *SQLUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := storeTime(time.Now())
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `INSERT INTO users (id, clerk_id, email, first_name, last_name, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(query),
		user.ID.Hex(), user.ClerkID, user.Email,
		nullString(user.FirstName), nullString(user.LastName),
		now.UnixMilli(), now.UnixMilli())
	if err != nil && r.dialect.isDuplicate(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
