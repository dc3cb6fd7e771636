package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// HashCost is the bcrypt cost used by HashPassword. Tests lower it.
var HashCost = bcrypt.DefaultCost

type Options struct {
	BusyTimeoutMS int
}

// Open connects to the SQLite file at path and brings its schema up to date.
func Open(path string, opts Options) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", dsn(path, opts))
	if err != nil {
		return nil, err
	}
	if isMemory(path) {
		// every pooled connection to :memory: would otherwise see its own empty database
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if err := Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func dsn(path string, opts Options) string {
	params := []string{"_foreign_keys=on"}
	if opts.BusyTimeoutMS > 0 {
		params = append(params, fmt.Sprintf("_busy_timeout=%d", opts.BusyTimeoutMS))
	}
	if !isMemory(path) {
		params = append(params, "_journal_mode=WAL")
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}

func isMemory(path string) bool {
	return strings.HasPrefix(path, ":memory:") || strings.Contains(path, "mode=memory")
}

// Migrate applies every pending embedded migration. An up-to-date schema is not an error.
func Migrate(conn *sql.DB) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := sqlite3.WithInstance(conn, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("migration setup: %w", err)
	}
	// m.Close would close conn through the driver, so only the source is released here.
	defer src.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up: %w", err)
	}
	return nil
}

// SchemaVersion reports the last applied migration.
func SchemaVersion(conn *sql.DB) (uint, bool, error) {
	var version uint
	var dirty bool
	err := conn.QueryRow("SELECT version, dirty FROM schema_migrations LIMIT 1").Scan(&version, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	return version, dirty, err
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// DummyHash is compared against when a login names an unknown user so that
// both paths cost one bcrypt comparison.
func DummyHash() string {
	dummyOnce.Do(func() {
		dummyHash, _ = HashPassword("not-a-real-password")
	})
	return dummyHash
}
