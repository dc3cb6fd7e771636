package db

import (
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	HashCost = bcrypt.MinCost
	m.Run()
}

func TestOpenCreatesSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test_goodhabits.db")

	conn, err := Open(dbPath, Options{BusyTimeoutMS: 1000})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer conn.Close()

	for _, table := range []string{"users", "habits", "tabs", "api_sessions"} {
		var count int
		if err := conn.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			t.Errorf("Could not query %s table: %v", table, err)
		}
	}

	version, dirty, err := SchemaVersion(conn)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if version != 4 || dirty {
		t.Errorf("Expected clean schema version 4, got %d (dirty=%v)", version, dirty)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "twice.db")

	first, err := Open(dbPath, Options{})
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	if _, err := first.Exec("INSERT INTO users (username, password_hash) VALUES ('alice', 'x')"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	first.Close()

	second, err := Open(dbPath, Options{})
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer second.Close()

	var count int
	if err := second.QueryRow("SELECT COUNT(*) FROM users WHERE username = 'ALICE'").Scan(&count); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected existing user to survive reopen (case-insensitive), got %d", count)
	}
}

func TestRawInsertLeavesProfileNull(t *testing.T) {
	conn, err := Open(":memory:", Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer conn.Close()

	var displayName, bio *string
	if _, err := conn.Exec("INSERT INTO users (username, password_hash) VALUES ('bob', 'x')"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := conn.QueryRow("SELECT display_name, bio FROM users WHERE username = 'bob'").Scan(&displayName, &bio); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if displayName != nil || bio != nil {
		t.Errorf("Expected NULL profile for raw insert, got %v %v", displayName, bio)
	}
}

func TestStreakCannotGoNegative(t *testing.T) {
	conn, err := Open(":memory:", Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer conn.Close()

	conn.Exec("INSERT INTO users (username, password_hash) VALUES ('carol', 'x')")
	_, err = conn.Exec(`INSERT INTO habits (username, habit_name, target_frequency, created_date, streak)
		VALUES ('carol', 'Read', 'Daily', '2026-01-01', -1)`)
	if err == nil {
		t.Error("Expected CHECK constraint to reject a negative streak")
	}

	_, err = conn.Exec(`INSERT INTO habits (username, habit_name, target_frequency, created_date)
		VALUES ('carol', 'Read', 'Hourly', '2026-01-01')`)
	if err == nil {
		t.Error("Expected CHECK constraint to reject an unknown frequency")
	}
}

func TestPasswordHashing(t *testing.T) {
	password := "mypassword"
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if !CheckPasswordHash(password, hash) {
		t.Error("CheckPasswordHash failed for correct password")
	}

	if CheckPasswordHash("wrongpassword", hash) {
		t.Error("CheckPasswordHash succeeded for wrong password")
	}

	if CheckPasswordHash("anything", DummyHash()) {
		t.Error("DummyHash matched an arbitrary password")
	}
}
