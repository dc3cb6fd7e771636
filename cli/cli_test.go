package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"goodhabits/config"
	"goodhabits/db"
	"goodhabits/store"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	db.HashCost = bcrypt.MinCost
}

func TestReadNewPasswordFromPipe(t *testing.T) {
	got, err := readNewPassword(strings.NewReader("s3cret-pass\nignored\n"), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "s3cret-pass", got)

	got, err = readNewPassword(strings.NewReader("no-newline"), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "no-newline", got)
}

func TestAddUser(t *testing.T) {
	conn, err := db.Open(filepath.Join(t.TempDir(), "cli.db"), db.Options{})
	require.NoError(t, err)
	defer conn.Close()
	st := store.New(conn, nil)

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())

	require.NoError(t, addUser(cmd, st, "alice", "password123"))
	assert.Contains(t, out.String(), "User alice created")

	user, err := st.FindUserByName(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, db.CheckPasswordHash("password123", user.PasswordHash))

	err = addUser(cmd, st, "ALICE", "password123")
	assert.ErrorContains(t, err, "already exists")

	err = addUser(cmd, st, "bob", "short")
	assert.Error(t, err)
}

func TestUserAddCommandWithPipedPassword(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cmd.db")
	t.Setenv("GOODHABITS_DATABASE_PATH", dbPath)
	t.Cleanup(func() { cfgFile = "" })

	var out bytes.Buffer
	rootCmd.SetArgs([]string{"user", "add", "carol"})
	rootCmd.SetIn(strings.NewReader("password123\n"))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "carol")
	assert.Equal(t, dbPath, config.AppConfig.DatabasePath)

	conn, err := db.Open(dbPath, db.Options{})
	require.NoError(t, err)
	defer conn.Close()
	_, err = store.New(conn, nil).FindUserByName(context.Background(), "carol")
	assert.NoError(t, err)
}
