package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"goodhabits/apperr"
	"goodhabits/auth"
	"goodhabits/db"
	"goodhabits/store"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a user account",
	Long: `Create a user account without going through the registration page.

The password is read from the terminal twice. When stdin is not a terminal
the first line of input is used instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := strings.TrimSpace(args[0])
		if username == "" {
			return errors.New("username cannot be empty")
		}

		password, err := readNewPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		conn, err := openDatabase()
		if err != nil {
			return err
		}
		defer conn.Close()

		return addUser(cmd, store.New(conn, nil), username, password)
	},
}

func addUser(cmd *cobra.Command, st *store.Store, username, password string) error {
	if err := auth.ValidatePassword(password); err != nil {
		return err
	}
	hash, err := db.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	user, err := st.CreateUser(cmd.Context(), username, hash)
	if errors.Is(err, apperr.ErrDuplicate) {
		return fmt.Errorf("user %q already exists", username)
	}
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✅ User %s created\n", user.Username)
	return nil
}

// readNewPassword prompts twice on a terminal. Piped input supplies a single line.
func readNewPassword(in io.Reader, prompt io.Writer) (string, error) {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(prompt, "Password: ")
	password, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	fmt.Fprint(prompt, "Repeat password: ")
	confirm, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	if string(password) != string(confirm) {
		return "", errors.New("passwords do not match")
	}
	return string(password), nil
}

func init() {
	userCmd.AddCommand(userAddCmd)
}
