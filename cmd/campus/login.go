package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/campusconnect/campus/internal/client"
	"github.com/campusconnect/campus/internal/config"
)

// credentials is what login leaves in the token file.
type credentials struct {
	BaseURL  string `yaml:"base_url"`
	Token    string `yaml:"token"`
	UserID   string `yaml:"user_id"`
	Username string `yaml:"username"`
}

var errNotLoggedIn = errors.New("not logged in: run `campus login` first")

func readCredentials(path string) (credentials, error) {
	var creds credentials
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return creds, errNotLoggedIn
	}
	if err != nil {
		return creds, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return creds, fmt.Errorf("parse %s: %w", path, err)
	}
	if creds.Token == "" {
		return creds, errNotLoggedIn
	}
	return creds, nil
}

func writeCredentials(path string, creds credentials) error {
	data, err := yaml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// signedIn loads the config and the saved session for commands that talk
// to a running server.
func signedIn(configPath string) (*config.Config, *client.Client, credentials, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, credentials{}, err
	}
	creds, err := readCredentials(cfg.Client.TokenFile)
	if err != nil {
		return nil, nil, credentials{}, err
	}
	base := creds.BaseURL
	if base == "" {
		base = cfg.Client.BaseURL
	}
	return cfg, client.New(base, creds.Token), creds, nil
}

func newLoginCmd() *cobra.Command {
	var (
		configPath string
		email      string
		username   string
		register   bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to a CampusConnect server",
		Long: `Signs in with email and password and saves the session token to
client.token_file. With --register a new account is created first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, configPath, email, username, register)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to CampusConnect config file")
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email (prompted if empty)")
	cmd.Flags().StringVarP(&username, "username", "u", "", "username for --register")
	cmd.Flags().BoolVar(&register, "register", false, "create the account before signing in")
	return cmd
}

func runLogin(cmd *cobra.Command, configPath, email, username string, register bool) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	in := bufio.NewReader(cmd.InOrStdin())
	if email == "" {
		fmt.Fprint(out, "Email: ")
		if email, err = readLine(in); err != nil {
			return err
		}
	}
	if register && username == "" {
		fmt.Fprint(out, "Username: ")
		if username, err = readLine(in); err != nil {
			return err
		}
	}
	fmt.Fprint(out, "Password: ")
	password, err := readPassword(cmd, in)
	fmt.Fprintln(out)
	if err != nil {
		return err
	}

	c := client.New(cfg.Client.BaseURL, "")
	ctx := cmd.Context()
	var sess client.Session
	if register {
		sess, err = c.Register(ctx, username, email, password)
	} else {
		sess, err = c.Login(ctx, email, password)
	}
	if err != nil {
		return err
	}

	creds := credentials{
		BaseURL:  cfg.Client.BaseURL,
		Token:    sess.Token,
		UserID:   sess.User.ID,
		Username: sess.User.Username,
	}
	if err := writeCredentials(cfg.Client.TokenFile, creds); err != nil {
		return err
	}
	fmt.Fprintf(out, "Signed in as %s\n", sess.User.Username)
	return nil
}

func newLogoutCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Revoke the saved session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c, _, err := signedIn(configPath)
			if err != nil {
				return err
			}
			if err := c.Logout(cmd.Context()); err != nil {
				return err
			}
			if err := os.Remove(cfg.Client.TokenFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("remove %s: %w", cfg.Client.TokenFile, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to CampusConnect config file")
	return cmd
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads without echo when stdin is a terminal.
func readPassword(cmd *cobra.Command, fallback *bufio.Reader) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	return readLine(fallback)
}
