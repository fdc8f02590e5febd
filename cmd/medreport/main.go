package main

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medreport/medreport/internal/config"
	"github.com/medreport/medreport/internal/guard"
	"github.com/medreport/medreport/internal/platform/api"
	"github.com/medreport/medreport/internal/platform/sessionstore"
	"github.com/medreport/medreport/internal/session"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "medreport",
		Short:         "Medical records client",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(whoamiCmd())
	rootCmd.AddCommand(examCmd())
	rootCmd.AddCommand(diagnosisCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app wires the session manager and API client for one command invocation.
// The persisted session is restored on every start, mirroring an application
// reload.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	sessions *session.Manager
	client   *api.Client
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(level)
	}

	store := sessionstore.NewFileStore(cfg.SessionFile)
	sessions := session.NewManager(store, logger)
	sessions.Restore()

	client := api.NewClient(cfg.APIBaseURL,
		api.WithTokenSource(sessions),
		api.WithLogger(logger),
		api.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
	)

	return &app{cfg: cfg, log: logger, sessions: sessions, client: client}, nil
}

// enter is the navigation guard: it re-evaluates authorization against the
// current session on every command, never caching a prior decision.
func (a *app) enter(required ...session.Role) error {
	decision := guard.Authorize(required, a.sessions.Current())
	if decision.Allowed {
		return nil
	}
	if decision.Reason == guard.ReasonNoSession {
		return fmt.Errorf("not logged in: run 'medreport login' first")
	}
	return fmt.Errorf("access denied: this command requires one of %s", roleList(required))
}

// remoteErr translates backend failures for the user. An unauthorized
// response tears down the session so the next command starts at login.
func (a *app) remoteErr(err error) error {
	if errors.Is(err, api.ErrUnauthorized) {
		a.sessions.Invalidate()
		return fmt.Errorf("session expired: run 'medreport login' to authenticate again")
	}
	return err
}

func roleList(roles []session.Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the records backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			if username == "" {
				username = prompt(cmd, "Email or username: ")
			}
			if password == "" {
				password = prompt(cmd, "Password: ")
			}

			sess, err := a.sessions.Login(cmd.Context(), a.client, session.Credentials{
				UsernameOrEmail: username,
				Password:        password,
			})
			if err != nil {
				authErr := &api.AuthError{}
				if errors.As(err, &authErr) {
					return fmt.Errorf("login failed: %s", authErr.Message)
				}
				return err
			}

			fmt.Printf("Logged in as %s %s (%s)\n", sess.User.FirstName, sess.User.LastName, roleList(sess.Authorities))
			fmt.Printf("Home: %s\n", guard.HomeDestination(sess))
			return nil
		},
	}
	cmd.Flags().String("username", "", "Email or username")
	cmd.Flags().String("password", "", "Password (prompted when omitted)")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			a.sessions.Logout()
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			sess := a.sessions.Current()
			if sess == nil {
				fmt.Println("Not logged in.")
				return nil
			}

			fmt.Printf("User:  %s %s (id %d)\n", sess.User.FirstName, sess.User.LastName, sess.User.ID)
			fmt.Printf("Email: %s\n", sess.User.Email)
			fmt.Printf("Roles: %s\n", roleList(sess.Authorities))
			fmt.Printf("Home:  %s\n", guard.HomeDestination(sess))

			caps := guard.CapabilitiesFor(sess)
			fmt.Printf("Can create examinations: %t\n", caps.CanCreateExamination)
			fmt.Printf("Can issue sick leave:    %t\n", caps.CanIssueSickLeave)
			fmt.Printf("Can view admin panel:    %t\n", caps.CanViewAdminPanel)
			return nil
		},
	}
}

func diagnosisCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnosis",
		Short: "Browse the diagnosis catalog",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog diagnoses",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.enter(session.RoleDoctor, session.RoleAdmin); err != nil {
				return err
			}

			filter, _ := cmd.Flags().GetString("filter")
			diagnoses, err := a.client.ListDiagnoses(cmd.Context())
			if err != nil {
				return a.remoteErr(err)
			}

			fmt.Printf("%-6s %-24s %s\n", "ID", "DIAGNOSIS", "DESCRIPTION")
			for _, d := range diagnoses {
				if filter != "" &&
					!strings.Contains(strings.ToLower(d.Diagnosis), strings.ToLower(filter)) &&
					!strings.Contains(strings.ToLower(d.Description), strings.ToLower(filter)) {
					continue
				}
				fmt.Printf("%-6d %-24s %s\n", d.ID, d.Diagnosis, d.Description)
			}
			return nil
		},
	}
	listCmd.Flags().String("filter", "", "Filter by code or description")
	cmd.AddCommand(listCmd)
	return cmd
}

func prompt(cmd *cobra.Command, label string) string {
	fmt.Fprint(cmd.OutOrStdout(), label)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
