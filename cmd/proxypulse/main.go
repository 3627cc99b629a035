package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by all commands
type GlobalFlags struct {
	ConfigPath string
}

// APIFlags holds daemon connection flags for client commands
type APIFlags struct {
	URL     string
	Timeout time.Duration
}

// AddFlags holds flags for the add command
type AddFlags struct {
	Name            string
	Kind            string
	Host            string
	Port            int
	Scheme          string
	Path            string
	IntervalSeconds int
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	apiFlags := &APIFlags{}
	addFlags := &AddFlags{}

	root := createRootCommand(globalFlags, apiFlags)
	root.AddCommand(
		createServeCommand(globalFlags),
		createAddCommand(apiFlags, addFlags),
		createListCommand(apiFlags),
		createStatusCommand(apiFlags),
		createRemoveCommand(apiFlags),
		createRegisterCommand(apiFlags),
		createLoginCommand(apiFlags),
		createLogoutCommand(),
		createTemplateCommand(),
	)
	return root
}

func createRootCommand(globalFlags *GlobalFlags, apiFlags *APIFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "proxypulse",
		Short: "Health monitoring for HTTP servers and forward proxies",
		Long: `Proxypulse keeps per-endpoint check tasks running against HTTP/HTTPS
servers and Squid-style forward proxies, records the probe history and
serves it over a REST API.

Examples:
  proxypulse serve --config=proxypulse.toml
  proxypulse add --kind=squid --host=10.0.0.2 --interval=30
  proxypulse status --id=3
  proxypulse status --id=3 --api-url=http://remote:8080  # Remote daemon`,
	}

	root.PersistentFlags().StringVar(&globalFlags.ConfigPath, "config", "", "path to TOML config file (optional)")
	root.PersistentFlags().StringVar(&apiFlags.URL, "api-url", "", "daemon URL (default http://localhost:8080)")
	root.PersistentFlags().DurationVar(&apiFlags.Timeout, "api-timeout", 10*time.Second, "request timeout")
	return root
}

func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the proxypulse daemon",
		Long: `Start the daemon: open the endpoint store, resume a check task for
every registered endpoint and serve the management API.

Examples:
  proxypulse serve --config=proxypulse.toml
  proxypulse serve proxypulse.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := globalFlags.ConfigPath
			if len(args) > 0 {
				configPath = args[0]
			}
			return runServe(configPath)
		},
	}
}

func createAddCommand(apiFlags *APIFlags, addFlags *AddFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register an endpoint and start checking it",
		Long: `Register a new endpoint with the daemon. Omitted fields take the usual
defaults: port 80 (3128 for squid), scheme https when port is 443,
path "/", interval 60 seconds.

Examples:
  proxypulse add --kind=http --host=example.com --port=443
  proxypulse add --kind=squid --host=10.0.0.2 --interval=30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAuthedClient(apiFlags)
			if err != nil {
				return err
			}
			view, err := client.AddServer(endpointPayload{
				Name:            addFlags.Name,
				Kind:            addFlags.Kind,
				Host:            addFlags.Host,
				Port:            addFlags.Port,
				Scheme:          addFlags.Scheme,
				Path:            addFlags.Path,
				IntervalSeconds: addFlags.IntervalSeconds,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}

	cmd.Flags().StringVar(&addFlags.Name, "name", "", "display name")
	cmd.Flags().StringVar(&addFlags.Kind, "kind", "", "endpoint kind: http, nginx, squid or proxy (required)")
	cmd.Flags().StringVar(&addFlags.Host, "host", "", "host to check (required)")
	cmd.Flags().IntVar(&addFlags.Port, "port", 0, "port (default 80, 3128 for squid)")
	cmd.Flags().StringVar(&addFlags.Scheme, "scheme", "", "http or https")
	cmd.Flags().StringVar(&addFlags.Path, "path", "", "request path for direct checks")
	cmd.Flags().IntVar(&addFlags.IntervalSeconds, "interval", 0, "check interval in seconds")

	if err := cmd.MarkFlagRequired("kind"); err != nil {
		panic(err)
	}
	if err := cmd.MarkFlagRequired("host"); err != nil {
		panic(err)
	}
	return cmd
}

func createListCommand(apiFlags *APIFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewAPIClient(apiFlags.URL, apiFlags.Timeout, "")
			views, err := client.ListServers()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), views)
		},
	}
}

func createStatusCommand(apiFlags *APIFlags) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show an endpoint's latest probe, history and task state",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewAPIClient(apiFlags.URL, apiFlags.Timeout, "")
			st, err := client.ServerStatus(id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st)
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "endpoint id (required)")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		panic(err)
	}
	return cmd
}

func createRemoveCommand(apiFlags *APIFlags) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Stop checking an endpoint and drop it with its history",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAuthedClient(apiFlags)
			if err != nil {
				return err
			}
			if err := client.RemoveServer(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed endpoint %d\n", id)
			return nil
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "endpoint id (required)")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		panic(err)
	}
	return cmd
}

func createRegisterCommand(apiFlags *APIFlags) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an API user on the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewAPIClient(apiFlags.URL, apiFlags.Timeout, "")
			if err := client.Register(username, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered user %s\n", username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username (required)")
	cmd.Flags().StringVar(&password, "password", "", "password (required)")
	if err := cmd.MarkFlagRequired("username"); err != nil {
		panic(err)
	}
	if err := cmd.MarkFlagRequired("password"); err != nil {
		panic(err)
	}
	return cmd
}

func createLoginCommand(apiFlags *APIFlags) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the daemon and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewAPIClient(apiFlags.URL, apiFlags.Timeout, "")
			token, err := client.Login(username, password)
			if err != nil {
				return err
			}
			sm := NewSessionManager()
			session := &Session{
				Token:     token.Value,
				TokenType: token.Type,
				ExpiresAt: token.ExpiresAt,
				Username:  username,
				ServerURL: client.baseURL,
			}
			if err := sm.SaveSession(session); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username (required)")
	cmd.Flags().StringVar(&password, "password", "", "password (required)")
	if err := cmd.MarkFlagRequired("username"); err != nil {
		panic(err)
	}
	if err := cmd.MarkFlagRequired("password"); err != nil {
		panic(err)
	}
	return cmd
}

func createLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := NewSessionManager().ClearSession(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

// newAuthedClient builds a client carrying the stored session token.
func newAuthedClient(apiFlags *APIFlags) (*APIClient, error) {
	session, err := NewSessionManager().LoadSession()
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("not logged in: run 'proxypulse login' first")
	}
	url := apiFlags.URL
	if url == "" {
		url = session.ServerURL
	}
	return NewAPIClient(url, apiFlags.Timeout, session.Token), nil
}
