package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/evidencevault/internal/client/client"
	"github.com/dmitrijs2005/evidencevault/internal/client/config"
	"github.com/dmitrijs2005/evidencevault/internal/client/models"
	"github.com/dmitrijs2005/evidencevault/internal/common"
	"github.com/spf13/cobra"
)

// API is the subset of the HTTP client the commands use.
type API interface {
	Ping(ctx context.Context) error
	Upload(ctx context.Context, u models.Upload) (*models.UploadResult, error)
	ListByCase(ctx context.Context, caseID int64) ([]models.Evidence, error)
	SearchByHash(ctx context.Context, hash string) ([]models.HashMatch, error)
	AccessLog(ctx context.Context, versionID int64) ([]models.AccessEntry, error)
	Download(ctx context.Context, versionID int64, accessType string) (*models.Download, error)
}

type App struct {
	config     *config.Config
	in         io.Reader
	out        io.Writer
	errOut     io.Writer
	jsonOutput bool
	configPath string

	newAPI func(baseURL, token string, timeout time.Duration) (API, error)
}

func NewApp(c *config.Config) *App {
	return &App{
		config: c,
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
		newAPI: func(baseURL, token string, timeout time.Duration) (API, error) {
			return client.NewHTTPClient(baseURL, token, timeout)
		},
	}
}

// RootCommand builds the command tree bound to this App.
func (a *App) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "evidencectl",
		Short: "Command-line client for the evidence custody service",
		Long: `evidencectl uploads, lists, downloads and searches digital evidence.
Every download is recorded by the server in the evidence access log.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "path to JSON config file")
	pf.StringVar(&a.config.ServerURL, "server", a.config.ServerURL, "base URL of the evidence API")
	pf.StringVar(&a.config.Token, "token", a.config.Token, "bearer token (default $"+config.TokenEnvName+")")
	pf.DurationVar(&a.config.Timeout, "timeout", a.config.Timeout, "request timeout")
	pf.BoolVar(&a.jsonOutput, "json", false, "output in JSON format")

	root.AddCommand(
		a.uploadCommand(),
		a.listCommand(),
		a.downloadCommand(),
		a.searchCommand(),
		a.accessLogCommand(),
		a.pingCommand(),
		a.devTokenCommand(),
	)
	return root
}

// Run executes the command line and prints errors to stderr. It returns the
// process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	root := a.RootCommand()
	root.SetArgs(args)
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(a.errOut, "error:", describe(err))
		return 1
	}
	return 0
}

func describe(err error) string {
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		return "not authenticated: " + err.Error()
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable: " + err.Error()
	default:
		return err.Error()
	}
}

// api builds a client, asking for the token if none is configured.
func (a *App) api(requireToken bool) (API, error) {
	token := strings.TrimSpace(a.config.Token)
	if token == "" && requireToken {
		t, err := promptToken(a.in, a.errOut)
		if err != nil {
			return nil, err
		}
		token = t
	}
	return a.newAPI(a.config.ServerURL, token, a.config.Timeout)
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortHash(h string) string {
	if len(h) > 16 {
		return h[:16] + "…"
	}
	return h
}

func checkSize(n int64) error {
	if n == 0 {
		return errors.New("file is empty")
	}
	if n > common.MaxUploadBytes {
		return fmt.Errorf("file exceeds maximum allowed size (%d bytes)", common.MaxUploadBytes)
	}
	return nil
}
