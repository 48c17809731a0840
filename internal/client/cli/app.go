package cli

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/equipsense/equipsense/internal/client/api"
	"github.com/equipsense/equipsense/internal/client/config"
)

// backend is the slice of the API client the commands use. The concrete
// *api.Client satisfies it; tests substitute a fake.
type backend interface {
	Login(ctx context.Context, username string, password string) (*api.User, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (*api.User, error)
	Upload(ctx context.Context, filename string, contents []byte) (*api.UploadResult, error)
	Summary(ctx context.Context, datasetID string) (*api.Summary, error)
	History(ctx context.Context) (*api.History, error)
	TypeDistribution(ctx context.Context, datasetID string) (map[string]int, error)
	Report(ctx context.Context, datasetID string) (string, []byte, error)
}

type App struct {
	config   *config.Config
	api      backend
	reader   *bufio.Reader
	userName string
}

// NewApp builds the CLI against the configured server endpoint.
func NewApp(c *config.Config) (*App, error) {
	u, err := url.Parse(c.ServerEndpointAddr)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid server endpoint %q", c.ServerEndpointAddr)
	}

	apiClient := api.New(c.ServerEndpointAddr, c.RequestTimeout)

	return &App{config: c, api: apiClient, reader: bufio.NewReader(os.Stdin)}, nil
}

func (a *App) isLoggedIn() bool {
	return a.userName != ""
}

// getStatus renders the prompt decoration: the logged-in user name, if any.
func (a *App) getStatus() string {
	if a.userName == "" {
		return ""
	}
	return fmt.Sprintf("(%s)", a.userName)
}

// Run prompts for credentials once and hands control to the REPL. It blocks
// until the user exits.
func (a *App) Run(ctx context.Context) {
	printlnFn("EquipSense CLI (type 'help' for commands)")

	_ = a.Login(ctx)

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}
