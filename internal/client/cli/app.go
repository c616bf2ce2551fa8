// Package cli implements the interactive terminal client for the auth
// server: a REPL dispatching to command handlers over one live connection.
package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/dmitrijs2005/authcore/internal/client/client"
	"github.com/dmitrijs2005/authcore/internal/client/config"
)

type App struct {
	config *config.Config
	api    *client.Client
	reader *bufio.Reader

	// set by a successful login
	username string
	role     string
	token    string
}

func NewApp(c *config.Config) (*App, error) {

	api, err := client.Dial(c.ServerEndpointAddr, c.DialTimeout)
	if err != nil {
		return nil, err
	}

	return &App{config: c, api: api, reader: bufio.NewReader(os.Stdin)}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.api.Close()

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.status, scanner)
}

func (a *App) isLoggedIn() bool {
	return a.username != ""
}

func (a *App) isAdmin() bool {
	return a.role == "ADMIN"
}

func (a *App) status() string {
	if !a.isLoggedIn() {
		return "not logged in"
	}
	return a.username + " (" + a.role + ")"
}
