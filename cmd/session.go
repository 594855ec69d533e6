package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/shelf/internal/models"
	"github.com/desertthunder/shelf/internal/shared"
	"github.com/urfave/cli/v3"
)

// Login signs in and stores the session token.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	m, err := r.connect(ctx)
	if err != nil {
		return err
	}

	email := cmd.String("email")
	password := cmd.String("password")
	if password == "" {
		if password, err = r.readLine("Password: "); err != nil {
			return err
		}
	}
	if err := validateInput(models.Credentials{Email: email, Password: password}); err != nil {
		return err
	}

	r.logger.Info("signing in", "email", email)
	result := m.Login(ctx, email, password)
	if !result.Success {
		return fmt.Errorf("%w: %s", shared.ErrAuthFailed, result.Error)
	}

	return r.writePlain("✓ Signed in as %s\n", email)
}

// Logout forgets the stored token. It succeeds when already signed out.
func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	m, err := r.connect(ctx)
	if err != nil {
		return err
	}

	if !m.Session().IsAuthenticated() {
		return r.writePlain("Not signed in\n")
	}

	m.Logout(ctx)
	return r.writePlain("✓ Signed out\n")
}

type statusReport struct {
	API           string `json:"api"`
	Authenticated bool   `json:"authenticated"`
}

// Status reports the API origin and whether a session token is stored.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	m, err := r.connect(ctx)
	if err != nil {
		return err
	}

	report := statusReport{API: r.client.BaseURL(), Authenticated: m.Session().IsAuthenticated()}
	if cmd.Bool("json") {
		return r.writeJSON(report, cmd.Bool("pretty"))
	}

	r.writePlain("API: %s\n", report.API)
	if report.Authenticated {
		return r.writePlain("Session: ✓ Signed in\n")
	}
	return r.writePlain("Session: ✗ Not signed in\n")
}
