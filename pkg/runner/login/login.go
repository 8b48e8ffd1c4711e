// Package login prompts for credentials and stores the issued token pair.
package login

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"

	"tableflip.dev/colcon/pkg/api"
	"tableflip.dev/colcon/pkg/app"
	"tableflip.dev/colcon/pkg/session"
)

// Login asks for whatever credentials were not given as flags.
type Login struct {
	Service  *app.Service
	Username string
	Password string

	Stdin  io.ReadCloser
	Stdout io.WriteCloser
}

func (l *Login) Do(ctx context.Context) error {
	if l.Service == nil {
		return errors.New("login: no service")
	}
	creds := session.Credentials{Username: l.Username, Password: l.Password}

	if strings.TrimSpace(creds.Username) == "" {
		p := promptui.Prompt{
			Label:    "Username",
			Validate: required("username"),
			Stdin:    l.Stdin,
			Stdout:   l.Stdout,
		}
		v, err := p.Run()
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		creds.Username = v
	}
	if creds.Password == "" {
		p := promptui.Prompt{
			Label:    "Password",
			Mask:     '*',
			Validate: required("password"),
			Stdin:    l.Stdin,
			Stdout:   l.Stdout,
		}
		v, err := p.Run()
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		creds.Password = v
	}

	tok, err := l.Service.Login(ctx, creds)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return fmt.Errorf("login: %s", api.Describe(err))
		}
		return err
	}
	green := color.New(color.FgGreen)
	_, _ = green.Fprintf(color.Output, "Logged in as %s.\n", tok.Username)
	return nil
}

// Logout forgets the stored token pair.
type Logout struct {
	Service *app.Service
}

func (l *Logout) Do(_ context.Context) error {
	if l.Service == nil {
		return errors.New("logout: no service")
	}
	if err := l.Service.Logout(); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(color.Output, "Logged out.")
	return nil
}

func required(name string) promptui.ValidateFunc {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}
