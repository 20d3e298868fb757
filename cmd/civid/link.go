package main

import (
	"fmt"

	"git.sr.ht/~jakintosh/civid/internal/config"
	"git.sr.ht/~jakintosh/civid/internal/service"
	"git.sr.ht/~jakintosh/civid/pkg/tokens"
)

// runLink prints a login link. Links need only the signing key, so no
// database is opened.
func runLink(configPath string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: link takes exactly one username", errUsage)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	svc, err := service.New(
		tokens.New([]byte(cfg.SigningKey)),
		nil,
		cfg.BaseURL,
		service.PasswordModeProduction,
		nil,
		nil,
	)
	if err != nil {
		return err
	}

	link, _, err := svc.IssueLoginLink(args[0])
	if err != nil {
		return err
	}
	fmt.Println(link.String())
	return nil
}
