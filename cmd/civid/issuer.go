package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"git.sr.ht/~jakintosh/civid/internal/config"
	"git.sr.ht/~jakintosh/civid/internal/database"
	"git.sr.ht/~jakintosh/civid/internal/service"
	"git.sr.ht/~jakintosh/civid/pkg/tokens"
)

func runIssuer(configPath string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: issuer needs a subcommand", errUsage)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	db, err := database.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := service.New(
		tokens.New([]byte(cfg.SigningKey)),
		db.IssuerStore(),
		cfg.BaseURL,
		service.PasswordModeProduction,
		time.Now,
		nil,
	)
	if err != nil {
		return err
	}

	switch args[0] {
	case "add":
		if len(args) != 3 {
			return fmt.Errorf("%w: issuer add takes a name and a secret", errUsage)
		}
		secret := args[2]
		if secret == "-" {
			if secret, err = readSecret(); err != nil {
				return err
			}
		}
		if err := svc.RegisterIssuer(args[1], secret); err != nil {
			return err
		}
		fmt.Printf("added issuer '%s'\n", args[1])

	case "list":
		issuers, err := svc.ListIssuers()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tCREATED")
		for _, issuer := range issuers {
			fmt.Fprintf(tw, "%s\t%s\n", issuer.Name, issuer.Created.Format(time.RFC3339))
		}
		tw.Flush()

	case "remove":
		if len(args) != 2 {
			return fmt.Errorf("%w: issuer remove takes a name", errUsage)
		}
		if err := svc.RemoveIssuer(args[1]); err != nil {
			return err
		}
		fmt.Printf("removed issuer '%s'\n", args[1])

	default:
		return fmt.Errorf("%w: unknown issuer command '%s'", errUsage, args[0])
	}
	return nil
}

func readSecret() (string, error) {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read secret from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
