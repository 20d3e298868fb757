package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
)

const usage = `usage: civid [-config file.yaml] <command> [args]

commands:
  serve                        run the identity server
  link <username>              print a login link for username
  issuer add <name> <secret>   allow name to create login links over HTTP
                               (secret "-" reads it from stdin)
  issuer list                  list link issuers
  issuer remove <name>         revoke a link issuer

Configuration comes from the optional YAML file, a .env file in the working
directory, and the environment, in increasing order of precedence. SIGNING_KEY
and SECRET_KEY are required. TRUSTED_PROXIES lists the proxies whose
X-Forwarded-For headers are believed; by default none are.
`

var errUsage = errors.New("bad usage")

func main() {
	flags := flag.NewFlagSet("civid", flag.ContinueOnError)
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	configPath := flags.String("config", "", "YAML config file")
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	args := flags.Args()
	if len(args) == 0 {
		flags.Usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "serve":
		err = runServe(*configPath)
	case "link":
		err = runLink(*configPath, args[1:])
	case "issuer":
		err = runIssuer(*configPath, args[1:])
	case "help":
		flags.Usage()
		return
	default:
		err = fmt.Errorf("%w: unknown command '%s'", errUsage, args[0])
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "civid: %v\n", err)
		if errors.Is(err, errUsage) {
			flags.Usage()
			os.Exit(2)
		}
		os.Exit(1)
	}
}
