package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/matiasleandrokruk/newsroom/internal/infra/config"
	pkgauth "github.com/matiasleandrokruk/newsroom/pkg/auth"
)

func runToken(cfg *config.Config, args []string, out io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	subject := fs.String("subject", "", "Token subject (required)")
	role := fs.String("role", pkgauth.RoleAdmin, "Role claim")
	expiry := fs.Duration("expiry", cfg.Security.JWTExpiry, "Token lifetime")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *subject == "" {
		fmt.Fprintln(out, "token: --subject is required") //nolint:errcheck
		return 2
	}

	issuer, err := pkgauth.NewIssuer(cfg.Security.JWTSecret, *expiry)
	if err != nil {
		fmt.Fprintf(out, "token: %v (set JWT_SECRET)\n", err) //nolint:errcheck
		return 1
	}
	tok, err := issuer.IssueRole(*subject, *role)
	if err != nil {
		fmt.Fprintln(out, err) //nolint:errcheck
		return 1
	}
	fmt.Fprintln(out, tok) //nolint:errcheck
	return 0
}
