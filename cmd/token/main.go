// Command token issues a bearer token for the invsync API.
//
//	INVSYNC_AUTH_JWT_SECRET=... token --subject ops --orgs acme,globex --lifetime 24h
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/invsync/invsync/internal/service/auth"
	"github.com/spf13/pflag"
)

func main() {
	subject := pflag.String("subject", "", "token subject (required)")
	orgs := pflag.StringSlice("orgs", nil, `organizations the token may act on; "*" allows all`)
	lifetime := pflag.Duration("lifetime", time.Hour, "token lifetime")
	secret := pflag.String("secret", os.Getenv("INVSYNC_AUTH_JWT_SECRET"), "signing secret (default $INVSYNC_AUTH_JWT_SECRET)")
	pflag.Parse()

	tok, err := issue(*secret, *subject, *orgs, *lifetime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}

func issue(secret, subject string, orgs []string, lifetime time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("--subject is required")
	}
	if len(orgs) == 0 {
		return "", fmt.Errorf("--orgs is required")
	}

	svc, err := auth.NewJWTService(secret, lifetime)
	if err != nil {
		return "", err
	}
	return svc.GenerateToken(context.Background(), subject, orgs)
}
