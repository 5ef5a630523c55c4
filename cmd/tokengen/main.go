// Command tokengen prints an owner bearer token for an existing user id.
//
//	tokengen -user <id> [-ask-secret] [-offline]
//
// The HMAC secret comes from the server config unless -ask-secret is given,
// in which case it is read from the terminal without echo. Unless -offline is
// set the user id is checked against the database first.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/dmitrijs2005/docusigner/internal/flagx"
	"github.com/dmitrijs2005/docusigner/internal/server/auth"
	"github.com/dmitrijs2005/docusigner/internal/server/config"
	"github.com/dmitrijs2005/docusigner/internal/server/repositories/repomanager"
	"golang.org/x/term"
)

var tokengenFlags = []string{"-user", "-ask-secret", "-offline"}

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// userExists reports whether the id is a known user.
type userExists func(ctx context.Context, id string) error

type options struct {
	userID    string
	askSecret bool
	offline   bool
}

func parseOptions(args []string) (options, error) {
	var o options

	fs := flag.NewFlagSet("tokengen", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&o.userID, "user", "", "owner user id")
	fs.BoolVar(&o.askSecret, "ask-secret", false, "read the secret key from the terminal")
	fs.BoolVar(&o.offline, "offline", false, "skip the user lookup")

	if err := fs.Parse(flagx.FilterArgs(args, tokengenFlags)); err != nil {
		return o, err
	}

	o.userID = strings.TrimSpace(o.userID)
	if o.userID == "" {
		return o, errors.New("-user is required")
	}
	return o, nil
}

func secretKey(cfg *config.Config, o options, w io.Writer) ([]byte, error) {
	if !o.askSecret {
		return []byte(cfg.SecretKey), nil
	}
	if _, err := fmt.Fprint(w, "Enter secret key: "); err != nil {
		return nil, err
	}
	key, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, errors.New("empty secret key")
	}
	return key, nil
}

func run(ctx context.Context, cfg *config.Config, args []string, w io.Writer, exists userExists) error {
	o, err := parseOptions(args)
	if err != nil {
		return err
	}

	if !o.offline {
		if err := exists(ctx, o.userID); err != nil {
			return fmt.Errorf("user %s: %w", o.userID, err)
		}
	}

	key, err := secretKey(cfg, o, w)
	if err != nil {
		return err
	}

	token, err := auth.GenerateToken(o.userID, key, cfg.AccessTokenValidityDuration)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, token)
	return err
}

func dbLookup(cfg *config.Config) userExists {
	return func(ctx context.Context, id string) error {
		db, err := sql.Open("pgx", cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		defer db.Close()

		_, err = repomanager.NewPostgresRepositoryManager().Users(db).GetByID(ctx, id)
		return err
	}
}

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	if err := run(ctx, cfg, os.Args[1:], os.Stdout, dbLookup(cfg)); err != nil {
		log.Fatalf("%v", err)
	}

}
