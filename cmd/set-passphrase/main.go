package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/noah-isme/tutor-cockpit-api/internal/repository"
	"github.com/noah-isme/tutor-cockpit-api/internal/service"
	"github.com/noah-isme/tutor-cockpit-api/pkg/config"
	"github.com/noah-isme/tutor-cockpit-api/pkg/database"
	"github.com/noah-isme/tutor-cockpit-api/pkg/logger"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("set-passphrase", flag.ContinueOnError)
	fs.SetOutput(stderr)
	passFlag := fs.String("passphrase", "", "New passphrase (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	passphrase := *passFlag
	if passphrase == "" {
		var err error
		passphrase, err = promptTwice(stdin, stdout)
		if err != nil {
			return err
		}
	}
	passphrase = strings.TrimSpace(passphrase)
	if passphrase == "" {
		return errors.New("passphrase cannot be empty")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logr.Sync() }()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db.DB, logr); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}

	auth := service.NewAuthService(repository.NewAuthRepository(db), nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
	})
	if err := auth.SetPassphrase(ctx, passphrase); err != nil {
		return err
	}

	fmt.Fprintln(stdout, "Passphrase updated. Existing sessions have been signed out.")
	return nil
}

func promptTwice(stdin io.Reader, stdout io.Writer) (string, error) {
	reader := bufio.NewReader(stdin)
	fmt.Fprint(stdout, "New passphrase: ")
	first, err := readPassphrase(stdin, reader)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	fmt.Fprint(stdout, "\nRepeat passphrase: ")
	second, err := readPassphrase(stdin, reader)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	fmt.Fprintln(stdout)
	if first != second {
		return "", errors.New("passphrases do not match")
	}
	return first, nil
}

func readPassphrase(stdin io.Reader, reader *bufio.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	// pipes and redirected input
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
