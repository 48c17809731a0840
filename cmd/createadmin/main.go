// Command createadmin bootstraps an administrator account: it loads the
// server configuration, connects to the database and interactively creates
// a verified admin user.
package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/equipsense/equipsense/internal/common"
	"github.com/equipsense/equipsense/internal/server/auth"
	"github.com/equipsense/equipsense/internal/server/config"
	"github.com/equipsense/equipsense/internal/server/models"
	"github.com/equipsense/equipsense/internal/server/repositories/repomanager"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := config.LoadConfig()

	rm, err := repomanager.NewPostgresRepositoryManager(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer rm.Close()

	if err := rm.RunMigrations(ctx); err != nil {
		return err
	}

	in := bufio.NewReader(os.Stdin)

	userName, err := promptRequired(in, "Username")
	if err != nil {
		return err
	}
	email, err := promptRequired(in, "Email")
	if err != nil {
		return err
	}
	if !strings.Contains(email, "@") {
		return errors.New("enter a valid email address")
	}
	firstName, err := promptRequired(in, "First name")
	if err != nil {
		return err
	}
	lastName, err := promptRequired(in, "Last name")
	if err != nil {
		return err
	}

	password, err := promptPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if problems := auth.ValidatePassword(string(password)); len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}

	confirm, err := promptPasswordWith("Confirm password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(password, confirm) {
		return errors.New("passwords do not match")
	}

	hash, err := auth.HashPassword(string(password))
	if err != nil {
		return err
	}

	user, err := rm.Users(rm.Conn()).Create(ctx, &models.User{
		UserName:        strings.ToLower(userName),
		Email:           strings.ToLower(email),
		FirstName:       firstName,
		LastName:        lastName,
		PasswordHash:    hash,
		IsActive:        true,
		IsAdmin:         true,
		IsEmailVerified: true,
	})
	if err != nil {
		if errors.Is(err, common.ErrorDuplicate) {
			return errors.New("a user with that username or email already exists")
		}
		return err
	}

	fmt.Printf("Admin account %q (%s) created.\n", user.UserName, user.Email)
	return nil
}

func promptRequired(in *bufio.Reader, label string) (string, error) {
	fmt.Printf("%s: ", label)
	line, err := in.ReadString('\n')
	if err != nil && len(line) == 0 {
		return "", err
	}
	value := strings.TrimSpace(line)
	if value == "" {
		return "", fmt.Errorf("%s cannot be empty", strings.ToLower(label))
	}
	return value, nil
}

func promptPassword() ([]byte, error) {
	return promptPasswordWith("Password: ")
}

func promptPasswordWith(label string) ([]byte, error) {
	fmt.Print(label)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return nil, err
	}
	return pw, nil
}
