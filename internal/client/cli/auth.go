package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/equipsense/equipsense/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts for credentials and authenticates against the server.
//
// The identifier may be a username or an email address; the server resolves
// either. The password byte slice is securely wiped before returning.
// Failures are reported to the user and swallowed so the REPL keeps running.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Username or email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	user, err := a.api.Login(ctx, userName, string(password))
	if err != nil {
		printlnFn("Login failed:", err.Error())
		return err
	}

	a.userName = user.Username
	printlnFn(fmt.Sprintf("Logged in as %s", user.Username))
	return nil
}

// Logout revokes the current session on the server and clears the local one.
// The local session is dropped even when the server call fails.
func (a *App) Logout(ctx context.Context) error {
	err := a.api.Logout(ctx)
	a.userName = ""
	if err != nil {
		printlnFn("Logout failed:", err.Error())
		return err
	}
	printlnFn("Logged out")
	return nil
}

// Profile fetches and prints the authenticated user's account details.
func (a *App) Profile(ctx context.Context) error {
	user, err := a.api.Profile(ctx)
	if err != nil {
		printlnFn("Error:", err.Error())
		return err
	}

	printlnFn("Username:", user.Username)
	printlnFn("Email:", user.Email)
	if user.FirstName != "" || user.LastName != "" {
		printlnFn("Name:", user.FirstName, user.LastName)
	}
	printlnFn("Role:", user.Role)
	return nil
}
