package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"photoback/pkg/auth"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored library credentials",
	Long: `Manage the OAuth credentials used to reach the remote library.

Credentials are stored in the system keychain when one is available,
with an encrypted file (PBKDF2 + AES-GCM) as the fallback. photoback
never mints tokens itself; paste the values produced by your
authorization flow.`,
}

// authSetCmd represents the auth set command
var authSetCmd = &cobra.Command{
	Use:   "set [email]",
	Short: "Store credentials for an account",
	Long: `Store credentials for a library account.

You will be prompted for the access token, refresh token, client id,
and client secret. Secret values are read without echo.`,
	Example: `  photoback auth set me@example.com`,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runAuthSet,
}

// authDeleteCmd represents the auth delete command
var authDeleteCmd = &cobra.Command{
	Use:     "delete [email]",
	Short:   "Remove stored credentials for an account",
	Example: `  photoback auth delete me@example.com`,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runAuthDelete,
}

func init() {
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authDeleteCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	email, err := resolveEmail(args)
	if err != nil {
		return err
	}

	accessToken, err := promptSecret("Access token: ")
	if err != nil {
		return err
	}
	if accessToken == "" {
		return fmt.Errorf("access token must not be empty")
	}
	refreshToken, err := promptSecret("Refresh token (optional): ")
	if err != nil {
		return err
	}
	tokenURI, err := promptLine("Token URI (optional): ")
	if err != nil {
		return err
	}
	clientID, err := promptLine("Client id (optional): ")
	if err != nil {
		return err
	}
	clientSecret, err := promptSecret("Client secret (optional): ")
	if err != nil {
		return err
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}

	creds := &auth.Credentials{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenURI:     tokenURI,
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}
	if err := manager.Store(email, creds); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	fmt.Printf("Credentials stored for %s\n", email)
	return nil
}

func runAuthDelete(cmd *cobra.Command, args []string) error {
	email, err := resolveEmail(args)
	if err != nil {
		return err
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	if err := manager.Delete(email); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}

	fmt.Printf("Credentials removed for %s\n", email)
	return nil
}

func resolveEmail(args []string) (string, error) {
	if len(args) == 1 {
		return strings.TrimSpace(args[0]), nil
	}
	email, err := promptLine("Account email: ")
	if err != nil {
		return "", err
	}
	if email == "" {
		return "", fmt.Errorf("email must not be empty")
	}
	return email, nil
}

func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func promptSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	value, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(string(value)), nil
}
