package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Rethick-Jeganathan/Procura/internal/infra/provider"
	"github.com/Rethick-Jeganathan/Procura/internal/infra/security"
)

var (
	resetEmail  string
	resetUserID string
	resetYes    bool
)

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Set a new password for an account via the admin API",
	Long:  "Resets a user's password through the provider's elevated admin endpoint. Requires the service-role key. The new password is read from PROCURA_ADMIN_PASSWORD or prompted interactively.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadEnvironment()
		if err != nil {
			return err
		}

		if resetEmail == "" || !strings.Contains(resetEmail, "@") {
			return fmt.Errorf("a valid --email is required")
		}
		if _, err := uuid.Parse(resetUserID); err != nil {
			return fmt.Errorf("--user-id must be a valid UUID: %w", err)
		}

		password := os.Getenv("PROCURA_ADMIN_PASSWORD")
		if password == "" {
			password, err = promptPassword()
			if err != nil {
				return err
			}
		}
		if err := security.DefaultPasswordValidator().Validate(password); err != nil {
			return err
		}

		if !resetYes {
			fmt.Printf("You are about to reset the password for %s (%s)\n", resetEmail, resetUserID)
			if !confirm("Continue? (yes/no): ") {
				fmt.Println("Operation cancelled")
				return nil
			}
		}

		client, err := provider.NewClient(cfg.Provider, log)
		if err != nil {
			return fmt.Errorf("init identity provider: %w", err)
		}
		if err := client.AdminUpdatePassword(cmd.Context(), resetUserID, password); err != nil {
			return fmt.Errorf("reset password: %w", err)
		}

		fmt.Printf("Password reset successful for %s\n", resetEmail)
		return nil
	},
}

func init() {
	resetPasswordCmd.Flags().StringVar(&resetEmail, "email", "", "email of the account to reset")
	resetPasswordCmd.Flags().StringVar(&resetUserID, "user-id", "", "UUID of the account to reset")
	resetPasswordCmd.Flags().BoolVar(&resetYes, "yes", false, "skip the confirmation prompt")
	_ = resetPasswordCmd.MarkFlagRequired("email")
	_ = resetPasswordCmd.MarkFlagRequired("user-id")
}

func promptPassword() (string, error) {
	fmt.Print("New password: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	fmt.Print("Confirm password: ")
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(strings.ToLower(line)) == "yes"
}
