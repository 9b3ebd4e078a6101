package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/safecampus/sentra/internal/repository"
	"github.com/safecampus/sentra/internal/service"
)

func TokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage access tokens",
		Long:  "Create, list, and revoke access tokens",
	}

	cmd.AddCommand(TokenCreateCmd())
	cmd.AddCommand(TokenListCmd())
	cmd.AddCommand(TokenRevokeCmd())

	return cmd
}

func TokenCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new access token",
		Long:  "Create a new access token for a user",
		RunE:  runTokenCreate,
	}

	cmd.Flags().StringP("user", "u", "", "User ID or name (required)")
	cmd.Flags().StringP("name", "n", "", "Token name (required)")
	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("name")

	return cmd
}

func runTokenCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	userRef, _ := cmd.Flags().GetString("user")
	name, _ := cmd.Flags().GetString("name")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	tokenRepo := repository.NewAccessTokenRepository(pool)
	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(userRepo, tokenRepo, uuidGen)

	userID, err := resolveUserID(ctx, userRepo, userRef)
	if err != nil {
		return err
	}

	plaintext, err := authSvc.CreateToken(ctx, userID, name)
	if err != nil {
		return fmt.Errorf("failed to create access token: %w", err)
	}

	tokens, err := authSvc.ListTokens(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to retrieve created token: %w", err)
	}

	var tokenID string
	if len(tokens) > 0 {
		tokenID = tokens[len(tokens)-1].ID
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":    tokenID,
			"name":  name,
			"user":  userID,
			"token": plaintext,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Access token created for user %s\n", userID)
		fmt.Printf("Token ID: %s\n", tokenID)
		fmt.Printf("Token Name: %s\n", name)
		fmt.Printf("Token: %s\n", plaintext)
		fmt.Println("\n⚠️  Save this token now. You won't be able to see it again!")
	}

	return nil
}

func TokenListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List access tokens for a user",
		Long:  "List all access tokens for a specific user",
		RunE: func(cmd *cobra.Command, args []string) error {
			userRef, _ := cmd.Flags().GetString("user")
			outputFormat, _ := cmd.Flags().GetString("output")
			return runTokenList(userRef, outputFormat)
		},
	}

	cmd.Flags().StringP("user", "u", "", "User ID or name (required)")
	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")
	cmd.MarkFlagRequired("user")

	return cmd
}

func runTokenList(userRef, outputFormat string) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	tokenRepo := repository.NewAccessTokenRepository(pool)

	userID, err := resolveUserID(ctx, userRepo, userRef)
	if err != nil {
		return err
	}

	tokens, err := tokenRepo.GetByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list access tokens: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(tokens))
		for i, token := range tokens {
			data[i] = map[string]interface{}{
				"id":         token.ID,
				"name":       token.Name,
				"user_id":    token.UserID,
				"created_at": token.CreatedAt,
				"revoked_at": token.RevokedAt,
				"revoked":    token.IsRevoked(),
			}
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(tokens) == 0 {
			fmt.Printf("No access tokens found for user %s\n", userID)
			return nil
		}
		fmt.Printf("Access tokens for user %s:\n", userID)
		for _, token := range tokens {
			status := "active"
			if token.IsRevoked() {
				status = "revoked"
			}
			fmt.Printf("  %s: %s (%s, created: %s)\n", token.ID, token.Name, status, token.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	}

	return nil
}

func TokenRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an access token",
		Long:  "Revoke an access token by its ID",
		Args:  cobra.ExactArgs(1),
		RunE:  runTokenRevoke,
	}

	cmd.Flags().StringP("output", "", "text", "Output format (text or json)")

	return cmd
}

func runTokenRevoke(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	tokenID := args[0]
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	tokenRepo := repository.NewAccessTokenRepository(pool)
	if err := tokenRepo.Revoke(ctx, tokenID); err != nil {
		return fmt.Errorf("failed to revoke access token: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":      tokenID,
			"revoked": true,
			"message": "access token revoked successfully",
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Access token %s revoked successfully\n", tokenID)
	}

	return nil
}
