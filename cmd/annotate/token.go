package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inamate/annotate/internal/auth"
	"github.com/inamate/annotate/internal/config"
)

var tokenUser string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a token for the websocket endpoint",
	Long:  "Sign a token with JWT_SECRET for a local user. Pass it as ?token= on /ws/canvas/{canvasId}.",
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id to embed in the token")
	_ = tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	token, err := auth.NewService(cfg.Server.JWTSecret).IssueToken(tokenUser)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
