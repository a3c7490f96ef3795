package cli

import (
	"fmt"
	"time"

	"quiz-progress-service/internal/config"
	"quiz-progress-service/internal/domain"
	transport "quiz-progress-service/internal/transport/http"

	"github.com/spf13/cobra"
)

// NewTokenCmd signs a bearer token for local testing against the API.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		userID string
		tier   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret not configured")
			}
			auth := transport.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
			token, err := auth.IssueToken(userID, domain.Tier(tier), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (token subject)")
	cmd.Flags().StringVar(&tier, "tier", string(domain.TierFree), "subscription tier: FREE, PRO or ENTERPRISE")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
