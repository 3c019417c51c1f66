package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/halcyonlabs/personagate/internal/auth"
	"github.com/halcyonlabs/personagate/internal/config"
	"github.com/halcyonlabs/personagate/internal/store"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage user authorization records",
	}
	cmd.AddCommand(authAuthenticateCmd())
	cmd.AddCommand(authRefreshCmd())
	cmd.AddCommand(authExpireCmd())
	cmd.AddCommand(authVerifyNsfwCmd())
	cmd.AddCommand(authClearNsfwCmd())
	cmd.AddCommand(authBlacklistCmd())
	cmd.AddCommand(authUnblacklistCmd())
	cmd.AddCommand(authShowCmd())
	cmd.AddCommand(authDeleteCmd())
	return cmd
}

// withStores loads config, opens the configured backend and hands the
// stores to fn.
func withStores(fn func(ctx context.Context, s *store.Stores) error) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	stores, err := openStores(cfg)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer stores.Close()
	return fn(context.Background(), stores)
}

// loadAggregate fetches an existing record or fails with a uniform error.
func loadAggregate(ctx context.Context, s *store.Stores, identity string) (*auth.Aggregate, error) {
	agg, err := s.Auth.FindByIdentity(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}
	if agg == nil {
		return nil, fmt.Errorf("no authorization record for %s", identity)
	}
	return agg, nil
}

func authAuthenticateCmd() *cobra.Command {
	var tokenValue string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "authenticate <identity>",
		Short: "Create an authorization record with a fresh token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(func(ctx context.Context, s *store.Stores) error {
				identity := args[0]
				existing, err := s.Auth.FindByIdentity(ctx, identity)
				if err != nil {
					return fmt.Errorf("check record: %w", err)
				}
				if existing != nil {
					return fmt.Errorf("record for %s already exists, use 'auth refresh'", identity)
				}
				token, err := auth.NewToken(tokenValue, time.Now().Add(ttl))
				if err != nil {
					return fmt.Errorf("invalid token: %w", err)
				}
				agg, err := auth.NewAggregate(identity, token)
				if err != nil {
					return err
				}
				if err := s.Auth.Save(ctx, agg); err != nil {
					return fmt.Errorf("save: %w", err)
				}
				fmt.Printf("authenticated %s (token expires %s)\n", identity, token.ExpiresAt.Format(time.RFC3339))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tokenValue, "token", "", "token value (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.MarkFlagRequired("token")
	return cmd
}

func authRefreshCmd() *cobra.Command {
	var tokenValue string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "refresh <identity>",
		Short: "Replace the token on an existing record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(func(ctx context.Context, s *store.Stores) error {
				agg, err := loadAggregate(ctx, s, args[0])
				if err != nil {
					return err
				}
				token, err := auth.NewToken(tokenValue, time.Now().Add(ttl))
				if err != nil {
					return fmt.Errorf("invalid token: %w", err)
				}
				if err := agg.RefreshToken(token); err != nil {
					return err
				}
				if err := s.Auth.Save(ctx, agg); err != nil {
					return fmt.Errorf("save: %w", err)
				}
				fmt.Printf("refreshed token for %s (expires %s)\n", args[0], token.ExpiresAt.Format(time.RFC3339))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tokenValue, "token", "", "token value (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.MarkFlagRequired("token")
	return cmd
}

func authExpireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire <identity>",
		Short: "Expire the record's token immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(func(ctx context.Context, s *store.Stores) error {
				agg, err := loadAggregate(ctx, s, args[0])
				if err != nil {
					return err
				}
				if err := agg.ExpireToken(); err != nil {
					return err
				}
				if err := s.Auth.Save(ctx, agg); err != nil {
					return fmt.Errorf("save: %w", err)
				}
				fmt.Printf("expired token for %s\n", args[0])
				return nil
			})
		},
	}
}

func authVerifyNsfwCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-nsfw <identity>",
		Short: "Mark the user as age-verified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(func(ctx context.Context, s *store.Stores) error {
				agg, err := loadAggregate(ctx, s, args[0])
				if err != nil {
					return err
				}
				if err := agg.VerifyNsfw(); err != nil {
					return err
				}
				if err := s.Auth.Save(ctx, agg); err != nil {
					return fmt.Errorf("save: %w", err)
				}
				fmt.Printf("nsfw verification recorded for %s\n", args[0])
				return nil
			})
		},
	}
}

func authClearNsfwCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "clear-nsfw <identity>",
		Short: "Clear the user's age verification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(func(ctx context.Context, s *store.Stores) error {
				agg, err := loadAggregate(ctx, s, args[0])
				if err != nil {
					return err
				}
				if err := agg.ClearNsfwVerification(reason); err != nil {
					return err
				}
				if err := s.Auth.Save(ctx, agg); err != nil {
					return fmt.Errorf("save: %w", err)
				}
				fmt.Printf("nsfw verification cleared for %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "manual clear", "reason recorded on the event")
	return cmd
}

func authBlacklistCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "blacklist <identity>",
		Short: "Blacklist a user, revoking token and verification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(func(ctx context.Context, s *store.Stores) error {
				agg, err := loadAggregate(ctx, s, args[0])
				if err != nil {
					return err
				}
				if err := agg.Blacklist(reason); err != nil {
					return err
				}
				if err := s.Auth.Save(ctx, agg); err != nil {
					return fmt.Errorf("save: %w", err)
				}
				fmt.Printf("blacklisted %s: %s\n", args[0], reason)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "blacklist reason (required)")
	cmd.MarkFlagRequired("reason")
	return cmd
}

func authUnblacklistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unblacklist <identity>",
		Short: "Lift a user's blacklist (access must be re-granted separately)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(func(ctx context.Context, s *store.Stores) error {
				agg, err := loadAggregate(ctx, s, args[0])
				if err != nil {
					return err
				}
				if err := agg.Unblacklist(); err != nil {
					return err
				}
				if err := s.Auth.Save(ctx, agg); err != nil {
					return fmt.Errorf("save: %w", err)
				}
				fmt.Printf("unblacklisted %s (token and verification were not restored)\n", args[0])
				return nil
			})
		},
	}
}

func authShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <identity>",
		Short: "Print a user's authorization state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(func(ctx context.Context, s *store.Stores) error {
				agg, err := loadAggregate(ctx, s, args[0])
				if err != nil {
					return err
				}
				now := time.Now()
				fmt.Printf("identity:      %s\n", agg.Identity)
				fmt.Printf("version:       %d\n", agg.Version())
				if agg.Token != nil {
					fmt.Printf("token:         expires %s (expired: %v)\n",
						agg.Token.ExpiresAt.Format(time.RFC3339), agg.Token.IsExpired(now))
				} else {
					fmt.Println("token:         none")
				}
				fmt.Printf("nsfw verified: %v\n", agg.Nsfw.Verified)
				if agg.IsBlacklisted {
					fmt.Printf("blacklisted:   yes (%s)\n", agg.BlacklistReason)
				} else {
					fmt.Println("blacklisted:   no")
				}
				return nil
			})
		},
	}
}

func authDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <identity>",
		Short: "Delete a user's authorization record and event history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(func(ctx context.Context, s *store.Stores) error {
				if err := s.Auth.Delete(ctx, args[0]); err != nil {
					return fmt.Errorf("delete: %w", err)
				}
				fmt.Printf("deleted record for %s\n", args[0])
				return nil
			})
		},
	}
}
