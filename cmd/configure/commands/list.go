package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zenithlabs/zenith-api/internal/config"
	"github.com/zenithlabs/zenith-api/internal/database"
)

// NewListCmd creates the list command, which prints every database-backed
// setting in one go
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all database-backed settings",
		Long:  "Print the stored CORS and rate limit configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()

			ctx := context.Background()

			corsRepo := database.NewCorsConfigRepository(db)
			corsCfg, err := corsRepo.Get(ctx)
			if err != nil {
				return fmt.Errorf("failed to load cors config: %w", err)
			}
			if corsCfg == nil {
				fmt.Println("CORS: not configured (falling back to FRONTEND_URL)")
			} else {
				fmt.Println("CORS:")
				fmt.Printf("  Allowed origins: %s\n", corsCfg.AllowedOrigins)
				fmt.Printf("  Allow credentials: %v\n", corsCfg.AllowCredentials)
				fmt.Printf("  Max-Age: %d\n", corsCfg.MaxAge)
			}

			ratelimitRepo := database.NewRatelimitConfigRepository(db)
			rateCfg, err := ratelimitRepo.Get(ctx)
			if err != nil {
				return fmt.Errorf("failed to load ratelimit config: %w", err)
			}
			if rateCfg == nil {
				fmt.Println("Rate limit: not configured (using default)")
			} else {
				fmt.Printf("Rate limit: %s\n", rateCfg.Rate)
			}

			return nil
		},
	}

	return cmd
}
