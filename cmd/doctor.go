package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"runtime"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/halcyonlabs/personagate/internal/config"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check system environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("personagate doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, defaults in effect)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Println()
	fmt.Println("  Discord:")
	checkSecret("Token", cfg.Discord.Token)
	fmt.Printf("    %-18s %q\n", "Mention sigil:", cfg.Discord.MentionSigil)
	fmt.Printf("    %-18s %d allowlisted\n", "Proxy apps:", len(cfg.Discord.ProxyApplicationIDs))

	fmt.Println()
	fmt.Println("  Personalities:")
	if len(cfg.Personalities) == 0 {
		fmt.Println("    (none configured, nothing will be routable)")
	}
	for _, p := range cfg.Personalities {
		traits := []string{}
		if p.Nsfw {
			traits = append(traits, "nsfw")
		}
		if len(p.Aliases) > 0 {
			traits = append(traits, fmt.Sprintf("%d aliases", len(p.Aliases)))
		}
		suffix := ""
		if len(traits) > 0 {
			suffix = " (" + strings.Join(traits, ", ") + ")"
		}
		fmt.Printf("    %-18s %s%s\n", p.Name+":", p.ID, suffix)
	}

	fmt.Println()
	fmt.Println("  Database:")
	if cfg.IsManagedMode() {
		fmt.Printf("    %-12s managed\n", "Mode:")
		db, dbErr := sql.Open("pgx", cfg.Database.PostgresDSN)
		if dbErr != nil {
			fmt.Printf("    %-12s CONNECT FAILED (%s)\n", "Status:", dbErr)
		} else if pingErr := db.PingContext(context.Background()); pingErr != nil {
			fmt.Printf("    %-12s CONNECT FAILED (%s)\n", "Status:", pingErr)
			db.Close()
		} else {
			defer db.Close()
			fmt.Printf("    %-12s OK\n", "Status:")
			checkEventLog(db)
		}
	} else {
		fmt.Printf("    %-12s standalone\n", "Mode:")
		path := config.ExpandHome(cfg.Database.SQLitePath)
		fmt.Printf("    %-12s %s", "SQLite:", path)
		if _, statErr := os.Stat(path); statErr != nil {
			fmt.Println(" (will be created on first run)")
		} else {
			fmt.Println(" (OK)")
		}
	}

	fmt.Println()
	fmt.Println("  Telemetry:")
	if cfg.Telemetry.Enabled {
		fmt.Printf("    %-12s %s (%s)\n", "Endpoint:", cfg.Telemetry.Endpoint, cfg.Telemetry.Protocol)
	} else {
		fmt.Printf("    %-12s disabled\n", "Status:")
	}

	fmt.Println()
	fmt.Println("Doctor check complete.")
}

func checkSecret(name, value string) {
	if value == "" {
		fmt.Printf("    %-18s (not configured)\n", name+":")
		return
	}
	masked := value
	if len(value) > 8 {
		masked = value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
	}
	fmt.Printf("    %-18s %s\n", name+":", masked)
}

func checkEventLog(db *sql.DB) {
	var identities, events int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(DISTINCT identity), COUNT(*) FROM auth_events").Scan(&identities, &events)
	if err != nil {
		fmt.Printf("    %-12s CHECK FAILED (%s)\n", "Event log:", err)
		return
	}
	fmt.Printf("    %-12s %d events across %d identities\n", "Event log:", events, identities)
}
