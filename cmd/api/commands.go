package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gorm.io/gorm"

	"github.com/Wikid82/ipguard/internal/config"
	"github.com/Wikid82/ipguard/internal/logger"
	"github.com/Wikid82/ipguard/internal/services"
)

const usage = `usage:
  api [serve]
  api block-ip <address> [reason]
  api unblock-ip <address>
  api detect`

// runCommand executes one administrative subcommand against db and writes a
// human readable result to out.
func runCommand(ctx context.Context, out io.Writer, db *gorm.DB, cfg config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command\n%s", usage)
	}

	denylist := services.NewDenylistService(db)

	switch args[0] {
	case "block-ip":
		if len(args) < 2 {
			return fmt.Errorf("block-ip needs an address\n%s", usage)
		}
		entry, created, err := denylist.Block(args[1], strings.Join(args[2:], " "))
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(out, "Blocked %s\n", entry.Address)
		} else {
			fmt.Fprintf(out, "%s was already blocked\n", entry.Address)
		}
		return nil

	case "unblock-ip":
		if len(args) != 2 {
			return fmt.Errorf("unblock-ip needs an address\n%s", usage)
		}
		if err := denylist.Unblock(args[1]); err != nil {
			return err
		}
		fmt.Fprintf(out, "Unblocked %s\n", args[1])
		return nil

	case "detect":
		alerts, err := services.NewAlertService(cfg.Notify.URLs, logger.Component("alerts"))
		if err != nil {
			return fmt.Errorf("notifications: %w", err)
		}
		anomaly, err := services.NewAnomalyService(
			services.NewAuditService(db),
			services.NewFindingService(db),
			alerts,
			cfg.Anomaly,
			logger.Component("anomaly"),
		)
		if err != nil {
			return err
		}
		report, err := anomaly.RunBounded(ctx)
		fmt.Fprintf(out, "high_request_rate: flagged=%d created=%d updated=%d\n",
			report.HighRate.Flagged, report.HighRate.Created, report.HighRate.Updated)
		fmt.Fprintf(out, "sensitive_path_access: flagged=%d created=%d updated=%d\n",
			report.SensitivePath.Flagged, report.SensitivePath.Created, report.SensitivePath.Updated)
		return err

	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}
