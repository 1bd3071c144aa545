package main

import (
	"fmt"
	"strconv"

	"github.com/gonghojin/prompt-center-sub001/internal/pkg/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the view tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		if err = database.Migrate(db); err != nil {
			return err
		}
		cmd.Println("migrated")
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Flush cached view deltas into durable counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, err := buildServices()
		if err != nil {
			return err
		}
		report, err := svcs.SyncSvc.Reconcile(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, report)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Compare log counts with durable counts and repair under-counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, err := buildServices()
		if err != nil {
			return err
		}
		report, err := svcs.SyncSvc.ValidateConsistency(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, report)
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync <prompt-id>",
	Short: "Force sync the view count of one prompt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		promptID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil || promptID == 0 {
			return fmt.Errorf("invalid prompt id %q", args[0])
		}
		svcs, err := buildServices()
		if err != nil {
			return err
		}
		count, err := svcs.SyncSvc.ForceSync(cmd.Context(), promptID)
		if err != nil {
			return err
		}
		return printJSON(cmd, count)
	},
}
