package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/spf13/cobra"
)

var identitiesCmd = &cobra.Command{
	Use:   "identities",
	Short: "Manage enrolled identities",
}

var identitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled identities",
	RunE:  runIdentitiesList,
}

var identitiesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete all embeddings of an identity",
	Long: `Delete all embeddings of an identity. Reference images are kept, remove
the identity folder to stop it matching through the Face++ fallback.`,
	Args: cobra.ExactArgs(1),
	RunE: runIdentitiesDelete,
}

func init() {
	rootCmd.AddCommand(identitiesCmd)
	identitiesCmd.AddCommand(identitiesListCmd)
	identitiesCmd.AddCommand(identitiesDeleteCmd)

	identitiesListCmd.Flags().Bool("json", false, "Output as JSON")
}

func runIdentitiesList(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	cfg := config.Load()
	closeStorage, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer closeStorage()

	ctx := context.Background()
	store, err := database.GetEnrollmentStore(ctx)
	if err != nil {
		return err //nolint:wrapcheck // provider error is descriptive
	}
	ids, err := store.ListIdentities(ctx)
	if err != nil {
		return fmt.Errorf("listing identities: %w", err)
	}

	if jsonOutput {
		return outputJSON(ids)
	}
	if len(ids) == 0 {
		fmt.Println("No identities enrolled")
		return nil
	}
	for _, id := range ids {
		fmt.Printf("  %-12s %-30s %-28s %s\n",
			id.IdentityID, id.DisplayName, strings.Join(id.Angles, ","), id.EnrolledAt.Format(time.DateTime))
	}
	fmt.Printf("\n%d identities\n", len(ids))
	return nil
}

func runIdentitiesDelete(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	closeStorage, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer closeStorage()

	ctx := context.Background()
	store, err := database.GetEnrollmentStore(ctx)
	if err != nil {
		return err //nolint:wrapcheck // provider error is descriptive
	}
	deleted, err := store.DeleteIdentity(ctx, args[0])
	if err != nil {
		return fmt.Errorf("deleting identity: %w", err)
	}

	refs, err := newReferenceStore(ctx, cfg)
	if err != nil {
		return err
	}
	removed, err := refs.Delete(ctx, args[0])
	if err != nil {
		return fmt.Errorf("deleting reference images: %w", err)
	}

	if !deleted && removed == 0 {
		return fmt.Errorf("identity %s not found", args[0])
	}
	fmt.Printf("Deleted identity %s (%d reference images)\n", args[0], removed)
	return nil
}
