package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jra3/itemfs/internal/config"
	"github.com/jra3/itemfs/internal/store"
)

// dbCmd is the hidden direct-store inspection group: it opens the store
// directly, without mounting, for seeding and scripting.
var dbCmd = &cobra.Command{
	Use:    "db",
	Short:  "Operate on the item store directly, without mounting",
	Hidden: true,
}

var dbCreateItemCmd = &cobra.Command{
	Use:   "create-item <name>",
	Short: "Create an item directly in the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openDBStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		id, err := s.CreateItem(args[0])
		if err != nil {
			return fmt.Errorf("create item: %w", err)
		}
		fmt.Printf("/items/%d\n", int64(id))
		return nil
	},
}

var dbListItemsCmd = &cobra.Command{
	Use:   "list-items",
	Short: "List every item in the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openDBStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		items, err := s.GetItems()
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}
		for _, item := range items {
			fmt.Printf("%d\t%s\n", int64(item.ID), item.Name)
		}
		return nil
	},
}

// dbDeleteItemCmd is itemfs's out-of-core answer to item deletion: the
// control channel's request types never include one, so deletion is
// exposed here, directly against the store, rather than as a socket
// request.
var dbDeleteItemCmd = &cobra.Command{
	Use:   "delete-item <id>",
	Short: "Delete an item and its relationships directly from the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openDBStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		id, err := parseItemID(args[0])
		if err != nil {
			return err
		}
		if err := s.DeleteItem(id); err != nil {
			return fmt.Errorf("delete item: %w", err)
		}
		return nil
	},
}

// dbCreateItemFilterCmd creates a per-item filter view directly against
// the store rather than over the control channel: the control channel's
// create_filter request only ever produces root filters, so a per-item
// filter with its own context conditions belongs in the direct-store
// group instead.
var dbCreateItemFilterCmd = &cobra.Command{
	Use:   "create-item-filter",
	Short: "Create a per-item filter view directly in the store",
	Long: `Create a per-item filter view directly in the store.

--condition selects which items the filter applies to (the context set);
--filter selects what the filter shows once applied.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		conditionFlags, _ := cmd.Flags().GetStringArray("condition")
		filterFlags, _ := cmd.Flags().GetStringArray("filter")
		if name == "" {
			return fmt.Errorf("--name is required")
		}

		conditions, err := parseStoreConditions(conditionFlags)
		if err != nil {
			return err
		}
		filters, err := parseStoreConditions(filterFlags)
		if err != nil {
			return err
		}

		s, err := openDBStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		filter, err := s.AddItemFilter(name, conditions, filters)
		if err != nil {
			return fmt.Errorf("create item filter: %w", err)
		}
		fmt.Printf("filter set %d (context %d)\n", int64(filter.Filter), int64(filter.Context))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbCreateItemCmd, dbListItemsCmd, dbDeleteItemCmd, dbCreateItemFilterCmd)
	dbCmd.PersistentFlags().String("store", "", "store root (default: config store.root)")

	dbCreateItemFilterCmd.Flags().String("name", "", "filter name")
	dbCreateItemFilterCmd.Flags().StringArray("condition", nil, "no_relationship <side> <relationship_id>, repeatable")
	dbCreateItemFilterCmd.Flags().StringArray("filter", nil, "no_relationship <side> <relationship_id>, repeatable")
}

// parseStoreConditions parses repeated "no_relationship <side>
// <relationship_id>" strings straight into store.Condition values,
// reusing the control package's wire decoder so the grammar matches
// itemfs client's --filter flag exactly.
func parseStoreConditions(raw []string) ([]store.Condition, error) {
	wire, err := parseFilterFlags(raw)
	if err != nil {
		return nil, err
	}
	conditions := make([]store.Condition, 0, len(wire))
	for _, w := range wire {
		c, err := w.ToCondition()
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, c)
	}
	return conditions, nil
}

func openDBStore(cmd *cobra.Command) (*store.Store, error) {
	storeRoot, _ := cmd.Flags().GetString("store")
	if storeRoot == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		storeRoot = cfg.Store.Root
		if storeRoot == "" {
			storeRoot = config.DefaultStoreRoot()
		}
	}
	return store.Open(storeRoot)
}

func parseItemID(s string) (store.ItemID, error) {
	var n int64
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, fmt.Errorf("invalid item id %q", s)
	}
	return store.ItemID(n), nil
}
