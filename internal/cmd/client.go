package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jra3/itemfs/internal/control"
	"github.com/jra3/itemfs/internal/resolver"
)

// clientCmd is the external collaborator of the control channel: one
// subcommand per request type, each opening the mounted ".api_handle"
// and sending one request — write it, then, for the request types that
// produce a response, read that response back on the same handle.
var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Send a control-channel request to a mounted itemfs instance",
}

var clientCreateItemCmd = &cobra.Command{
	Use:   "create-item",
	Short: "Create a new item",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			return fmt.Errorf("--name is required")
		}

		var resp control.CreateItemResponse
		if err := sendRequest(cmd, control.TypeCreateItem, control.CreateItemRequest{Name: name}, &resp); err != nil {
			return err
		}
		fmt.Println(resp.Path)
		return nil
	},
}

var clientCreateRelationshipCmd = &cobra.Command{
	Use:   "create-relationship",
	Short: "Create a new relationship type",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		if from == "" || to == "" {
			return fmt.Errorf("--from and --to are required")
		}

		var resp control.CreateRelationshipResponse
		req := control.CreateRelationshipRequest{FromName: from, ToName: to}
		if err := sendRequest(cmd, control.TypeCreateRelationship, req, &resp); err != nil {
			return err
		}
		fmt.Println(resp.Path)
		return nil
	},
}

var clientCreateItemRelationshipCmd = &cobra.Command{
	Use:   "create-item-relationship",
	Short: "Link two items by an existing relationship type",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		relationship, _ := cmd.Flags().GetInt64("relationship")
		from, _ := cmd.Flags().GetInt64("from")
		to, _ := cmd.Flags().GetInt64("to")

		req := control.CreateItemRelationshipRequest{
			RelationshipID: relationship,
			FromID:         from,
			ToID:           to,
		}
		return sendRequest(cmd, control.TypeCreateItemRelationship, req, nil)
	},
}

var clientCreateRootFilterCmd = &cobra.Command{
	Use:   "create-root-filter",
	Short: "Create a root-level filter view",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		filters, _ := cmd.Flags().GetStringArray("filter")
		if name == "" {
			return fmt.Errorf("--name is required")
		}

		wire, err := parseFilterFlags(filters)
		if err != nil {
			return err
		}
		req := control.CreateFilterRequest{Name: name, Filters: wire}
		return sendRequest(cmd, control.TypeCreateFilter, req, nil)
	},
}

func init() {
	rootCmd.AddCommand(clientCmd)
	clientCmd.PersistentFlags().String("mountpoint", "", "mounted itemfs directory")
	clientCmd.MarkPersistentFlagRequired("mountpoint")

	clientCreateItemCmd.Flags().String("name", "", "item name")
	clientCreateRelationshipCmd.Flags().String("from", "", "from-side name")
	clientCreateRelationshipCmd.Flags().String("to", "", "to-side name")
	clientCreateItemRelationshipCmd.Flags().Int64("relationship", 0, "relationship id")
	clientCreateItemRelationshipCmd.Flags().Int64("from", 0, "from item id")
	clientCreateItemRelationshipCmd.Flags().Int64("to", 0, "to item id")
	clientCreateRootFilterCmd.Flags().String("name", "", "filter name")
	clientCreateRootFilterCmd.Flags().StringArray("filter", nil, "no_relationship <side> <relationship_id>, repeatable")

	clientCmd.AddCommand(
		clientCreateItemCmd,
		clientCreateRelationshipCmd,
		clientCreateItemRelationshipCmd,
		clientCreateRootFilterCmd,
	)
}

// parseFilterFlags parses repeated "no_relationship <side> <relationship_id>"
// strings, matching the original create-root-filter/create-item-filter
// binaries' --filter grammar.
func parseFilterFlags(raw []string) ([]control.ConditionWire, error) {
	wire := make([]control.ConditionWire, 0, len(raw))
	for _, spec := range raw {
		fields := strings.Fields(spec)
		if len(fields) != 3 || fields[0] != "no_relationship" {
			return nil, fmt.Errorf("invalid --filter %q: want \"no_relationship <side> <relationship_id>\"", spec)
		}
		relID, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid relationship id in --filter %q: %w", spec, err)
		}
		wire = append(wire, control.ConditionWire{
			Type:           "no_relationship",
			Side:           fields[1],
			RelationshipID: relID,
		})
	}
	return wire, nil
}

// sendRequest opens the mounted control-channel file, writes env, and
// (when out is non-nil) unmarshals the response's data field into out.
func sendRequest(cmd *cobra.Command, reqType string, data any, out any) error {
	mountpoint, _ := cmd.Flags().GetString("mountpoint")
	socketPath := filepath.Join(mountpoint, resolver.SocketName)

	f, err := os.OpenFile(socketPath, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open control channel: %w", err)
	}
	defer f.Close()

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	body, err := json.Marshal(control.Envelope{Type: reqType, Data: payload})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	if _, err := f.Write(body); err != nil {
		return fmt.Errorf("write control request: %w", err)
	}
	if out == nil {
		return nil
	}

	buf := make([]byte, 64*1024)
	n, err := f.Read(buf)
	if err != nil {
		return fmt.Errorf("read control response: %w", err)
	}

	var env control.Envelope
	if err := json.Unmarshal(buf[:n], &env); err != nil {
		return fmt.Errorf("decode response envelope: %w", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
