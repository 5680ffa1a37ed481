package main

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/OFFIS-RIT/pulse/pkg/graph"
	"github.com/OFFIS-RIT/pulse/pkg/loader/records"
)

// schemas maps a schema name to the type it describes.
var schemas = map[string]func() any{
	"emails":   func() any { return &[]records.EmailRecord{} },
	"calendar": func() any { return &records.CalendarFile{} },
	"graph":    func() any { return &graph.NodeLink{} },
}

var schemaCmd = &cobra.Command{
	Use:   "schema [emails|calendar|graph]",
	Short: "Print the JSON Schema of an input or output file",
	Long: `Print the JSON Schema of the email thread input, the calendar input or
the exported node-link graph.

Examples:
  pulse schema emails
  pulse schema graph > graph.schema.json`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"emails", "calendar", "graph"},
	RunE:      runSchema,
}

func runSchema(cmd *cobra.Command, args []string) error {
	newValue, ok := schemas[args[0]]
	if !ok {
		return fmt.Errorf("unknown schema %q", args[0])
	}

	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(newValue())

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
