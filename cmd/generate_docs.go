package cmd

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/agenda/internal/tools/calendar_tools"
)

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate calendar tool documentation",
		Long: `Generate markdown documentation for the calendar tools offered to the
agent. The documentation is built from the tool schemas themselves, so it
always matches what the model sees.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(outputFile string) error {
	markdown := generateToolsMarkdown(calendar_tools.Schemas())

	// Write to output
	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
	} else {
		fmt.Print(markdown)
	}

	return nil
}

func generateToolsMarkdown(tools []mcp.Tool) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Calendar Tools Reference\n\n")
	sb.WriteString("This document lists the tools the agenda agent can call while answering a question.\n")
	sb.WriteString("With `serve --expose-tools` the same tools are served over MCP at `/mcp/tools`.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	// Table of contents, in the order the tools are offered to the model
	sb.WriteString("## Table of Contents\n\n")
	for _, tool := range tools {
		sb.WriteString(fmt.Sprintf("- [%s](#%s)\n", tool.Name, tool.Name))
	}
	sb.WriteString("\n")

	// Dates
	sb.WriteString("## Dates\n\n")
	sb.WriteString("Date arguments take Brazilian Portuguese expressions such as `amanhã às 9h`, ")
	sb.WriteString("`sexta de manhã` or `semana que vem à tarde`, as well as RFC 3339 instants. ")
	sb.WriteString("Run `agenda resolve \"<texto>\"` to see how an expression is read.\n\n")

	sb.WriteString("## Tools\n\n")
	for _, tool := range tools {
		sb.WriteString(generateToolMarkdown(tool))
		sb.WriteString("\n")
	}

	return sb.String()
}

func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	// Tool name
	sb.WriteString(fmt.Sprintf("### %s\n\n", tool.Name))

	// Description
	if tool.Description != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", tool.Description))
	}

	if len(tool.InputSchema.Properties) == 0 {
		sb.WriteString("No arguments.\n")
		return sb.String()
	}

	sb.WriteString("**Arguments:**\n")

	// Required arguments first, then the optional ones, each sorted by name
	propNames := make([]string, 0, len(tool.InputSchema.Properties))
	for name := range tool.InputSchema.Properties {
		propNames = append(propNames, name)
	}
	sort.Slice(propNames, func(i, j int) bool {
		ri := slices.Contains(tool.InputSchema.Required, propNames[i])
		rj := slices.Contains(tool.InputSchema.Required, propNames[j])
		if ri != rj {
			return ri
		}
		return propNames[i] < propNames[j]
	})

	for _, name := range propNames {
		propMap, ok := tool.InputSchema.Properties[name].(map[string]any)
		if !ok {
			continue
		}

		requiredStr := "optional"
		if slices.Contains(tool.InputSchema.Required, name) {
			requiredStr = "required"
		}
		propType := getPropertyType(propMap)

		sb.WriteString(fmt.Sprintf("- `%s` (%s, %s): ", name, propType, requiredStr))
		if desc, ok := propMap["description"].(string); ok {
			sb.WriteString(desc)
		} else {
			sb.WriteString(fmt.Sprintf("%s parameter", propType))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func getPropertyType(prop map[string]any) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}
