package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"

	"github.com/bluebird-io/portal/internal/site"
)

var plansCmd = &cobra.Command{
	Use:               "plans",
	Short:             "List subscription plans",
	PersistentPreRunE: preRunConfigE,
	RunE: func(cmd *cobra.Command, args []string) error {
		plans := site.New(cfg).Plans()

		if wantsJSON(cmd) {
			return printJSON(cmd, plans)
		}

		fmt.Println(titleStyle.Render(cfg.Site.Name))
		for _, plan := range plans {
			fmt.Println(renderPlan(plan))
		}
		return nil
	},
}

func renderPlan(plan site.Plan) string {
	var content strings.Builder

	content.WriteString(planTitleStyle.Render(plan.Name))
	if plan.Popular {
		content.WriteString(" ")
		content.WriteString(popularBadgeStyle.Render("最受欢迎"))
	}
	content.WriteString("\n")

	content.WriteString(headerStyle.Render(plan.Price + plan.Period))
	if len(plan.Description) > 0 {
		content.WriteString("  ")
		content.WriteString(plan.Description)
	}
	content.WriteString("\n")

	for _, feature := range plan.Features {
		content.WriteString(planFeatureStyle.Render("✓ " + feature))
		content.WriteString("\n")
	}

	return content.String()
}

var faqCmd = &cobra.Command{
	Use:               "faq",
	Short:             "Show frequently asked questions",
	PersistentPreRunE: preRunConfigE,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries := site.New(cfg).FAQ()

		if wantsJSON(cmd) {
			return printJSON(cmd, entries)
		}

		fmt.Println(titleStyle.Render("常见问题"))
		for _, entry := range entries {
			fmt.Println(questionStyle.Render(entry.Question))
			fmt.Println(answerStyle.Render(entry.Answer))
		}
		return nil
	},
}

var siteCmd = &cobra.Command{
	Use:               "site",
	Short:             "Print the site configuration as JSON",
	PersistentPreRunE: preRunConfigE,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd, site.New(cfg).Info())
	},
}

func wantsJSON(cmd *cobra.Command) bool {
	asJSON, _ := cmd.Flags().GetBool("json")
	filter, _ := cmd.Flags().GetString("jq")
	return asJSON || len(filter) > 0
}

// printJSON writes value as indented JSON, or every result of the --jq
// filter applied to it.
func printJSON(cmd *cobra.Command, value any) error {
	filter, _ := cmd.Flags().GetString("jq")
	return writeJSON(os.Stdout, value, filter)
}

func writeJSON(w io.Writer, value any, filter string) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	if len(filter) == 0 {
		return encoder.Encode(value)
	}

	query, err := gojq.Parse(filter)
	if err != nil {
		return fmt.Errorf("invalid jq filter: %w", err)
	}

	// gojq only understands plain JSON values
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var input any
	if err := json.Unmarshal(raw, &input); err != nil {
		return err
	}

	iter := query.Run(input)
	for {
		result, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, ok := result.(error); ok {
			return fmt.Errorf("jq: %w", err)
		}
		if err := encoder.Encode(result); err != nil {
			return err
		}
	}
}

func init() {
	for _, cmd := range []*cobra.Command{plansCmd, faqCmd, siteCmd} {
		cmd.Flags().Bool("json", false, "Print as JSON")
		cmd.Flags().String("jq", "", "Filter the JSON output with a jq expression (e.g., '.[].name')")
	}

	rootCmd.AddCommand(plansCmd)
	rootCmd.AddCommand(faqCmd)
	rootCmd.AddCommand(siteCmd)
}
