package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/crm/internal/crm"
	"github.com/hyperengineering/crm/internal/report"
	"github.com/hyperengineering/crm/internal/validation"
)

var (
	clientStatus string
	clientSearch string
	clientSort   string
	convertSite  string
	convertValue string
	convertWeeks string
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Inspect and convert clients",
}

var clientListCmd = &cobra.Command{
	Use:   "list",
	Short: "List clients",
	Args:  cobra.NoArgs,
	RunE:  runClientList,
}

var clientConvertCmd = &cobra.Command{
	Use:   "convert <id>",
	Short: "Convert a client into a closed project",
	Long:  "Convert a client into a closed project in place. Value defaults to the site type's base value and the timeline to 4 weeks.",
	Args:  cobra.ExactArgs(1),
	RunE:  runClientConvert,
}

func init() {
	clientListCmd.Flags().StringVar(&clientStatus, "status", "all",
		"Filter by status (in_progress, negotiating, lost, closed, all)")
	clientListCmd.Flags().StringVar(&clientSearch, "search", "",
		"Case-insensitive match on business name, contact name or city")
	clientListCmd.Flags().StringVar(&clientSort, "sort", "desc",
		"Contact date order (asc, desc)")

	clientConvertCmd.Flags().StringVar(&convertSite, "site-type", "",
		"Site type id (required)")
	clientConvertCmd.Flags().StringVar(&convertValue, "value", "",
		"Agreed project value")
	clientConvertCmd.Flags().StringVar(&convertWeeks, "timeline", "",
		"Project timeline in weeks")

	clientCmd.AddCommand(clientListCmd)
	clientCmd.AddCommand(clientConvertCmd)
	rootCmd.AddCommand(clientCmd)
}

func runClientList(cmd *cobra.Command, args []string) error {
	svc, closeFn, err := openService(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeFn()

	clients, err := svc.ListClients(cliContext(), crm.ClientQuery{
		Status: clientStatus,
		Search: clientSearch,
		Sort:   report.SortOrder(clientSort),
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"clients": clients,
			"total":   len(clients),
		})
	}

	if len(clients) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No clients found.")
		return nil
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "ID\tBUSINESS\tCITY\tCONTACT DATE\tSTATUS\tVALUE")
	for _, c := range clients {
		value := "-"
		if c.Project != nil {
			value = formatMoney(c.Project.Value)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.BusinessName, c.City, c.ContactDate, c.Status, value)
	}
	return w.Flush()
}

func runClientConvert(cmd *cobra.Command, args []string) error {
	terms, errs := validation.ParseProjectTerms(convertValue, convertWeeks)
	if len(errs) > 0 {
		return &crm.ValidationError{Errors: errs}
	}

	svc, closeFn, err := openService(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeFn()

	c, err := svc.ConvertToClosed(cliContext(), args[0], convertSite, terms)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("client %s not found", args[0])
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), c)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Converted %q: value %s, %d weeks\n",
		c.BusinessName, formatMoney(c.Project.Value), c.Project.ProjectTimeline)
	return nil
}
