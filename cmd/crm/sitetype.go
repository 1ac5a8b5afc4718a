package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/crm/internal/types"
)

var (
	siteTypeBaseValue   float64
	siteTypeDescription string
)

var siteTypeCmd = &cobra.Command{
	Use:   "sitetype",
	Short: "Manage the site type catalog",
}

var siteTypeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List site types",
	Args:  cobra.NoArgs,
	RunE:  runSiteTypeList,
}

var siteTypeCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Add a site type",
	Args:  cobra.ExactArgs(1),
	RunE:  runSiteTypeCreate,
}

var siteTypeDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a site type",
	Long:  "Delete a site type. Site types referenced by closed projects cannot be deleted.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSiteTypeDelete,
}

func init() {
	siteTypeCreateCmd.Flags().Float64Var(&siteTypeBaseValue, "base-value", 0,
		"Default project value for this site type")
	siteTypeCreateCmd.Flags().StringVar(&siteTypeDescription, "description", "",
		"Optional description")

	siteTypeCmd.AddCommand(siteTypeListCmd)
	siteTypeCmd.AddCommand(siteTypeCreateCmd)
	siteTypeCmd.AddCommand(siteTypeDeleteCmd)
	rootCmd.AddCommand(siteTypeCmd)
}

func runSiteTypeList(cmd *cobra.Command, args []string) error {
	svc, closeFn, err := openService(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeFn()

	siteTypes, err := svc.ListSiteTypes(cliContext())
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"site_types": siteTypes,
			"total":      len(siteTypes),
		})
	}

	if len(siteTypes) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No site types found.")
		return nil
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "ID\tNAME\tBASE VALUE\tDESCRIPTION")
	for _, st := range siteTypes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", st.ID, st.Name, formatMoney(st.BaseValue), orDash(st.Description))
	}
	return w.Flush()
}

func runSiteTypeCreate(cmd *cobra.Command, args []string) error {
	svc, closeFn, err := openService(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeFn()

	st, err := svc.CreateSiteType(cliContext(), types.SiteTypeInput{
		Name:        args[0],
		Description: siteTypeDescription,
		BaseValue:   siteTypeBaseValue,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), st)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created site type %q (%s)\n", st.Name, st.ID)
	return nil
}

func runSiteTypeDelete(cmd *cobra.Command, args []string) error {
	svc, closeFn, err := openService(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeFn()

	deleted, err := svc.DeleteSiteType(cliContext(), args[0])
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("site type %s not found", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted site type %s\n", args[0])
	return nil
}
