package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reportMonths int

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the pipeline dashboard",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().IntVar(&reportMonths, "months", 0,
		"Months in the timeline (default from config)")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	svc, closeFn, err := openService(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeFn()

	d, err := svc.Dashboard(cliContext(), reportMonths)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), d)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Clients:          %d\n", d.TotalClients)
	fmt.Fprintf(out, "Closed:           %d\n", d.ClosedClients)
	fmt.Fprintf(out, "Conversion rate:  %d%%\n", d.ConversionRate)
	fmt.Fprintf(out, "Total revenue:    %s\n", formatMoney(d.TotalRevenue))
	fmt.Fprintln(out)

	w := newTabWriter(out)
	fmt.Fprintln(w, "STATUS\tCOUNT")
	for _, sc := range d.ByStatus {
		fmt.Fprintf(w, "%s\t%d\n", sc.Status, sc.Count)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "MONTH\tCLOSED\tREVENUE")
	for _, m := range d.Monthly {
		fmt.Fprintf(w, "%s\t%d\t%s\n", m.Month, m.ClosedCount, formatMoney(m.Revenue))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "SITE TYPE\tPROJECTS\tVALUE")
	for _, st := range d.BySiteType {
		fmt.Fprintf(w, "%s\t%d\t%s\n", st.Name, st.Count, formatMoney(st.Value))
	}
	return w.Flush()
}
