package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/recera/dualgraph/internal/dataset"
	"github.com/recera/dualgraph/pkg/bidir"
	"github.com/recera/dualgraph/pkg/graph"
)

var (
	headingColor = color.New(color.FgHiGreen, color.Bold)
	subtleColor  = color.New(color.FgHiBlack)
	warnColor    = color.New(color.FgYellow)
)

func newStatsCommand(g *globalFlags) *cobra.Command {
	var asJSON bool
	var top int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the derived node values of a dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.load(cmd, g.overrides(cmd))
			if err != nil {
				return err
			}
			ds, err := dataset.Load(cmd.Context(), a.cfg.Dataset)
			if err != nil {
				return err
			}
			prepared := graph.Prepare(ds, a.cfg.Flags.AltShapes)
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(graph.Statistics(prepared.Nodes))
			}
			printStats(out, prepared, top)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	cmd.Flags().IntVarP(&top, "top", "n", 20, "Rows in the node table (0 for all)")

	return cmd
}

func printStats(w io.Writer, ds graph.Dataset, top int) {
	st := graph.Statistics(ds.Nodes)
	expanded := bidir.Expand(ds.Links)

	headingColor.Fprintf(w, "%d nodes, %d links (%d when bidirectional)\n\n", st.Count, len(ds.Links), len(expanded))
	fmt.Fprintf(w, "  incoming  total %.2f  avg %.2f  max %.2f\n", st.TotalIncoming, st.AverageIncoming, st.MaxIncoming)
	fmt.Fprintf(w, "  outgoing  total %.2f  avg %.2f  max %.2f\n", st.TotalOutgoing, st.AverageOutgoing, st.MaxOutgoing)
	fmt.Fprintf(w, "  main      avg %.2f  max %.2f (%s)\n\n", st.AverageMain, st.MaxMain, st.MaxMainNodeID)

	nodes := append([]graph.Node(nil), ds.Nodes...)
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].MainValue > nodes[j].MainValue })
	if top > 0 && len(nodes) > top {
		nodes = nodes[:top]
	}

	headers := []string{"ID", "TYPE", "IN", "OUT", "MAIN", "CENTRALITY", "SIZE"}
	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, []string{
			n.ID,
			string(n.Type),
			fmt.Sprintf("%.2f", n.IncomingValue),
			fmt.Sprintf("%.2f", n.OutgoingValue),
			fmt.Sprintf("%.2f", n.MainValue),
			fmt.Sprintf("%.1f", n.Centrality),
			fmt.Sprintf("%.0f", n.Size),
		})
	}
	printTable(w, headers, rows)

	if len(st.IsolatedNodeIDs) > 0 {
		warnColor.Fprintf(w, "\n  isolated: %s\n", strings.Join(st.IsolatedNodeIDs, ", "))
	}
}

// printTable prints an aligned table with a subtle header
func printTable(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var header, sep strings.Builder
	header.WriteString("  ")
	sep.WriteString("  ")
	for i, h := range headers {
		fmt.Fprintf(&header, "%-*s  ", widths[i], h)
		sep.WriteString(strings.Repeat("─", widths[i]) + "  ")
	}
	subtleColor.Fprintln(w, header.String())
	subtleColor.Fprintln(w, sep.String())

	for _, row := range rows {
		var line strings.Builder
		line.WriteString("  ")
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprintf(&line, "%-*s  ", widths[i], cell)
			}
		}
		fmt.Fprintln(w, line.String())
	}
}
