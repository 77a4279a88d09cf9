package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/ppiankov/claimwatch/internal/query"
	"github.com/ppiankov/claimwatch/internal/store"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	queryStatus   string
	queryLimit    int
	queryChannels []string
	rescanSource  string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Manage unsolved queries",
}

var queryStoreCmd = &cobra.Command{
	Use:   "store <content>",
	Short: "Store content as an unsolved query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		q, err := a.monitor.StoreUnsolved(cmd.Context(), query.UnsolvedInput{
			Content:     args[0],
			ContentType: detectContentType(args[0], contentType),
			UserID:      userID,
			Urgency:     urgency,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", q.ID, q.Priority, strings.Join(q.Keywords, ","))
		return nil
	},
}

var querySubscribeCmd = &cobra.Command{
	Use:   "subscribe <query-id> <user-id>",
	Short: "Subscribe a user to alerts for a query",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		if err := a.monitor.Subscribe(cmd.Context(), args[0], args[1], model.ParseChannels(queryChannels)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Subscribed %s to %s via %s\n", args[1], args[0], strings.Join(queryChannels, ","))
		return nil
	},
}

var queryRescanCmd = &cobra.Command{
	Use:   "rescan <content|->",
	Short: "Match observed content against pending queries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content := args[0]
		if content == "-" {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return eris.Wrap(err, "query: read stdin")
			}
			content = string(data)
		}

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		ids, err := a.monitor.Rescan(cmd.Context(), []query.ObservedContent{{Content: content, Source: rescanSource}})
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No query resolved")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintf(cmd.OutOrStdout(), "%s potentially_resolved\n", id)
		}
		return nil
	},
}

var queryResolveCmd = &cobra.Command{
	Use:   "resolve <query-id>",
	Short: "Confirm a potentially resolved query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		q, err := a.monitor.Resolve(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", q.ID, q.Status)
		return nil
	},
}

var queryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queries",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		queries, err := a.monitor.List(cmd.Context(), store.QueryFilter{
			Status: model.QueryStatus(queryStatus),
			UserID: userID,
			Limit:  queryLimit,
		})
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tCHECKS\tSTORED\tCONTENT")
		for _, q := range queries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
				q.ID, q.Status, q.Priority, q.CheckCount, q.StoredAt.Format("2006-01-02 15:04"), preview(q.Content))
		}
		return tw.Flush()
	},
}

var queryOverdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "List pending queries past their priority deadline",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		overdue, err := a.monitor.Overdue(cmd.Context())
		if err != nil {
			return err
		}
		if len(overdue) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No overdue queries")
			return nil
		}
		for _, o := range overdue {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s pending %s (deadline %s)\n",
				o.Query.ID, o.Query.Priority, o.Elapsed.Round(time.Minute), o.SLA)
		}
		return nil
	},
}

var queryHistoryCmd = &cobra.Command{
	Use:   "history <user-id>",
	Short: "Show alert deliveries for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		deliveries, err := a.monitor.History(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(deliveries)
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.AddCommand(queryStoreCmd, querySubscribeCmd, queryRescanCmd, queryResolveCmd, queryListCmd, queryOverdueCmd, queryHistoryCmd)

	queryStoreCmd.Flags().StringVar(&userID, "user", "", "submitting user, subscribed to alerts")
	queryStoreCmd.Flags().Float64Var(&urgency, "urgency", 0, "urgency hint in [0,1]")
	queryStoreCmd.Flags().StringVar(&contentType, "type", "", "content type")

	querySubscribeCmd.Flags().StringSliceVar(&queryChannels, "channels", []string{"email"}, "channels: email, sms, push, webhook, in_app")

	queryRescanCmd.Flags().StringVar(&rescanSource, "source", "", "where the content was observed")

	queryListCmd.Flags().StringVar(&queryStatus, "status", "", "filter by status")
	queryListCmd.Flags().StringVar(&userID, "user", "", "filter by user")
	queryListCmd.Flags().IntVar(&queryLimit, "limit", 0, "maximum number of queries")
}
