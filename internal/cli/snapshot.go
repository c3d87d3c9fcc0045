package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/eislager/eislager-pro/sdk"
)

// Analytics endpoints read by snapshot.
const (
	kpisPath      = "/api/v1/analytics/kpis"
	chartsPath    = "/api/v1/analytics/charts"
	dashboardPath = "/api/v1/analytics/dashboard"
	analyticsPath = "/api/v1/analytics"
)

// Snapshot is the combined view of the analytics service.
type Snapshot struct {
	KPIs      sdk.KPIs      `json:"kpis"`
	Charts    sdk.ChartData `json:"charts"`
	Dashboard sdk.Dashboard `json:"dashboard"`
	Analytics sdk.Analytics `json:"analytics"`
}

// fetchSnapshot reads the four analytics aggregates concurrently. The first
// failure cancels the others.
func fetchSnapshot(ctx context.Context, client sdk.Client) (*Snapshot, error) {
	var s Snapshot
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		s.KPIs, err = sdk.NewTypedClient[sdk.KPIs](client).Get(ctx, kpisPath)
		return err
	})
	g.Go(func() (err error) {
		s.Charts, err = sdk.NewTypedClient[sdk.ChartData](client).Get(ctx, chartsPath)
		return err
	})
	g.Go(func() (err error) {
		s.Dashboard, err = sdk.NewTypedClient[sdk.Dashboard](client).Get(ctx, dashboardPath)
		return err
	})
	g.Go(func() (err error) {
		s.Analytics, err = sdk.NewTypedClient[sdk.Analytics](client).Get(ctx, analyticsPath)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (a *app) snapshotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Print KPIs, charts, dashboard and analytics in one view",
		Args:  cobra.NoArgs,
		RunE: a.withServices(func(cmd *cobra.Command, args []string, services *sdk.Services) error {
			client := services.Client(sdk.ServiceAnalytics)
			if client == nil {
				return fmt.Errorf("%w: analytics service is not configured", ErrConfig)
			}

			s, err := fetchSnapshot(cmd.Context(), client)
			if err != nil {
				return a.fail(cmd.OutOrStdout(), err)
			}
			if a.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), s)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "period\t%s\n", s.KPIs.Period)
			fmt.Fprintf(tw, "revenue\t%.2f\t%+.1f%%\n", s.KPIs.Revenue, s.KPIs.RevenueGrowth)
			fmt.Fprintf(tw, "orders\t%d\t%+.1f%%\n", s.KPIs.Orders, s.KPIs.OrdersGrowth)
			fmt.Fprintf(tw, "customers\t%d\t%+.1f%%\n", s.KPIs.Customers, s.KPIs.CustomersGrowth)
			fmt.Fprintf(tw, "avg order\t%.2f\n", s.KPIs.AverageOrderValue)
			fmt.Fprintf(tw, "conversion\t%.1f%%\n", s.Analytics.ConversionRate*100)
			fmt.Fprintf(tw, "recent orders\t%d\n", len(s.Dashboard.RecentOrders))
			fmt.Fprintf(tw, "alerts\t%d\n", len(s.Dashboard.Alerts))
			fmt.Fprintf(tw, "chart series\t%d\n", len(s.Charts.Datasets))
			for _, f := range s.Analytics.TopFlavors {
				fmt.Fprintf(tw, "  %s\t%d units\t%.2f\n", f.Name, f.UnitsSold, f.Revenue)
			}
			return tw.Flush()
		}),
	}
}
