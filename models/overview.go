package models

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type AdminOverview struct {
	Accounts         int64            `json:"accounts"`
	Deployments      int64            `json:"deployments"`
	Connectors       int64            `json:"connectors"`
	ProofRecords     int64            `json:"proof_records"`
	VerdictCounts    map[string]int64 `json:"verdict_counts"`
	PendingRequests  int64            `json:"pending_access_requests"`
	EventIntakes     int64            `json:"event_intakes"`
	NotificationsDue map[string]int64 `json:"notifications"`
}

// GetAdminOverview runs the dashboard counts concurrently.
func GetAdminOverview(ctx context.Context) (*AdminOverview, error) {
	var overview AdminOverview
	g, gctx := errgroup.WithContext(ctx)

	count := func(model interface{}, dest *int64, cond string, args ...interface{}) func() error {
		return func() error {
			q := dbWith(gctx).Model(model)
			if cond != "" {
				q = q.Where(cond, args...)
			}
			return q.Count(dest).Error
		}
	}

	g.Go(count(&Account{}, &overview.Accounts, ""))
	g.Go(count(&Deployment{}, &overview.Deployments, ""))
	g.Go(count(&Connector{}, &overview.Connectors, ""))
	g.Go(count(&ProofRecord{}, &overview.ProofRecords, ""))
	g.Go(count(&EventIntake{}, &overview.EventIntakes, ""))
	g.Go(count(&AccessRequest{}, &overview.PendingRequests, "status = ?", AccessRequestStatusPending))
	g.Go(func() error {
		var rows []struct {
			Verdict string
			Count   int64
		}
		err := dbWith(gctx).Model(&ProofRecord{}).
			Select("verdict, COUNT(*) AS count").
			Group("verdict").
			Scan(&rows).Error
		if err != nil {
			return err
		}
		counts := map[string]int64{string(VerdictOK): 0, string(VerdictReview): 0, string(VerdictBlock): 0}
		for _, r := range rows {
			counts[r.Verdict] = r.Count
		}
		overview.VerdictCounts = counts
		return nil
	})
	g.Go(func() error {
		counts, err := NotificationStatusCounts(gctx)
		if err != nil {
			return err
		}
		overview.NotificationsDue = counts
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &overview, nil
}
