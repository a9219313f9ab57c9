package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"citysafe/pkg/config"
	"citysafe/pkg/logger"
	"citysafe/pkg/media"
	"citysafe/pkg/models"
	"citysafe/pkg/store"
)

// DefaultPeriod is how long closed records are kept when the config
// names no period.
const DefaultPeriod = 720 * time.Hour // 30 days

var (
	storedEff   *config.EffectiveConfigResult
	storedMedia *media.Store
)

// SetEffectiveConfig stores the effective config so admin triggers and
// tests can invoke retention runs on-demand.
func SetEffectiveConfig(eff config.EffectiveConfigResult, ms *media.Store) {
	storedEff = &eff
	storedMedia = ms
}

// RunImmediate triggers a single retention sweep using the stored
// effective config.
func RunImmediate() error {
	if storedEff == nil {
		return fmt.Errorf("no effective config registered for retention run")
	}
	return runOnce(context.Background(), *storedEff, storedMedia)
}

// Start starts the retention scheduler if enabled. Returns a cancel func.
func Start(ctx context.Context, eff config.EffectiveConfigResult, ms *media.Store) (context.CancelFunc, error) {
	ret := eff.Config.Retention
	if !ret.Enabled {
		logger.Info("retention_disabled")
		return func() {}, nil
	}

	cronExpr := ret.Cron
	if cronExpr == "" {
		cronExpr = "0 2 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("retention_invalid_cron", "cron", ret.Cron)
		return nil, fmt.Errorf("invalid retention cron expression: %s", ret.Cron)
	}

	logger.Info("retention_enabled", "cron", cronExpr, "period", ret.Period)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, eff, ms, cronExpr)
	return cancel, nil
}

// runScheduler computes the next tick for the cron expression with
// gronx and sleeps until then.
func runScheduler(ctx context.Context, eff config.EffectiveConfigResult, ms *media.Store, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("retention_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		}

		if err := runOnce(ctx, eff, ms); err != nil {
			logger.Error("retention_run_error", "error", err)
		}
	}
}

// runOnce purges records whose terminal state is older than the
// retention period: closed SOS alerts, handled reports, soft-deleted
// messages and media blobs no live message references.
func runOnce(ctx context.Context, eff config.EffectiveConfigResult, ms *media.Store) error {
	period := DefaultPeriod
	if p := eff.Config.Retention.Period; p != "" {
		d, err := time.ParseDuration(p)
		if err != nil {
			return fmt.Errorf("invalid retention period %q: %w", p, err)
		}
		period = d
	}
	dry := eff.Config.Retention.DryRun
	cutoff := time.Now().Add(-period).UnixNano()

	purgedSOS, err := sweepSOS(cutoff, dry)
	if err != nil {
		return err
	}
	purgedReports, err := sweepReports(cutoff, dry)
	if err != nil {
		return err
	}
	purgedMsgs, err := sweepMessages(ctx, cutoff, dry)
	if err != nil {
		return err
	}
	purgedBlobs := 0
	if ms != nil {
		purgedBlobs, err = sweepMedia(ms, cutoff, dry)
		if err != nil {
			return err
		}
	}

	logger.Info("retention_run_complete",
		"dry_run", dry,
		"sos", purgedSOS,
		"reports", purgedReports,
		"messages", purgedMsgs,
		"media", purgedBlobs)
	return nil
}

func sweepSOS(cutoff int64, dry bool) (int, error) {
	alerts, err := store.ListSOS("", "", 0)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range alerts {
		a := alerts[i]
		if !a.Terminal() || a.ResolvedTS == 0 || a.ResolvedTS > cutoff {
			continue
		}
		if !dry {
			if err := store.DeleteSOS(a); err != nil {
				return n, err
			}
		}
		n++
	}
	return n, nil
}

func sweepReports(cutoff int64, dry bool) (int, error) {
	reports, err := store.ListReports("")
	if err != nil {
		return 0, err
	}
	n := 0
	for _, rep := range reports {
		if rep.Status == models.ReportOpen || rep.ReviewedTS == 0 || rep.ReviewedTS > cutoff {
			continue
		}
		if !dry {
			if err := store.DeleteReport(rep.ID); err != nil {
				return n, err
			}
		}
		n++
	}
	return n, nil
}

func sweepMessages(ctx context.Context, cutoff int64, dry bool) (int, error) {
	channels, err := store.ListChannels()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, ch := range channels {
		select {
		case <-ctx.Done():
			return n, ctx.Err()
		default:
		}
		msgs, err := store.ListMessages(ch.City, 0, 0)
		if err != nil {
			return n, err
		}
		for _, m := range msgs {
			if !m.Deleted {
				continue
			}
			// age by deletion time; older tombstones without one fall
			// back to the creation timestamp
			aged := m.DeletedTS
			if aged == 0 {
				aged = m.TS
			}
			if aged > cutoff {
				continue
			}
			if !dry {
				if err := store.PurgeMessage(ch.City, m.ID); err != nil {
					return n, err
				}
			}
			n++
		}
	}
	return n, nil
}

// sweepMedia removes blobs older than the cutoff that no surviving
// message references.
func sweepMedia(ms *media.Store, cutoff int64, dry bool) (int, error) {
	ids, err := ms.ListIDs()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	referenced := map[string]struct{}{}
	channels, err := store.ListChannels()
	if err != nil {
		return 0, err
	}
	for _, ch := range channels {
		msgs, err := store.ListMessages(ch.City, 0, 0)
		if err != nil {
			return 0, err
		}
		for _, m := range msgs {
			if m.Attachment != nil && m.Attachment.URL != "" {
				referenced[mediaIDFromURL(m.Attachment.URL)] = struct{}{}
			}
		}
	}

	n := 0
	for _, id := range ids {
		if _, ok := referenced[id]; ok {
			continue
		}
		b, err := ms.Stat(id)
		if err != nil {
			continue
		}
		if b.CreatedTS > cutoff {
			continue
		}
		if !dry {
			if err := ms.Delete(id); err != nil {
				return n, err
			}
		}
		n++
	}
	return n, nil
}

// mediaIDFromURL extracts the blob ID from a /v1/media/<id> URL.
func mediaIDFromURL(u string) string {
	for i := len(u) - 1; i >= 0; i-- {
		if u[i] == '/' {
			return u[i+1:]
		}
	}
	return u
}
