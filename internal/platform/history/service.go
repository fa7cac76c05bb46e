package history

import (
	"context"
	"sort"
	"time"

	"github.com/mkuiper/bankboard/internal/ledger"
	"github.com/mkuiper/bankboard/internal/platform/fx"
	apperrors "github.com/mkuiper/bankboard/internal/shared/errors"
	"github.com/mkuiper/bankboard/pkg/logger"
)

// Converter resolves balances into the reporting currency.
type Converter interface {
	ReportingCurrency() string
	Convert(ctx context.Context, amount float64, currency string, date time.Time) fx.Conversion
}

// Service captures daily account snapshots and serves time-series reads.
type Service struct {
	accounts  AccountSource
	store     SnapshotStore
	converter Converter
	logger    *logger.Logger
}

// NewService creates a history service. Converter may be nil; snapshots are
// then stored without a reporting-currency view.
func NewService(accounts AccountSource, store SnapshotStore, converter Converter, log *logger.Logger) *Service {
	return &Service{
		accounts:  accounts,
		store:     store,
		converter: converter,
		logger:    log.WithField("component", "history"),
	}
}

// Snapshot captures every account's balance for today. Running it again on
// the same day overwrites today's rows instead of adding new ones.
func (s *Service) Snapshot(ctx context.Context) (int, error) {
	accounts, err := s.accounts.Accounts(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	day := now.Truncate(24 * time.Hour)

	snapshots := make([]Snapshot, 0, len(accounts))
	for _, account := range accounts {
		snap := Snapshot{
			SnapshotDate: day,
			AccountID:    account.ID,
			AccountName:  account.Description,
			Class:        account.Class,
			Balance:      account.Balance,
			Currency:     account.Currency,
			CapturedAt:   now,
		}
		if s.converter != nil && account.Currency != "" {
			conv := s.converter.Convert(ctx, account.Balance, account.Currency, day)
			if conv.Converted {
				snap.ConvertedBalance = conv.Value
				snap.FxRate = conv.Rate
			} else {
				s.logger.Warn("snapshot stored without conversion",
					"account_id", account.ID, "currency", account.Currency)
			}
		}
		snapshots = append(snapshots, snap)
	}

	if err := s.store.UpsertSnapshots(ctx, snapshots); err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeStoreWriteFailure, "failed to store snapshots")
	}

	s.logger.Info("snapshots captured", "date", day.Format("2006-01-02"), "accounts", len(snapshots))
	return len(snapshots), nil
}

// BalanceSeries returns per-day balance totals over the last `days` days,
// one point per stored day with all three classifications always present.
func (s *Service) BalanceSeries(ctx context.Context, days int) ([]SeriesPoint, error) {
	rows, err := s.store.BalanceSeries(ctx, days)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabase, "failed to read balance series")
	}
	return Rectangularize(rows), nil
}

// Breakdown returns the most recent snapshot day: per-account rows, the
// reporting-currency total, and how many rows lack a conversion.
func (s *Service) Breakdown(ctx context.Context) (*Breakdown, error) {
	snapshots, err := s.store.LatestSnapshots(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabase, "failed to read latest snapshots")
	}
	if len(snapshots) == 0 {
		return nil, apperrors.NotFound("snapshots")
	}

	missing, err := s.store.MissingConversionCount(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabase, "failed to count missing conversions")
	}

	breakdown := &Breakdown{
		Date:               snapshots[0].SnapshotDate.Format("2006-01-02"),
		Accounts:           snapshots,
		MissingConversions: missing,
	}
	for _, snap := range snapshots {
		if snap.ConvertedBalance != nil {
			breakdown.Total += *snap.ConvertedBalance
		} else {
			breakdown.Total += snap.Balance
		}
	}
	return breakdown, nil
}

// Rectangularize turns sparse (date, class) rows into one point per day
// with every classification filled, absent classes as 0.
func Rectangularize(rows []SeriesRow) []SeriesPoint {
	byDay := make(map[string]*SeriesPoint)
	for _, row := range rows {
		key := row.Date.UTC().Format("2006-01-02")
		point, ok := byDay[key]
		if !ok {
			point = &SeriesPoint{Date: key}
			byDay[key] = point
		}
		switch row.Class {
		case ledger.ClassSavings:
			point.Savings += row.Balance
		case ledger.ClassInvestment:
			point.Investment += row.Balance
		default:
			point.Checking += row.Balance
		}
		point.Total += row.Balance
	}

	points := make([]SeriesPoint, 0, len(byDay))
	for _, point := range byDay {
		points = append(points, *point)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}
