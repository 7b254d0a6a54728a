// internal/application/compliance/summary.go
//
// Tenant-level compliance dashboard: level distribution, average score, and
// staleness. Backed by the persisted scores and cached briefly because the
// admin UI polls it.

package compliance

import (
	"context"
	"fmt"
	"time"

	domcompliance "github.com/fileready/fileready/internal/domain/compliance"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/pkg/types/common"
)

// staleAfter marks a score stale when it has not been recomputed within
// this window; the daily refresh should keep everything fresher than that.
const staleAfter = 26 * time.Hour

// summaryCacheTTL bounds dashboard staleness from caching.
const summaryCacheTTL = 60 * time.Second

// CachePort is the minimal cache interface the summary service needs.
type CachePort interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Dashboard summarizes a tenant's compliance posture.
type Dashboard struct {
	TenantID     common.TenantID           `json:"tenant_id"`
	GeneratedAt  time.Time                 `json:"generated_at"`
	TotalClients int                       `json:"total_clients"`
	ByLevel      map[domcompliance.Level]int `json:"by_level"`
	AverageScore float64                   `json:"average_score"`
	StaleScores  int                       `json:"stale_scores"`
}

// SummaryService produces tenant dashboards.
type SummaryService interface {
	GetDashboard(ctx context.Context, tenantID common.TenantID) (*Dashboard, error)
}

type summaryService struct {
	scores domcompliance.ScoreRepository
	cache  CachePort
	logger logging.Logger
	now    func() time.Time
}

// NewSummaryService constructs the dashboard service. cache may be nil.
func NewSummaryService(scores domcompliance.ScoreRepository, cache CachePort, logger logging.Logger, now func() time.Time) SummaryService {
	if now == nil {
		now = time.Now
	}
	return &summaryService{scores: scores, cache: cache, logger: logger.Named("summary"), now: now}
}

func summaryCacheKey(tenantID common.TenantID) string {
	return fmt.Sprintf("dashboard:%s", tenantID)
}

func (s *summaryService) GetDashboard(ctx context.Context, tenantID common.TenantID) (*Dashboard, error) {
	if s.cache != nil {
		var cached Dashboard
		if err := s.cache.Get(ctx, summaryCacheKey(tenantID), &cached); err == nil {
			return &cached, nil
		}
	}

	scores, err := s.scores.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	d := &Dashboard{
		TenantID:     tenantID,
		GeneratedAt:  now,
		TotalClients: len(scores),
		ByLevel: map[domcompliance.Level]int{
			domcompliance.LevelGreen: 0,
			domcompliance.LevelAmber: 0,
			domcompliance.LevelRed:   0,
		},
	}

	var sum int
	for _, sc := range scores {
		d.ByLevel[sc.Level]++
		sum += sc.ScoreValue
		if now.Sub(sc.LastCalculatedAt) > staleAfter {
			d.StaleScores++
		}
	}
	if len(scores) > 0 {
		d.AverageScore = float64(sum) / float64(len(scores))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, summaryCacheKey(tenantID), d, summaryCacheTTL); err != nil {
			s.logger.Debug("dashboard cache write failed", logging.Err(err))
		}
	}
	return d, nil
}
