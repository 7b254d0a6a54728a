// internal/infrastructure/database/postgres/repositories/score_repo.go
//
// Latest-score persistence. One row per (tenant, client), fully overwritten
// on every refresh; history is out of scope.

package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	domcompliance "github.com/fileready/fileready/internal/domain/compliance"
	"github.com/fileready/fileready/internal/infrastructure/database/postgres"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/pkg/errors"
	"github.com/fileready/fileready/pkg/types/common"
)

// ScoreRepo implements compliance.ScoreRepository.
type ScoreRepo struct {
	db     *sql.DB
	logger logging.Logger
}

// NewScoreRepo constructs the repository.
func NewScoreRepo(conn *postgres.Connection, log logging.Logger) *ScoreRepo {
	return &ScoreRepo{db: conn.DB(), logger: log.Named("score_repo")}
}

// Upsert creates or fully overwrites the (tenant, client) score row.
func (r *ScoreRepo) Upsert(ctx context.Context, score *domcompliance.Score) error {
	breakdown, err := json.Marshal(score.Breakdown)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal score breakdown")
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO compliance_scores (
			tenant_id, client_id, score_value, level,
			missing_count, expiring_count, overdue_filings_count,
			breakdown, last_calculated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (tenant_id, client_id) DO UPDATE SET
			score_value           = EXCLUDED.score_value,
			level                 = EXCLUDED.level,
			missing_count         = EXCLUDED.missing_count,
			expiring_count        = EXCLUDED.expiring_count,
			overdue_filings_count = EXCLUDED.overdue_filings_count,
			breakdown             = EXCLUDED.breakdown,
			last_calculated_at    = EXCLUDED.last_calculated_at`,
		score.TenantID, score.ClientID, score.ScoreValue, score.Level,
		score.MissingCount, score.ExpiringCount, score.OverdueFilings,
		breakdown, score.LastCalculatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert score")
	}
	return nil
}

const scoreColumns = `tenant_id, client_id, score_value, level,
	missing_count, expiring_count, overdue_filings_count, breakdown, last_calculated_at`

func scanScore(row interface{ Scan(...interface{}) error }) (*domcompliance.Score, error) {
	var s domcompliance.Score
	var breakdown []byte
	if err := row.Scan(&s.TenantID, &s.ClientID, &s.ScoreValue, &s.Level,
		&s.MissingCount, &s.ExpiringCount, &s.OverdueFilings,
		&breakdown, &s.LastCalculatedAt); err != nil {
		return nil, err
	}
	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &s.Breakdown); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "malformed score breakdown")
		}
	}
	return &s, nil
}

// Get returns the latest persisted score.
func (r *ScoreRepo) Get(ctx context.Context, tenantID common.TenantID, clientID common.ID) (*domcompliance.Score, error) {
	s, err := scanScore(r.db.QueryRowContext(ctx, `
		SELECT `+scoreColumns+`
		FROM compliance_scores
		WHERE tenant_id = $1 AND client_id = $2`, tenantID, clientID))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.Newf(errors.ErrCodeScoreNotFound, "no score for client %s in tenant %s", clientID, tenantID)
	}
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeSerialization) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load score")
	}
	return s, nil
}

// ListByTenant returns every persisted score of the tenant.
func (r *ScoreRepo) ListByTenant(ctx context.Context, tenantID common.TenantID) ([]*domcompliance.Score, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+scoreColumns+`
		FROM compliance_scores
		WHERE tenant_id = $1
		ORDER BY client_id`, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list scores")
	}
	defer rows.Close()

	var out []*domcompliance.Score
	for rows.Next() {
		s, err := scanScore(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan score")
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate scores")
	}
	return out, nil
}

var _ domcompliance.ScoreRepository = (*ScoreRepo)(nil)
