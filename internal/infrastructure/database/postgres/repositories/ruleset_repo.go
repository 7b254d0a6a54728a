// internal/infrastructure/database/postgres/repositories/ruleset_repo.go
//
// Rule catalog reads. Rule conditions are stored as jsonb so new condition
// fields never need a schema migration.

package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/lib/pq"

	domclient "github.com/fileready/fileready/internal/domain/client"
	domcompliance "github.com/fileready/fileready/internal/domain/compliance"
	"github.com/fileready/fileready/internal/infrastructure/database/postgres"
	"github.com/fileready/fileready/internal/infrastructure/monitoring/logging"
	"github.com/fileready/fileready/pkg/errors"
	"github.com/fileready/fileready/pkg/types/common"
)

// RuleSetRepo implements compliance.RuleSetRepository.
type RuleSetRepo struct {
	db     *sql.DB
	logger logging.Logger
}

// NewRuleSetRepo constructs the repository.
func NewRuleSetRepo(conn *postgres.Connection, log logging.Logger) *RuleSetRepo {
	return &RuleSetRepo{db: conn.DB(), logger: log.Named("ruleset_repo")}
}

const ruleSetColumns = `id, tenant_id, name, version, active, client_types, created_at, updated_at`

func scanRuleSet(row interface{ Scan(...interface{}) error }) (*domcompliance.RuleSet, error) {
	var rs domcompliance.RuleSet
	var types pq.StringArray
	if err := row.Scan(&rs.ID, &rs.TenantID, &rs.Name, &rs.Version, &rs.Active,
		&types, &rs.CreatedAt, &rs.UpdatedAt); err != nil {
		return nil, err
	}
	for _, t := range types {
		rs.ClientTypes = append(rs.ClientTypes, domclient.ClientType(t))
	}
	return &rs, nil
}

// ListActive returns the tenant's active rule sets with their rules loaded.
func (r *RuleSetRepo) ListActive(ctx context.Context, tenantID common.TenantID) ([]*domcompliance.RuleSet, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+ruleSetColumns+`
		FROM rulesets
		WHERE tenant_id = $1 AND active
		ORDER BY name`, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list rule sets")
	}
	defer rows.Close()

	var sets []*domcompliance.RuleSet
	for rows.Next() {
		rs, err := scanRuleSet(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan rule set")
		}
		sets = append(sets, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate rule sets")
	}
	if err := r.attachRules(ctx, sets); err != nil {
		return nil, err
	}
	return sets, nil
}

// GetByID returns one rule set with its rules.
func (r *RuleSetRepo) GetByID(ctx context.Context, tenantID common.TenantID, id common.ID) (*domcompliance.RuleSet, error) {
	rs, err := scanRuleSet(r.db.QueryRowContext(ctx, `
		SELECT `+ruleSetColumns+`
		FROM rulesets
		WHERE tenant_id = $1 AND id = $2`, tenantID, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.Newf(errors.ErrCodeRuleSetNotFound, "rule set %s not found in tenant %s", id, tenantID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load rule set")
	}
	sets := []*domcompliance.RuleSet{rs}
	if err := r.attachRules(ctx, sets); err != nil {
		return nil, err
	}
	return rs, nil
}

// attachRules loads the rules of all given sets in one query.
func (r *RuleSetRepo) attachRules(ctx context.Context, sets []*domcompliance.RuleSet) error {
	if len(sets) == 0 {
		return nil
	}
	byID := make(map[common.ID]*domcompliance.RuleSet, len(sets))
	ids := make([]string, 0, len(sets))
	for _, rs := range sets {
		byID[rs.ID] = rs
		ids = append(ids, rs.ID.String())
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, rule_set_id, type, condition, weight
		FROM rules
		WHERE rule_set_id = ANY($1)
		ORDER BY rule_set_id, id`, pq.Array(ids))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list rules")
	}
	defer rows.Close()

	for rows.Next() {
		var rule domcompliance.Rule
		var condJSON []byte
		if err := rows.Scan(&rule.ID, &rule.RuleSetID, &rule.Type, &condJSON, &rule.Weight); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan rule")
		}
		if len(condJSON) > 0 {
			if err := json.Unmarshal(condJSON, &rule.Condition); err != nil {
				return errors.Wrapf(err, errors.ErrCodeSerialization, "rule %s: malformed condition", rule.ID)
			}
		}
		if rs, ok := byID[rule.RuleSetID]; ok {
			rs.Rules = append(rs.Rules, &rule)
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate rules")
	}
	return nil
}

var _ domcompliance.RuleSetRepository = (*RuleSetRepo)(nil)
