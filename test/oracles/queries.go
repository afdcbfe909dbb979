package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_one_vote_per_juror",
			SQL: `SELECT issue_id, juror_id, COUNT(*) FROM votes
                  GROUP BY issue_id, juror_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O2_single_quorum_event",
			SQL: `SELECT issue_id, COUNT(*) FROM timeline_events
                  WHERE type = 'QUORUM_REACHED'
                  GROUP BY issue_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O3_verdict_matches_status",
			SQL: `SELECT id, status, verdict FROM issues
                  WHERE (status IN ('reported','awaiting_landlord_response','dao_review') AND verdict IS NOT NULL)
                     OR (status = 'dao_verdict' AND verdict IS NULL)`,
		},
		{
			Name: "O4_no_votes_before_review",
			SQL: `SELECT v.issue_id, v.juror_id FROM votes v
                  JOIN issues i ON i.id = v.issue_id
                  WHERE i.status IN ('reported','awaiting_landlord_response')`,
		},
		{
			Name: "O5_quorum_event_backed_by_votes",
			SQL: `SELECT e.issue_id FROM timeline_events e
                  WHERE e.type = 'QUORUM_REACHED'
                    AND (SELECT COUNT(*) FROM votes v WHERE v.issue_id = e.issue_id)
                        < (e.payload->>'total')::int`,
		},
		{
			Name: "O6_single_landlord_response",
			SQL: `SELECT issue_id, COUNT(*) FROM landlord_responses
                  GROUP BY issue_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O7_concluded_issue_keeps_verdict",
			SQL: `SELECT id, status FROM issues
                  WHERE status = 'dao_verdict'
                    AND verdict NOT IN ('favor_tenant','favor_landlord')`,
		},
		{
			Name: "O8_outbox_not_stuck",
			SQL: `SELECT id, topic FROM outbox
                  WHERE status IN ('pending', 'claimed') AND now() - created_at > interval '5 minutes'`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
