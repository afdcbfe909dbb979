package lifecycle

import (
	"errors"
	"fmt"

	"rentshield/issue"
)

// Event is a lifecycle command outcome consumed by the state machine.
type Event string

const (
	EventReportFiled                Event = "REPORT_FILED"
	EventEvidenceProcessed          Event = "EVIDENCE_PROCESSED"
	EventLandlordResponded          Event = "LANDLORD_RESPONDED"
	EventVoteCast                   Event = "VOTE_CAST"
	EventQuorumReached              Event = "QUORUM_REACHED"
	EventTenantConfirmsCompliance   Event = "TENANT_CONFIRMS_COMPLIANCE"
	EventTenantReportsNonCompliance Event = "TENANT_REPORTS_NON_COMPLIANCE"
	EventAdminResolves              Event = "ADMIN_RESOLVES"
	EventAdminCloses                Event = "ADMIN_CLOSES"
)

// ErrInvalidTransition rejects an event submitted against a status it is not
// legal for. The command fails outright; retrying without new information
// cannot change legality, so callers surface it instead of retrying.
var ErrInvalidTransition = errors.New("lifecycle: invalid transition")

// transitions is the authoritative edge set. VoteCast keeps the issue in
// review; QuorumReached maps to the decisive target, with the tie case
// handled by QuorumTarget.
var transitions = map[issue.Status]map[Event]issue.Status{
	issue.StatusReported: {
		EventEvidenceProcessed: issue.StatusAwaitingLandlordResponse,
	},
	issue.StatusAwaitingLandlordResponse: {
		EventLandlordResponded: issue.StatusDaoReview,
	},
	issue.StatusDaoReview: {
		EventVoteCast:      issue.StatusDaoReview,
		EventQuorumReached: issue.StatusDaoVerdict,
	},
	issue.StatusDaoVerdict: {
		EventTenantConfirmsCompliance:   issue.StatusResolved,
		EventTenantReportsNonCompliance: issue.StatusEscalatedToAdmin,
	},
	issue.StatusEscalatedToAdmin: {
		EventAdminResolves: issue.StatusResolved,
		EventAdminCloses:   issue.StatusClosed,
	},
}

// Next returns the status an accepted event moves the issue to.
func Next(from issue.Status, ev Event) (issue.Status, error) {
	if to, ok := transitions[from][ev]; ok {
		return to, nil
	}
	return "", fmt.Errorf("%w: %s in %s", ErrInvalidTransition, ev, from)
}

// QuorumTarget maps a computed verdict to its post-quorum status. A decisive
// verdict moves the issue to DaoVerdict; NoQuorum escalates straight to
// admin because no side prevailed and there is no verdict for the tenant to
// confirm or dispute.
func QuorumTarget(v issue.Verdict) issue.Status {
	if v == issue.VerdictNoQuorum {
		return issue.StatusEscalatedToAdmin
	}
	return issue.StatusDaoVerdict
}
