package authz

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// Actions on the issue object, one per lifecycle command plus reads.
const (
	ObjectIssue    = "issue"
	ObjectVotes    = "votes"
	ObjectProperty = "property"

	ActionFile                = "file"
	ActionRespond             = "respond"
	ActionVote                = "vote"
	ActionConfirmCompliance   = "confirm_compliance"
	ActionReportNonCompliance = "report_non_compliance"
	ActionResolve             = "resolve"
	ActionClose               = "close"
	ActionRead                = "read"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

// policies maps each platform role to the commands it may issue. The
// lifecycle service still enforces per-issue ownership; this layer only
// answers "may this role ever do this".
var policies = [][3]string{
	{"role:tenant", ObjectIssue, ActionFile},
	{"role:tenant", ObjectIssue, ActionConfirmCompliance},
	{"role:tenant", ObjectIssue, ActionReportNonCompliance},
	{"role:tenant", ObjectIssue, ActionRead},
	{"role:landlord", ObjectIssue, ActionRespond},
	{"role:landlord", ObjectIssue, ActionRead},
	{"role:juror", ObjectIssue, ActionVote},
	{"role:juror", ObjectIssue, ActionRead},
	{"role:admin", ObjectIssue, ActionResolve},
	{"role:admin", ObjectIssue, ActionClose},
	{"role:admin", ObjectIssue, ActionRead},
	{"role:admin", ObjectVotes, ActionRead},
	{"role:tenant", ObjectVotes, ActionRead},
	{"role:landlord", ObjectVotes, ActionRead},
	{"role:juror", ObjectVotes, ActionRead},
	{"role:landlord", ObjectProperty, ActionRead},
	{"role:admin", ObjectProperty, ActionRead},
}

type Authorizer struct {
	enforcer *casbin.Enforcer
}

func NewAuthorizer() (*Authorizer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("authz: parse model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("authz: new enforcer: %w", err)
	}
	for _, p := range policies {
		if _, err := enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			return nil, fmt.Errorf("authz: add policy: %w", err)
		}
	}
	return &Authorizer{enforcer: enforcer}, nil
}

// Subject normalises a role slug to the policy subject form.
func Subject(roleSlug string) string {
	roleSlug = strings.TrimSpace(strings.ToLower(roleSlug))
	if roleSlug == "" {
		roleSlug = "anonymous"
	}
	return "role:" + roleSlug
}

// Authorize reports whether the role may perform the action on the object.
func (a *Authorizer) Authorize(roleSlug, object, action string) (bool, error) {
	ok, err := a.enforcer.Enforce(Subject(roleSlug), object, action)
	if err != nil {
		return false, fmt.Errorf("authz: enforce: %w", err)
	}
	return ok, nil
}
