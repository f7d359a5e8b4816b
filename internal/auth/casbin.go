package auth

import (
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/util"
	sqlxadapter "github.com/memwey/casbin-sqlx-adapter"
)

// RoleAdmin is the role granted to administrator accounts.
const RoleAdmin = "admin"

// modelText is an RBAC model: a subject may act on an object when one of
// its roles has a policy whose path pattern (keyMatch2) and method pattern
// (regexMatch) both match.
const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
`

// NewModel parses the authorization model.
func NewModel() (model.Model, error) {
	return model.NewModelFromString(modelText)
}

// NewEnforcer creates a Casbin enforcer whose policies live in the
// casbin_rule table of the application database.
func NewEnforcer(driverName, dsn string) (*casbin.Enforcer, error) {
	m, err := NewModel()
	if err != nil {
		return nil, err
	}
	adapter := sqlxadapter.NewAdapterFromOptions(&sqlxadapter.AdapterOptions{
		DriverName:     driverName,
		DataSourceName: dsn,
		TableName:      "casbin_rule",
	})

	enforcer, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)

	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

// UserSubject is the Casbin subject for an account.
func UserSubject(username string) string {
	return "user:" + username
}
