package auth

import (
	"fmt"

	"go-kb-app/internal/logger"

	"github.com/casbin/casbin/v2"
)

// DefaultPolicies grant the admin role the whole admin area.
var DefaultPolicies = [][]string{
	{RoleAdmin, "/admin", "GET"},
	{RoleAdmin, "/admin/*", "^(GET|POST)$"},
}

// SeedDefaultPolicies ensures that the application has a baseline set of authorization rules.
// It checks if each default policy exists before adding it, making the operation idempotent
// and safe to run on every application start.
func SeedDefaultPolicies(e casbin.IEnforcer, log logger.Logger) {
	log.Info("Seeding default authorization policies...")
	for _, p := range DefaultPolicies {
		if has, _ := e.HasPolicy(p); !has {
			if _, err := e.AddPolicy(p); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add policy %v", p))
			}
		}
	}
	log.Info("Policy seeding complete.")
}

// GrantAdmin gives the account the admin role.
func GrantAdmin(e casbin.IEnforcer, username string) error {
	subject := UserSubject(username)
	has, err := e.HasRoleForUser(subject, RoleAdmin)
	if err != nil || has {
		return err
	}
	_, err = e.AddRoleForUser(subject, RoleAdmin)
	return err
}
