package plugin

import (
	"strings"

	"github.com/quillcms/auth/oauth"
)

// MidataOptions configures the MiData (Swiss scouting database) preset.
type MidataOptions struct {
	ClientID     string
	ClientSecret string

	// TestMode points the strategy at the public MiData staging instance.
	TestMode bool

	// UserMapper overrides the default name and role mapping.
	UserMapper oauth.UserMapper
}

// Midata returns a strategy for MiData sign-in. The with_roles scope makes
// the userinfo response carry the member's group roles; the default mapper
// derives a coarse role from them alongside the name fields.
func Midata(opts MidataOptions) *oauth.Strategy {
	issuer := "https://db.scout.ch"
	if opts.TestMode {
		issuer = "https://pbs.puzzle.ch"
	}
	mapper := opts.UserMapper
	if mapper == nil {
		mapper = midataMapper
	}
	return &oauth.Strategy{
		Name:         "midata",
		IssuerURL:    issuer,
		ClientID:     opts.ClientID,
		ClientSecret: oauth.ClientSecret(opts.ClientSecret),
		Scopes:       []string{"openid", "email", "profile", "with_roles"},
		UserMapper:   mapper,
	}
}

func midataMapper(profile map[string]interface{}) (map[string]interface{}, error) {
	role := "member"
	if roles, ok := profile["roles"].([]interface{}); ok {
		for _, r := range roles {
			m, ok := r.(map[string]interface{})
			if !ok {
				continue
			}
			name, _ := m["role_name"].(string)
			name = strings.ToLower(name)
			// German and French leader role names
			if strings.Contains(name, "leiter") || strings.Contains(name, "responsable") {
				role = "leader"
				break
			}
		}
	}
	return map[string]interface{}{
		"role":      role,
		"firstName": profile["given_name"],
		"lastName":  profile["family_name"],
	}, nil
}
