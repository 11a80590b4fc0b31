package plugin

import "github.com/quillcms/auth/oauth"

// GoogleOptions configures the Google preset.
type GoogleOptions struct {
	ClientID     string
	ClientSecret string

	// UserMapper overrides the default given_name/family_name mapping.
	UserMapper oauth.UserMapper
}

// Google returns a strategy for Google sign-in. The default mapper copies
// the profile's given and family names onto firstName/lastName.
func Google(opts GoogleOptions) *oauth.Strategy {
	mapper := opts.UserMapper
	if mapper == nil {
		mapper = googleMapper
	}
	return &oauth.Strategy{
		Name:         "google",
		IssuerURL:    "https://accounts.google.com",
		ClientID:     opts.ClientID,
		ClientSecret: oauth.ClientSecret(opts.ClientSecret),
		Scopes:       []string{"openid", "email", "profile"},
		UserMapper:   mapper,
	}
}

func googleMapper(profile map[string]interface{}) (map[string]interface{}, error) {
	return map[string]interface{}{
		"firstName": profile["given_name"],
		"lastName":  profile["family_name"],
	}, nil
}
