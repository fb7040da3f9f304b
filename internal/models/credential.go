package models

import "time"

// Credential is a stored secret used by one or more connectors. The shape of
// CredentialJSON depends on the source; the backend treats it as opaque.
type Credential struct {
	ID             int            `json:"id"`
	CredentialJSON map[string]any `json:"credential_json"`
	UserID         *string        `json:"user_id"`
	AdminPublic    bool           `json:"admin_public"`
	TimeCreated    time.Time      `json:"time_created"`
	TimeUpdated    time.Time      `json:"time_updated"`
}

// CredentialBase is the payload used to create a credential.
type CredentialBase struct {
	CredentialJSON map[string]any `json:"credential_json"`
	AdminPublic    bool           `json:"admin_public"`
}

// ZendeskCredentialJSON is the credential_json layout for Zendesk.
type ZendeskCredentialJSON struct {
	Subdomain string `json:"zendesk_subdomain"`
	Email     string `json:"zendesk_email"`
	Token     string `json:"zendesk_token"`
}

// Map converts the typed credential into the opaque backend form.
func (z ZendeskCredentialJSON) Map() map[string]any {
	return map[string]any{
		"zendesk_subdomain": z.Subdomain,
		"zendesk_email":     z.Email,
		"zendesk_token":     z.Token,
	}
}

// StringField returns a string value from credential_json, or "" when the key
// is missing or not a string.
func (c Credential) StringField(key string) string {
	if c.CredentialJSON == nil {
		return ""
	}
	s, _ := c.CredentialJSON[key].(string)
	return s
}

// Zendesk returns the typed Zendesk view of the credential.
func (c Credential) Zendesk() ZendeskCredentialJSON {
	return ZendeskCredentialJSON{
		Subdomain: c.StringField("zendesk_subdomain"),
		Email:     c.StringField("zendesk_email"),
		Token:     c.StringField("zendesk_token"),
	}
}

// IsZendesk reports whether the credential carries a Zendesk user email.
func (c Credential) IsZendesk() bool {
	return c.StringField("zendesk_email") != ""
}
