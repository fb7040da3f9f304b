package page

import (
	"regexp"
	"strings"

	"github.com/deskindex/deskindex/internal/models"
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// CredentialForm is the Step 1 form input.
type CredentialForm struct {
	Subdomain string `json:"zendesk_subdomain"`
	Email     string `json:"zendesk_email"`
	Token     string `json:"zendesk_token"`
}

// Normalize trims the fields and reduces the subdomain to its bare label, so
// "https://acme.zendesk.com/" becomes "acme".
func (f CredentialForm) Normalize(baseDomain string) CredentialForm {
	sub := strings.ToLower(strings.TrimSpace(f.Subdomain))
	sub = strings.TrimPrefix(sub, "https://")
	sub = strings.TrimPrefix(sub, "http://")
	if i := strings.IndexByte(sub, '/'); i >= 0 {
		sub = sub[:i]
	}
	if baseDomain != "" {
		sub = strings.TrimSuffix(sub, "."+baseDomain)
	}

	return CredentialForm{
		Subdomain: sub,
		Email:     strings.TrimSpace(f.Email),
		Token:     strings.TrimSpace(f.Token),
	}
}

// Validate checks a normalized form.
func (f CredentialForm) Validate() error {
	fields := map[string]string{}
	switch {
	case f.Subdomain == "":
		fields[FieldSubdomain] = "Please enter the subdomain for your Zendesk instance"
	case !subdomainPattern.MatchString(f.Subdomain):
		fields[FieldSubdomain] = "Subdomain may only contain letters, digits and hyphens"
	}
	if f.Email == "" {
		fields[FieldEmail] = "Please enter your user email to user with the token"
	}
	if f.Token == "" {
		fields[FieldToken] = "Please enter your Zendesk API token"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Credential converts the form into the backend credential payload.
func (f CredentialForm) Credential() models.ZendeskCredentialJSON {
	return models.ZendeskCredentialJSON{
		Subdomain: f.Subdomain,
		Email:     f.Email,
		Token:     f.Token,
	}
}
