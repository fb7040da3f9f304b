package page

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrCredentialInUse is returned when deleting a credential that still
	// backs a Zendesk connector.
	ErrCredentialInUse = errors.New("credential is in use by a connector")
	// ErrCredentialRequired is returned by actions that need a Zendesk credential.
	ErrCredentialRequired = errors.New("zendesk credential required")
	// ErrConnectorExists is returned when creating a second Zendesk connector.
	ErrConnectorExists = errors.New("zendesk connector already exists")
	// ErrConnectorNotFound is returned when an action names an unknown cc pair.
	ErrConnectorNotFound = errors.New("zendesk connector not found")
	// ErrNotDeletable is returned when the backend does not allow deleting a pair yet.
	ErrNotDeletable = errors.New("connector is not deletable")
	// ErrUnavailable is returned when the listings needed by an action failed to load.
	ErrUnavailable = errors.New("connector data unavailable")
)

// Messages shown to the admin for rule violations.
const (
	MsgCredentialInUse    = "Must delete all connectors before deleting credentials"
	MsgCredentialRequired = "Please provide your Zendesk API details in Step 1 first"
	MsgConnectorExists    = "A Zendesk connector already exists"
	MsgConnectorNotFound  = "Connector not found"
	MsgNotDeletable       = "Disable the connector before deleting it"
)

// Form field names, shared with the HTML form and the JSON API.
const (
	FieldSubdomain = "zendesk_subdomain"
	FieldEmail     = "zendesk_email"
	FieldToken     = "zendesk_token"
)

// ValidationError carries per-field messages for the credential form.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid credential: " + strings.Join(parts, "; ")
}

// Message returns the admin-facing text for err, or "" when err is not one of
// the page's own rule violations.
func Message(err error) string {
	var verr *ValidationError
	switch {
	case errors.Is(err, ErrCredentialInUse):
		return MsgCredentialInUse
	case errors.Is(err, ErrCredentialRequired):
		return MsgCredentialRequired
	case errors.Is(err, ErrConnectorExists):
		return MsgConnectorExists
	case errors.Is(err, ErrConnectorNotFound):
		return MsgConnectorNotFound
	case errors.Is(err, ErrNotDeletable):
		return MsgNotDeletable
	case errors.Is(err, ErrUnavailable):
		return msgFailedToLoadStatus
	case errors.As(err, &verr):
		return "Please fix the highlighted fields"
	}
	return ""
}
