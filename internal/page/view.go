package page

import (
	"time"

	"github.com/deskindex/deskindex/internal/models"
)

// State is the top-level state of the Zendesk connector page.
type State string

const (
	StateLoading         State = "loading"
	StateError           State = "error"
	StateEnterCredential State = "enter_credential"
	StateManageConnector State = "manage_connector"
)

const (
	loadingText           = "Loading"
	msgFailedToLoadStatus = "Failed to load connectors"
	msgFailedToLoadCreds  = "Failed to load credentials"
)

// ConnectorName is used both for the connector and for its cc pair.
const ConnectorName = "ZendeskConnector"

// RefreshFrequency is how often the backend polls Zendesk for changes.
const RefreshFrequency = 10 * time.Minute

// CredentialSummary is the part of the Zendesk credential that is safe to show.
type CredentialSummary struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	Subdomain string `json:"subdomain"`
	TokenHint string `json:"token_hint"`
}

// StatusRow is one row of the connector status table.
type StatusRow struct {
	CCPairID          int                   `json:"cc_pair_id"`
	Name              string                `json:"name"`
	ConnectorID       int                   `json:"connector_id"`
	CredentialID      int                   `json:"credential_id"`
	CredentialEmail   string                `json:"credential_email"`
	Disabled          bool                  `json:"disabled"`
	Status            models.IndexingStatus `json:"status"`
	LastSuccess       *time.Time            `json:"last_success,omitempty"`
	DocsIndexed       int                   `json:"docs_indexed"`
	ErrorMsg          string                `json:"error_msg,omitempty"`
	IsDeletable       bool                  `json:"is_deletable"`
	DeletionScheduled bool                  `json:"deletion_scheduled"`
	RefreshFreq       int                   `json:"refresh_freq_seconds"`
}

// View is everything the page renders, derived from the two cached listings.
type View struct {
	State        State              `json:"state"`
	LoadingText  string             `json:"loading_text,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`
	Credential   *CredentialSummary `json:"credential,omitempty"`
	Statuses     []StatusRow        `json:"statuses"`

	ShowCredentialForm bool `json:"show_credential_form"`
	ShowStepOneNotice  bool `json:"show_step_one_notice"`
	ShowStatusTable    bool `json:"show_status_table"`
	ShowCreatePanel    bool `json:"show_create_panel"`
}

// Build derives the page state. Order matters: loading wins over errors, and
// a missing listing is reported as a failure even without an error value.
func Build(statuses Snapshot[[]models.ConnectorIndexingStatus], credentials Snapshot[[]models.Credential]) View {
	if (!statuses.HasData && statuses.Loading) || (!credentials.HasData && credentials.Loading) {
		return View{State: StateLoading, LoadingText: loadingText, Statuses: []StatusRow{}}
	}
	if statuses.Err != nil || !statuses.HasData {
		return View{State: StateError, ErrorMessage: msgFailedToLoadStatus, Statuses: []StatusRow{}}
	}
	if credentials.Err != nil || !credentials.HasData {
		return View{State: StateError, ErrorMessage: msgFailedToLoadCreds, Statuses: []StatusRow{}}
	}

	zendeskStatuses := models.FilterBySource(statuses.Data, models.DocumentSourceZendesk)
	rows := make([]StatusRow, 0, len(zendeskStatuses))
	for _, s := range zendeskStatuses {
		rows = append(rows, newStatusRow(s))
	}

	v := View{Statuses: rows}
	cred := zendeskCredential(credentials.Data)
	if cred == nil {
		v.State = StateEnterCredential
		v.ShowCredentialForm = true
		v.ShowStepOneNotice = true
		v.ShowStatusTable = len(rows) > 0
		return v
	}

	v.State = StateManageConnector
	v.Credential = Summarize(*cred)
	v.ShowStatusTable = len(rows) > 0
	v.ShowCreatePanel = len(rows) == 0
	return v
}

// zendeskCredential returns the first credential carrying a Zendesk email.
func zendeskCredential(credentials []models.Credential) *models.Credential {
	for i := range credentials {
		if credentials[i].IsZendesk() {
			return &credentials[i]
		}
	}
	return nil
}

// Summarize returns the displayable part of a Zendesk credential.
func Summarize(c models.Credential) *CredentialSummary {
	z := c.Zendesk()
	return &CredentialSummary{
		ID:        c.ID,
		Email:     z.Email,
		Subdomain: z.Subdomain,
		TokenHint: tokenHint(z.Token),
	}
}

func tokenHint(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}

func newStatusRow(s models.ConnectorIndexingStatus) StatusRow {
	row := StatusRow{
		CCPairID:          s.CCPairID,
		Name:              s.DisplayName(),
		ConnectorID:       s.Connector.ID,
		CredentialID:      s.Credential.ID,
		CredentialEmail:   s.Credential.StringField("zendesk_email"),
		Disabled:          s.Connector.Disabled,
		Status:            s.Status(),
		LastSuccess:       s.LastSuccess,
		DocsIndexed:       s.DocsIndexed,
		IsDeletable:       s.IsDeletable,
		DeletionScheduled: s.DeletionAttempt != nil,
	}
	if s.ErrorMsg != nil {
		row.ErrorMsg = *s.ErrorMsg
	}
	if s.Connector.RefreshFreq != nil {
		row.RefreshFreq = *s.Connector.RefreshFreq
	}
	return row
}
