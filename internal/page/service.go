package page

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/deskindex/deskindex/internal/auth"
	"github.com/deskindex/deskindex/internal/backend"
	"github.com/deskindex/deskindex/internal/models"
	"github.com/deskindex/deskindex/internal/zendesk"
)

// Backend is the subset of the backend API the page needs.
type Backend interface {
	ListIndexingStatuses(ctx context.Context) ([]models.ConnectorIndexingStatus, error)
	ListCredentials(ctx context.Context) ([]models.Credential, error)
	CreateCredential(ctx context.Context, base models.CredentialBase) (*models.Credential, error)
	DeleteCredential(ctx context.Context, credentialID int) error
	CreateConnector(ctx context.Context, base models.ConnectorBase) (*models.Connector, error)
	UpdateConnector(ctx context.Context, connectorID int, base models.ConnectorBase) (*models.Connector, error)
	LinkCredential(ctx context.Context, connectorID, credentialID int, name string) error
	ScheduleDeletion(ctx context.Context, connectorID, credentialID int) error
}

// Verifier checks a credential against Zendesk before it is stored.
type Verifier interface {
	Verify(ctx context.Context, cred models.ZendeskCredentialJSON) (*zendesk.User, error)
}

// ActivityLogger records admin actions.
type ActivityLogger interface {
	Log(ctx context.Context, entry models.ActivityLog) error
}

// ActionRecorder counts actions by outcome.
type ActionRecorder interface {
	RecordAction(action, outcome string)
}

// Options configures a Service. Zero values pick defaults; a nil Verifier
// disables verification.
type Options struct {
	Verifier      Verifier
	Activity      ActivityLogger
	Metrics       ActionRecorder
	Logger        *slog.Logger
	BaseDomain    string
	CacheMaxAge   time.Duration
	FetchTimeout  time.Duration
	RenderTimeout time.Duration
}

const (
	defaultCacheMaxAge   = 2 * time.Second
	defaultFetchTimeout  = 10 * time.Second
	defaultRenderTimeout = 2 * time.Second
)

// Service loads the Zendesk connector page and performs its actions.
type Service struct {
	backend       Backend
	verifier      Verifier
	activity      ActivityLogger
	metrics       ActionRecorder
	logger        *slog.Logger
	baseDomain    string
	renderTimeout time.Duration

	statuses    *Resource[[]models.ConnectorIndexingStatus]
	credentials *Resource[[]models.Credential]
}

// NewService creates a page service on top of b.
func NewService(b Backend, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.CacheMaxAge <= 0 {
		opts.CacheMaxAge = defaultCacheMaxAge
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.RenderTimeout <= 0 {
		opts.RenderTimeout = defaultRenderTimeout
	}

	return &Service{
		backend:       b,
		verifier:      opts.Verifier,
		activity:      opts.Activity,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		baseDomain:    opts.BaseDomain,
		renderTimeout: opts.RenderTimeout,
		statuses:      NewResource(backend.PathIndexingStatus, opts.CacheMaxAge, opts.FetchTimeout, b.ListIndexingStatuses),
		credentials:   NewResource(backend.PathCredentials, opts.CacheMaxAge, opts.FetchTimeout, b.ListCredentials),
	}
}

// Load builds the page view, waiting at most the render timeout for data.
func (s *Service) Load(ctx context.Context) View {
	ctx, cancel := context.WithTimeout(ctx, s.renderTimeout)
	defer cancel()

	statuses, credentials := s.load(ctx, false)
	view := Build(statuses, credentials)
	if view.State == StateError {
		s.logger.Warn("Zendesk page failed to load",
			"statuses_error", statuses.Err,
			"credentials_error", credentials.Err)
	}
	return view
}

// Invalidate marks both listings stale.
func (s *Service) Invalidate() {
	s.statuses.Mutate()
	s.credentials.Mutate()
}

func (s *Service) load(ctx context.Context, force bool) (Snapshot[[]models.ConnectorIndexingStatus], Snapshot[[]models.Credential]) {
	var (
		statuses    Snapshot[[]models.ConnectorIndexingStatus]
		credentials Snapshot[[]models.Credential]
		g           errgroup.Group
	)
	g.Go(func() error {
		if force {
			statuses = s.statuses.Revalidate(ctx)
		} else {
			statuses = s.statuses.Load(ctx)
		}
		return nil
	})
	g.Go(func() error {
		if force {
			credentials = s.credentials.Revalidate(ctx)
		} else {
			credentials = s.credentials.Load(ctx)
		}
		return nil
	})
	_ = g.Wait()
	return statuses, credentials
}

// current returns fresh Zendesk statuses and the Zendesk credential, if any.
// Guards run against this rather than the render cache.
func (s *Service) current(ctx context.Context) ([]models.ConnectorIndexingStatus, *models.Credential, error) {
	statuses, credentials := s.load(ctx, true)
	if statuses.Loading || credentials.Loading {
		return nil, nil, unavailable(ctx.Err())
	}
	if statuses.Err != nil || !statuses.HasData {
		return nil, nil, unavailable(statuses.Err)
	}
	if credentials.Err != nil || !credentials.HasData {
		return nil, nil, unavailable(credentials.Err)
	}
	return models.FilterBySource(statuses.Data, models.DocumentSourceZendesk), zendeskCredential(credentials.Data), nil
}

func unavailable(cause error) error {
	if cause == nil {
		return ErrUnavailable
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, cause)
}

// SubmitCredential validates, verifies and stores a Zendesk credential.
func (s *Service) SubmitCredential(ctx context.Context, form CredentialForm) (cred *models.Credential, err error) {
	defer func() { s.observe("submit_credential", err) }()

	form = form.Normalize(s.baseDomain)
	if err := form.Validate(); err != nil {
		return nil, err
	}

	if s.verifier != nil {
		user, err := s.verifier.Verify(ctx, form.Credential())
		switch {
		case errors.Is(err, zendesk.ErrUnauthorized):
			return nil, &ValidationError{Fields: map[string]string{
				FieldToken: "Zendesk rejected this email and API token",
			}}
		case errors.Is(err, zendesk.ErrUnknownSubdomain):
			return nil, &ValidationError{Fields: map[string]string{
				FieldSubdomain: fmt.Sprintf("No Zendesk instance found at %s.%s", form.Subdomain, s.baseDomain),
			}}
		case err != nil:
			return nil, fmt.Errorf("failed to verify zendesk credential: %w", err)
		}
		if user != nil {
			s.logger.Debug("Zendesk credential verified", "subdomain", form.Subdomain, "zendesk_user_id", user.ID)
		}
	}

	cred, err = s.backend.CreateCredential(ctx, models.CredentialBase{
		CredentialJSON: form.Credential().Map(),
		AdminPublic:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create credential: %w", err)
	}
	s.Invalidate()

	s.record(ctx, models.ActivityTypeCredentialCreated, "Zendesk credential created", map[string]any{
		"credential_id": cred.ID,
		"subdomain":     form.Subdomain,
		"email":         form.Email,
	})
	return cred, nil
}

// CreateConnector creates the Zendesk connector and links the credential to it.
func (s *Service) CreateConnector(ctx context.Context) (connector *models.Connector, err error) {
	defer func() { s.observe("create_connector", err) }()

	statuses, cred, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrCredentialRequired
	}
	if len(statuses) > 0 {
		return nil, ErrConnectorExists
	}

	refreshFreq := int(RefreshFrequency / time.Second)
	connector, err = s.backend.CreateConnector(ctx, models.ConnectorBase{
		Name:                    ConnectorName,
		Source:                  models.DocumentSourceZendesk,
		InputType:               models.InputTypePoll,
		ConnectorSpecificConfig: map[string]any{},
		RefreshFreq:             &refreshFreq,
		Disabled:                false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}

	if err := s.backend.LinkCredential(ctx, connector.ID, cred.ID, ConnectorName); err != nil {
		s.statuses.Mutate()
		// The connector exists but has no cc pair, so it never shows up in
		// the status listing and must be removed on the backend by hand.
		s.logger.Warn("Zendesk connector left unlinked",
			"connector_id", connector.ID,
			"credential_id", cred.ID,
			"error", err)
		s.record(ctx, models.ActivityTypeConnectorLinkFailed, "Zendesk connector created but not linked", map[string]any{
			"connector_id":  connector.ID,
			"credential_id": cred.ID,
			"error":         err.Error(),
		})
		return nil, fmt.Errorf("failed to link credential to connector %d: %w", connector.ID, err)
	}
	s.statuses.Mutate()

	s.record(ctx, models.ActivityTypeConnectorCreated, "Zendesk connector created", map[string]any{
		"connector_id":  connector.ID,
		"credential_id": cred.ID,
		"refresh_freq":  refreshFreq,
	})
	return connector, nil
}

// DeleteCredential deletes the Zendesk credential. It refuses while any
// Zendesk connector exists and then makes no delete call.
func (s *Service) DeleteCredential(ctx context.Context) (err error) {
	defer func() { s.observe("delete_credential", err) }()

	statuses, cred, err := s.current(ctx)
	if err != nil {
		return err
	}
	if cred == nil {
		return ErrCredentialRequired
	}
	if len(statuses) > 0 {
		s.record(ctx, models.ActivityTypeCredentialDeleteBlocked, MsgCredentialInUse, map[string]any{
			"credential_id":   cred.ID,
			"connector_count": len(statuses),
		})
		return ErrCredentialInUse
	}

	if err := s.backend.DeleteCredential(ctx, cred.ID); err != nil {
		return fmt.Errorf("failed to delete credential %d: %w", cred.ID, err)
	}
	s.credentials.Mutate()

	s.record(ctx, models.ActivityTypeCredentialDeleted, "Zendesk credential deleted", map[string]any{
		"credential_id": cred.ID,
	})
	return nil
}

// LinkCredential links the current credential to an existing Zendesk connector.
func (s *Service) LinkCredential(ctx context.Context, connectorID int) (err error) {
	defer func() { s.observe("link_credential", err) }()

	statuses, cred, err := s.current(ctx)
	if err != nil {
		return err
	}
	if cred == nil {
		return ErrCredentialRequired
	}
	if _, ok := findStatus(statuses, connectorID, 0); !ok {
		return ErrConnectorNotFound
	}

	if err := s.backend.LinkCredential(ctx, connectorID, cred.ID, ConnectorName); err != nil {
		return fmt.Errorf("failed to link credential to connector %d: %w", connectorID, err)
	}
	s.statuses.Mutate()

	s.record(ctx, models.ActivityTypeCredentialLinked, "Zendesk credential linked", map[string]any{
		"connector_id":  connectorID,
		"credential_id": cred.ID,
	})
	return nil
}

// ToggleConnector enables a disabled connector or disables an enabled one.
func (s *Service) ToggleConnector(ctx context.Context, connectorID int) (connector *models.Connector, err error) {
	defer func() { s.observe("toggle_connector", err) }()

	statuses, _, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	status, ok := findStatus(statuses, connectorID, 0)
	if !ok {
		return nil, ErrConnectorNotFound
	}

	base := status.Connector.Base()
	base.Disabled = !base.Disabled
	connector, err = s.backend.UpdateConnector(ctx, connectorID, base)
	if err != nil {
		return nil, fmt.Errorf("failed to update connector %d: %w", connectorID, err)
	}
	s.statuses.Mutate()

	s.record(ctx, models.ActivityTypeConnectorToggled, "Zendesk connector toggled", map[string]any{
		"connector_id": connectorID,
		"disabled":     connector.Disabled,
	})
	return connector, nil
}

// DeleteConnector schedules deletion of a connector/credential pair. A
// credentialID of 0 selects the pair by connector alone.
func (s *Service) DeleteConnector(ctx context.Context, connectorID, credentialID int) (err error) {
	defer func() { s.observe("delete_connector", err) }()

	statuses, _, err := s.current(ctx)
	if err != nil {
		return err
	}
	status, ok := findStatus(statuses, connectorID, credentialID)
	if !ok {
		return ErrConnectorNotFound
	}
	if !status.IsDeletable {
		return ErrNotDeletable
	}

	if err := s.backend.ScheduleDeletion(ctx, connectorID, status.Credential.ID); err != nil {
		return fmt.Errorf("failed to schedule deletion of connector %d: %w", connectorID, err)
	}
	s.statuses.Mutate()

	s.record(ctx, models.ActivityTypeConnectorDeletionScheduled, "Zendesk connector deletion scheduled", map[string]any{
		"connector_id":  connectorID,
		"credential_id": status.Credential.ID,
		"cc_pair_id":    status.CCPairID,
	})
	return nil
}

func findStatus(statuses []models.ConnectorIndexingStatus, connectorID, credentialID int) (models.ConnectorIndexingStatus, bool) {
	for _, st := range statuses {
		if st.Connector.ID != connectorID {
			continue
		}
		if credentialID != 0 && st.Credential.ID != credentialID {
			continue
		}
		return st, true
	}
	return models.ConnectorIndexingStatus{}, false
}

// IsRejection reports whether err is a rule violation rather than a failure.
func IsRejection(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr) ||
		errors.Is(err, ErrCredentialInUse) ||
		errors.Is(err, ErrCredentialRequired) ||
		errors.Is(err, ErrConnectorExists) ||
		errors.Is(err, ErrConnectorNotFound) ||
		errors.Is(err, ErrNotDeletable)
}

func (s *Service) observe(action string, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case IsRejection(err):
		outcome = "rejected"
	default:
		outcome = "error"
		s.logger.Error("Zendesk page action failed", "action", action, "error", err)
	}
	if s.metrics != nil {
		s.metrics.RecordAction(action, outcome)
	}
}

func (s *Service) record(ctx context.Context, activityType models.ActivityType, message string, details map[string]any) {
	entry := models.ActivityLog{
		ID:           uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		ActivityType: activityType,
		Source:       models.DocumentSourceZendesk,
		Message:      message,
		Details:      details,
	}
	if actor, ok := auth.GetUserIDFromContext(ctx); ok {
		entry.Actor = actor
	}

	s.logger.Info(message, "activity_type", activityType, "actor", entry.Actor)
	if s.activity == nil {
		return
	}
	if err := s.activity.Log(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("Failed to record activity", "activity_type", activityType, "error", err)
	}
}
