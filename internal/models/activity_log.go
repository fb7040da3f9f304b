package models

import "time"

// ActivityType represents the type of admin activity being logged.
type ActivityType string

const (
	ActivityTypeCredentialCreated          ActivityType = "credential_created"
	ActivityTypeCredentialDeleted          ActivityType = "credential_deleted"
	ActivityTypeCredentialDeleteBlocked    ActivityType = "credential_delete_blocked"
	ActivityTypeConnectorCreated           ActivityType = "connector_created"
	ActivityTypeCredentialLinked           ActivityType = "credential_linked"
	ActivityTypeConnectorToggled           ActivityType = "connector_toggled"
	ActivityTypeConnectorDeletionScheduled ActivityType = "connector_deletion_scheduled"
	ActivityTypeConnectorLinkFailed        ActivityType = "connector_link_failed"
)

// ActivityLog represents a logged admin action.
type ActivityLog struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	ActivityType ActivityType   `json:"activity_type"`
	Source       DocumentSource `json:"source,omitempty"`
	Actor        string         `json:"actor,omitempty"`
	Message      string         `json:"message"`
	Details      map[string]any `json:"details,omitempty"`
}
