package models

import "time"

// ConnectorBase is the payload used to create or update a connector.
type ConnectorBase struct {
	Name                    string         `json:"name"`
	Source                  DocumentSource `json:"source"`
	InputType               InputType      `json:"input_type"`
	ConnectorSpecificConfig map[string]any `json:"connector_specific_config"`
	RefreshFreq             *int           `json:"refresh_freq"`
	Disabled                bool           `json:"disabled"`
}

// Connector is a configured polling job against an external data source.
type Connector struct {
	ID                      int            `json:"id"`
	Name                    string         `json:"name"`
	Source                  DocumentSource `json:"source"`
	InputType               InputType      `json:"input_type"`
	ConnectorSpecificConfig map[string]any `json:"connector_specific_config"`
	RefreshFreq             *int           `json:"refresh_freq"`
	Disabled                bool           `json:"disabled"`
	CredentialIDs           []int          `json:"credential_ids"`
	TimeCreated             time.Time      `json:"time_created"`
	TimeUpdated             time.Time      `json:"time_updated"`
}

// Base returns the mutable part of the connector.
func (c Connector) Base() ConnectorBase {
	return ConnectorBase{
		Name:                    c.Name,
		Source:                  c.Source,
		InputType:               c.InputType,
		ConnectorSpecificConfig: c.ConnectorSpecificConfig,
		RefreshFreq:             c.RefreshFreq,
		Disabled:                c.Disabled,
	}
}

// DeletionAttempt tracks a scheduled removal of a connector/credential pair.
type DeletionAttempt struct {
	Status      DeletionStatus `json:"status"`
	ErrorMsg    *string        `json:"error_msg"`
	TimeCreated time.Time      `json:"time_created"`
}

// DeletionStatus mirrors the index attempt lifecycle for deletions.
type DeletionStatus = IndexingStatus

// ConnectorIndexingStatus is one row of the backend's indexing status listing:
// a connector/credential pair together with its latest index attempt.
type ConnectorIndexingStatus struct {
	CCPairID        int              `json:"cc_pair_id"`
	Name            *string          `json:"name"`
	Connector       Connector        `json:"connector"`
	Credential      Credential       `json:"credential"`
	PublicDoc       bool             `json:"public_doc"`
	Owner           string           `json:"owner"`
	LastStatus      *IndexingStatus  `json:"last_status"`
	LastSuccess     *time.Time       `json:"last_success"`
	DocsIndexed     int              `json:"docs_indexed"`
	ErrorMsg        *string          `json:"error_msg"`
	IsDeletable     bool             `json:"is_deletable"`
	DeletionAttempt *DeletionAttempt `json:"deletion_attempt"`
}

// DisplayName is the cc pair name, falling back to the connector name.
func (s ConnectorIndexingStatus) DisplayName() string {
	if s.Name != nil && *s.Name != "" {
		return *s.Name
	}
	return s.Connector.Name
}

// Status returns the last indexing status, treating a missing value as not started.
func (s ConnectorIndexingStatus) Status() IndexingStatus {
	if s.LastStatus == nil {
		return IndexingStatusNotStarted
	}
	return *s.LastStatus
}

// FilterBySource returns the statuses whose connector pulls from source.
func FilterBySource(statuses []ConnectorIndexingStatus, source DocumentSource) []ConnectorIndexingStatus {
	filtered := make([]ConnectorIndexingStatus, 0, len(statuses))
	for _, s := range statuses {
		if s.Connector.Source == source {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
