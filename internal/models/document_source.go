package models

// DocumentSource identifies the external system a connector pulls from.
type DocumentSource string

const (
	DocumentSourceZendesk    DocumentSource = "zendesk"
	DocumentSourceConfluence DocumentSource = "confluence"
	DocumentSourceJira       DocumentSource = "jira"
	DocumentSourceSlack      DocumentSource = "slack"
	DocumentSourceWeb        DocumentSource = "web"
	DocumentSourceFile       DocumentSource = "file"
)

// InputType describes how a connector receives documents.
type InputType string

const (
	InputTypeLoadState InputType = "load_state"
	InputTypePoll      InputType = "poll"
	InputTypeEvent     InputType = "event"
)

// IndexingStatus is the outcome of the latest index attempt of a cc pair.
type IndexingStatus string

const (
	IndexingStatusNotStarted IndexingStatus = "not_started"
	IndexingStatusInProgress IndexingStatus = "in_progress"
	IndexingStatusSuccess    IndexingStatus = "success"
	IndexingStatusFailed     IndexingStatus = "failed"
)
