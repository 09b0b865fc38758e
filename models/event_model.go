package models

type EventType string

// Broker channel names. Each kind travels on the channel of the same name.
const (
	EventFileUploaded   EventType = "FILE_UPLOADED"
	EventFileProcessing EventType = "FILE_PROCESSING"
	EventFileProcessed  EventType = "FILE_PROCESSED"
	EventFileError      EventType = "FILE_ERROR"
)

var AllEventTypes = []EventType{
	EventFileUploaded,
	EventFileProcessing,
	EventFileProcessed,
	EventFileError,
}

// Event is implemented by every payload kind.
type Event interface {
	Kind() EventType
	EventFileID() string
}

type FileMetadata struct {
	OriginalName string `json:"originalName"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
}

type FileUploadedEvent struct {
	FileID   string       `json:"fileId"`
	Path     string       `json:"path"`
	Metadata FileMetadata `json:"metadata"`
}

type FileProcessingEvent struct {
	FileID      string `json:"fileId"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	CurrentLine *int   `json:"currentLine,omitempty"`
	TotalLines  *int   `json:"totalLines,omitempty"`
}

type FileProcessedEvent struct {
	FileID string           `json:"fileId"`
	Result ProcessingResult `json:"result"`
}

type FileErrorEvent struct {
	FileID string `json:"fileId"`
	Error  string `json:"error"`
}

func (FileUploadedEvent) Kind() EventType   { return EventFileUploaded }
func (FileProcessingEvent) Kind() EventType { return EventFileProcessing }
func (FileProcessedEvent) Kind() EventType  { return EventFileProcessed }
func (FileErrorEvent) Kind() EventType      { return EventFileError }

func (e FileUploadedEvent) EventFileID() string   { return e.FileID }
func (e FileProcessingEvent) EventFileID() string { return e.FileID }
func (e FileProcessedEvent) EventFileID() string  { return e.FileID }
func (e FileErrorEvent) EventFileID() string      { return e.FileID }

// StreamEvent is the body of one push frame sent to clients.
type StreamEvent struct {
	Type EventType `json:"type"`
	Data Event     `json:"data"`
}
