package registry

// BaselineRecord is the durable metadata for one baseline image. Records are
// logically immutable once created and never carry pixel data; the JSON shape
// below is exactly what the durable store persists.
type BaselineRecord struct {
	ID                 string `json:"id"`
	DisplayName        string `json:"display_name"` // location + " - " + structure component, fixed at creation
	Location           string `json:"location"`
	StructureComponent string `json:"structure_component"`
	Filename           string `json:"filename"`
	FileSizeLabel      string `json:"file_size_label"`
	CaptureDate        string `json:"capture_date"` // calendar date, YYYY-MM-DD
	CameraDetails      string `json:"camera_details,omitempty"`
	Notes              string `json:"notes,omitempty"`
	CreatedAt          int64  `json:"created_at"` // Unix timestamp
}

// BaselineBinary holds the session-scoped image payload for one baseline. It
// lives only in process memory, keyed by the record id, and is gone after a
// restart; the registry never writes it to the durable store.
type BaselineBinary struct {
	PreviewDataURI string
	RawBlob        []byte
}

// BaselineView is the only shape handed to callers: the durable record joined
// with whatever binary happens to be resident. BinaryAvailable false means
// the baseline can be displayed and selected but not compared against.
type BaselineView struct {
	BaselineRecord
	BinaryAvailable bool   `json:"binary_available"`
	Persisted       bool   `json:"persisted"`
	PreviewDataURI  string `json:"preview_data_uri,omitempty"`
}

// BaselineCreateInput carries the fields of a baseline upload.
type BaselineCreateInput struct {
	Location           string
	StructureComponent string
	Filename           string
	CaptureDate        string
	CameraDetails      string
	Notes              string
	Blob               []byte
}

// storeEnvelope wraps the persisted record list with a schema version so the
// durable format can evolve without corrupting older data.
type storeEnvelope struct {
	Version   int              `json:"version"`
	Baselines []BaselineRecord `json:"baselines"`
}
