package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/facette/natsort"
	"github.com/google/uuid"

	"github.com/heritagewatch/monitorbackend/repository"
	"github.com/heritagewatch/monitorbackend/utils"
)

const (
	storeKey           = "baseline_registry"
	storeSchemaVersion = 1
)

// ErrBaselineNotFound is returned when no baseline exists with the given id.
var ErrBaselineNotFound = errors.New("baseline not found")

// ErrInvalidInput is returned when a baseline upload is missing its location
// or structure component.
var ErrInvalidInput = errors.New("location and structure component are required")

// Registry is the durable catalogue of baseline metadata plus the
// session-scoped binary cache. Metadata survives restarts via the durable
// store; binaries live only in the maps below and are never serialized.
// "baseline exists" and "baseline is comparison-ready" are independent facts:
// the former comes from records, the latter from binaries.
type Registry struct {
	store repository.RegistryStoreInterface

	mu          sync.RWMutex
	records     []BaselineRecord
	binaries    map[string]*BaselineBinary
	unpersisted map[string]bool // record ids whose last durable write failed
}

// NewRegistry creates a registry backed by the given durable store
func NewRegistry(store repository.RegistryStoreInterface) *Registry {
	return &Registry{
		store:       store,
		binaries:    make(map[string]*BaselineBinary),
		unpersisted: make(map[string]bool),
	}
}

// LoadFromDurableStore reads the persisted record list. Called once at
// startup; binaries are never reconstructed, so every loaded record starts
// with BinaryAvailable false.
func (r *Registry) LoadFromDurableStore() error {
	value, err := r.store.Get(storeKey)
	if err != nil {
		if errors.Is(err, repository.ErrStoreKeyNotFound) {
			return nil // first run, nothing persisted yet
		}
		return fmt.Errorf("failed to read baseline registry from durable store: %w", err)
	}

	var envelope storeEnvelope
	if err := json.Unmarshal([]byte(value), &envelope); err != nil {
		return fmt.Errorf("failed to decode baseline registry payload: %w", err)
	}
	if envelope.Version != storeSchemaVersion {
		log.Printf("WARNING: unsupported baseline registry schema version %d (want %d); starting with an empty registry", envelope.Version, storeSchemaVersion)
		return nil
	}

	r.mu.Lock()
	r.records = envelope.Baselines
	r.mu.Unlock()

	log.Printf("Loaded %d baseline record(s) from durable store", len(envelope.Baselines))
	return nil
}

// Save validates the upload, appends a new record, and caches the binary
// under the new id. A durable-store failure (quota or otherwise) does not
// fail the save: the record stays resident for the session and the returned
// view carries Persisted false.
func (r *Registry) Save(input BaselineCreateInput) (BaselineView, error) {
	if strings.TrimSpace(input.Location) == "" || strings.TrimSpace(input.StructureComponent) == "" {
		return BaselineView{}, ErrInvalidInput
	}

	now := time.Now()
	record := BaselineRecord{
		ID:                 uuid.NewString(),
		DisplayName:        input.Location + " - " + input.StructureComponent,
		Location:           input.Location,
		StructureComponent: input.StructureComponent,
		Filename:           input.Filename,
		FileSizeLabel:      utils.FormatFileSize(int64(len(input.Blob))),
		CaptureDate:        input.CaptureDate,
		CameraDetails:      input.CameraDetails,
		Notes:              input.Notes,
		CreatedAt:          now.Unix(),
	}
	r.applyCaptureDefaults(&record, input.Blob, now)

	r.mu.Lock()
	r.records = append(r.records, record)
	r.binaries[record.ID] = &BaselineBinary{RawBlob: input.Blob}
	r.mu.Unlock()

	if err := r.persist(); err != nil {
		if errors.Is(err, repository.ErrQuotaExceeded) {
			log.Printf("WARNING: baseline %s kept in memory only, durable store quota exceeded", record.ID)
		} else {
			log.Printf("WARNING: baseline %s kept in memory only, durable write failed: %v", record.ID, err)
		}
		r.mu.Lock()
		r.unpersisted[record.ID] = true
		r.mu.Unlock()
	}

	return r.viewFor(record), nil
}

// List returns all known baselines joined with whatever binaries are
// resident, in natural display-name order.
func (r *Registry) List() []BaselineView {
	r.mu.RLock()
	views := make([]BaselineView, 0, len(r.records))
	for _, record := range r.records {
		views = append(views, r.composeLocked(record))
	}
	r.mu.RUnlock()

	sort.SliceStable(views, func(i, j int) bool {
		return natsort.Compare(views[i].DisplayName, views[j].DisplayName)
	})
	return views
}

// Resolve looks up a single baseline by id
func (r *Registry) Resolve(id string) (BaselineView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, record := range r.records {
		if record.ID == id {
			return r.composeLocked(record), nil
		}
	}
	return BaselineView{}, ErrBaselineNotFound
}

// RawBlob returns the resident image payload for a baseline, if any. The
// second return is false when the binary was never supplied this session.
func (r *Registry) RawBlob(id string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	binary, ok := r.binaries[id]
	if !ok {
		return nil, false
	}
	return binary.RawBlob, true
}

// SetPreview attaches a display preview to a cached binary. Returns false
// when the baseline has no resident binary to attach to.
func (r *Registry) SetPreview(id, dataURI string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	binary, ok := r.binaries[id]
	if !ok {
		return false
	}
	binary.PreviewDataURI = dataURI
	return true
}

// persist rewrites the full record list under the fixed store key. The list
// itself is append-only; a successful write covers every record, so earlier
// quota casualties become durable too and their degraded flag is cleared.
func (r *Registry) persist() error {
	r.mu.RLock()
	envelope := storeEnvelope{
		Version:   storeSchemaVersion,
		Baselines: append([]BaselineRecord(nil), r.records...),
	}
	r.mu.RUnlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode baseline registry payload: %w", err)
	}
	if err := r.store.Set(storeKey, string(payload)); err != nil {
		return err
	}

	r.mu.Lock()
	r.unpersisted = make(map[string]bool)
	r.mu.Unlock()
	return nil
}

func (r *Registry) applyCaptureDefaults(record *BaselineRecord, blob []byte, now time.Time) {
	if record.CaptureDate != "" && record.CameraDetails != "" {
		return
	}

	meta, err := utils.GetCaptureMetadata(blob)
	if err != nil {
		meta = nil // no EXIF block, fall through to creation-time defaults
	}

	if record.CameraDetails == "" && meta != nil {
		record.CameraDetails = meta.CameraLabel()
	}
	if record.CaptureDate == "" {
		if meta != nil && meta.TakenAt != nil {
			record.CaptureDate = meta.TakenAt.Format("2006-01-02")
		} else {
			record.CaptureDate = now.Format("2006-01-02")
		}
	}
}

// composeLocked joins a record with its resident binary. Caller holds r.mu.
func (r *Registry) composeLocked(record BaselineRecord) BaselineView {
	view := BaselineView{
		BaselineRecord: record,
		Persisted:      !r.unpersisted[record.ID],
	}
	if binary, ok := r.binaries[record.ID]; ok {
		view.BinaryAvailable = true
		view.PreviewDataURI = binary.PreviewDataURI
	}
	return view
}

func (r *Registry) viewFor(record BaselineRecord) BaselineView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.composeLocked(record)
}
