package handlers_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/heritagewatch/monitorbackend/handlers"
	"github.com/heritagewatch/monitorbackend/registry"
	"github.com/heritagewatch/monitorbackend/repository"
)

// memStore is a minimal in-memory durable store for handler tests.
type memStore struct {
	data map[string]string
}

func (s *memStore) Get(key string) (string, error) {
	value, ok := s.data[key]
	if !ok {
		return "", repository.ErrStoreKeyNotFound
	}
	return value, nil
}

func (s *memStore) Set(key, value string) error {
	s.data[key] = value
	return nil
}

func (s *memStore) UsedBytes() (int64, error) { return 0, nil }

func newBaselineRouter(t *testing.T) (*chi.Mux, *registry.Registry) {
	t.Helper()
	reg := registry.NewRegistry(&memStore{data: make(map[string]string)})
	handler := &handlers.BaselineHandler{Registry: reg}

	r := chi.NewRouter()
	r.Post("/api/baselines", handler.CreateBaseline)
	r.Get("/api/baselines", handler.ListBaselines)
	r.Get("/api/baselines/{baseline_id}", handler.GetBaseline)
	return r, reg
}

func newCreateRequest(t *testing.T, filename string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		_ = writer.WriteField(key, value)
	}
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		t.Fatalf("failed to build form file: %v", err)
	}
	_, _ = part.Write([]byte("fake image bytes"))
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/baselines", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestCreateBaseline(t *testing.T) {
	router, _ := newBaselineRouter(t)

	fields := map[string]string{
		"location":            "Main Hall",
		"structure_component": "North Wall",
		"notes":               "post-monsoon survey",
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newCreateRequest(t, "wall.jpg", fields))

	if rec.Code != http.StatusCreated {
		t.Fatalf("got status %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var view registry.BaselineView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode view: %v", err)
	}
	if view.DisplayName != "Main Hall - North Wall" {
		t.Errorf("unexpected display name: %q", view.DisplayName)
	}
	if !view.BinaryAvailable || !view.Persisted {
		t.Errorf("fresh baseline should be available and persisted: %+v", view)
	}
}

func TestCreateBaselineValidation(t *testing.T) {
	router, _ := newBaselineRouter(t)

	t.Run("missing location", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, newCreateRequest(t, "wall.jpg", map[string]string{"structure_component": "North Wall"}))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("got status %d, want 400", rec.Code)
		}
	})

	t.Run("unsupported file type", func(t *testing.T) {
		fields := map[string]string{"location": "Main Hall", "structure_component": "North Wall"}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, newCreateRequest(t, "wall.svg", fields))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("got status %d, want 400", rec.Code)
		}
	})

	t.Run("missing image", func(t *testing.T) {
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		_ = writer.WriteField("location", "Main Hall")
		_ = writer.WriteField("structure_component", "North Wall")
		_ = writer.Close()
		req := httptest.NewRequest(http.MethodPost, "/api/baselines", &body)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("got status %d, want 400", rec.Code)
		}
	})
}

func TestListBaselinesEmpty(t *testing.T) {
	router, _ := newBaselineRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/baselines", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}

	var views []registry.BaselineView
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("expected a JSON array, got %q: %v", rec.Body.String(), err)
	}
	if len(views) != 0 {
		t.Errorf("expected an empty list, got %d entries", len(views))
	}
}

func TestGetBaseline(t *testing.T) {
	router, reg := newBaselineRouter(t)

	saved, err := reg.Save(registry.BaselineCreateInput{
		Location:           "Main Hall",
		StructureComponent: "North Wall",
		Filename:           "wall.jpg",
		Blob:               []byte("payload"),
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/baselines/"+saved.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}

	var view registry.BaselineView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode view: %v", err)
	}
	if view.ID != saved.ID {
		t.Errorf("got baseline %q, want %q", view.ID, saved.ID)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/baselines/no-such-id", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("got status %d, want 404", rec.Code)
	}
}
