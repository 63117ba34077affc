package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"farmpulse-service/history"
	"farmpulse-service/models"
	"farmpulse-service/stubllm"
)

// fixedLLM returns a canned completion (or error) regardless of input.
type fixedLLM struct {
	response string
	err      error
}

func (f *fixedLLM) AnalyzeImage(ctx context.Context, imageData []byte) (string, error) {
	return f.response, f.err
}

func (f *fixedLLM) SourceName() string { return "fixed" }
func (f *fixedLLM) Configured() bool   { return true }

// fakeStore is an in-memory Store with switchable failure modes.
type fakeStore struct {
	records  []models.HistoryRecord
	failSave bool
	failList bool
}

func (f *fakeStore) SaveScan(ctx context.Context, record *models.HistoryRecord) error {
	if f.failSave {
		return errors.New("store unreachable")
	}
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeStore) ListScans(ctx context.Context, userID string) ([]models.HistoryRecord, error) {
	if f.failList {
		return nil, errors.New("store unreachable")
	}
	var out []models.HistoryRecord
	for _, r := range f.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func testImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestAnalyzeSuccessRecordsBothWrites(t *testing.T) {
	store := &fakeStore{}
	mirror := history.NewMirror()
	svc := New(stubllm.NewClient(), store, mirror)

	outcome, err := svc.Analyze(context.Background(), "u1", testImage(t))
	if err != nil {
		t.Fatalf("Analyze() unexpected error: %v", err)
	}

	if outcome.Result == nil {
		t.Fatal("Analyze() returned no result")
	}
	if outcome.Failure != nil {
		t.Fatal("Analyze() returned a failure for parseable output")
	}
	if outcome.Result.Timestamp == "" {
		t.Error("result timestamp was not stamped")
	}

	if len(store.records) != 1 {
		t.Fatalf("durable store has %d records, want 1", len(store.records))
	}
	if store.records[0].UserID != "u1" {
		t.Errorf("record user_id = %q, want u1", store.records[0].UserID)
	}
	if mirror.Len() != 1 {
		t.Errorf("mirror has %d records, want 1", mirror.Len())
	}
}

func TestAnalyzeParseFailureIsSoft(t *testing.T) {
	store := &fakeStore{}
	mirror := history.NewMirror()
	svc := New(&fixedLLM{response: "no json here"}, store, mirror)

	outcome, err := svc.Analyze(context.Background(), "u1", testImage(t))
	if err != nil {
		t.Fatalf("Analyze() unexpected error: %v", err)
	}

	if outcome.Failure == nil {
		t.Fatal("Analyze() expected a failure payload")
	}
	if outcome.Failure.RawResponse != "no json here" {
		t.Errorf("raw_response = %q, want the verbatim model text", outcome.Failure.RawResponse)
	}
	if outcome.Result != nil {
		t.Error("Analyze() returned both a result and a failure")
	}

	// The failed scan is still recorded to both sinks.
	if len(store.records) != 1 || !store.records[0].ParseFailed {
		t.Errorf("durable store records = %+v, want one parse_failed record", store.records)
	}
	if mirror.Len() != 1 {
		t.Errorf("mirror has %d records, want 1", mirror.Len())
	}
}

func TestAnalyzeSwallowsStoreWriteFailure(t *testing.T) {
	store := &fakeStore{failSave: true}
	mirror := history.NewMirror()
	svc := New(stubllm.NewClient(), store, mirror)

	outcome, err := svc.Analyze(context.Background(), "u1", testImage(t))
	if err != nil {
		t.Fatalf("Analyze() must not fail when the history write fails: %v", err)
	}
	if outcome.Result == nil {
		t.Fatal("Analyze() returned no result")
	}
	if mirror.Len() != 1 {
		t.Errorf("mirror has %d records, want 1 despite durable failure", mirror.Len())
	}
}

func TestAnalyzeWithoutStore(t *testing.T) {
	mirror := history.NewMirror()
	svc := New(stubllm.NewClient(), nil, mirror)

	if _, err := svc.Analyze(context.Background(), "u1", testImage(t)); err != nil {
		t.Fatalf("Analyze() unexpected error with nil store: %v", err)
	}
	if mirror.Len() != 1 {
		t.Errorf("mirror has %d records, want 1", mirror.Len())
	}
}

func TestAnalyzeInvalidImage(t *testing.T) {
	svc := New(stubllm.NewClient(), &fakeStore{}, history.NewMirror())

	if _, err := svc.Analyze(context.Background(), "u1", []byte("not an image")); err == nil {
		t.Error("Analyze() expected error for undecodable upload")
	}
}

func TestAnalyzeInferenceFailureIsHard(t *testing.T) {
	store := &fakeStore{}
	mirror := history.NewMirror()
	svc := New(&fixedLLM{err: errors.New("quota exceeded")}, store, mirror)

	if _, err := svc.Analyze(context.Background(), "u1", testImage(t)); err == nil {
		t.Fatal("Analyze() expected error when inference is unavailable")
	}
	if len(store.records) != 0 || mirror.Len() != 0 {
		t.Error("nothing should be recorded when inference never answered")
	}
}

func TestHistoryPrefersDurableStore(t *testing.T) {
	store := &fakeStore{records: []models.HistoryRecord{
		{UserID: "u1", ScanType: "fixed"},
		{UserID: "u2", ScanType: "fixed"},
	}}
	mirror := history.NewMirror()
	mirror.Append(models.HistoryRecord{UserID: "u3"})
	svc := New(&fixedLLM{}, store, mirror)

	records, err := svc.History(context.Background(), "u1")
	if err != nil {
		t.Fatalf("History() unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].UserID != "u1" {
		t.Errorf("History() = %+v, want only u1 records", records)
	}
}

func TestHistoryFallsBackToUnfilteredMirror(t *testing.T) {
	store := &fakeStore{failList: true}
	mirror := history.NewMirror()
	mirror.Append(models.HistoryRecord{UserID: "u1"})
	mirror.Append(models.HistoryRecord{UserID: "u2"})
	svc := New(&fixedLLM{}, store, mirror)

	records, err := svc.History(context.Background(), "u1")
	if err != nil {
		t.Fatalf("History() unexpected error: %v", err)
	}
	// The mirror fallback is not identity-filtered.
	if len(records) != 2 {
		t.Errorf("History() fallback returned %d records, want all 2 mirrored records", len(records))
	}
}
