package scan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"ocrscan/internal/contact"
	"ocrscan/internal/database"
	"ocrscan/internal/extraction"
	"ocrscan/internal/history"
	"ocrscan/internal/ocr"
	"ocrscan/pkg/models"
)

var errEngineDown = errors.New("engine down")

// fakeRecognizer returns canned text keyed by the image bytes.
type fakeRecognizer struct {
	pages    map[string]string
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
}

func (f *fakeRecognizer) Name() string { return "fake" }

func (f *fakeRecognizer) Recognize(ctx context.Context, image []byte) ([]ocr.Segment, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	text, ok := f.pages[string(image)]
	if !ok {
		return nil, errEngineDown
	}
	if text == "" {
		return nil, nil
	}
	conf := float32(0.8)
	return []ocr.Segment{{Text: text, Confidence: &conf}}, nil
}

func (f *fakeRecognizer) Close() error { return nil }

func newFake() *fakeRecognizer {
	return &fakeRecognizer{pages: map[string]string{
		"valid":   "Total 1,234.56 THB\nID 1234567890121\nDate 15-01-2565",
		"invalid": "ID 1234567890123\nDate 2024-03-01",
		"blank":   "",
	}}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenAndMigrate(context.Background(), database.Config{
		Driver: database.DriverSQLite,
		DSN:    ":memory:",
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestService(t *testing.T, rec ocr.Recognizer) (*Service, *history.Store) {
	t.Helper()
	db := openTestDB(t)
	store := history.NewStore(db)
	return NewService(rec, store, contact.NewRepository(db)), store
}

func TestScanProcessed(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, newFake())

	out, err := svc.Scan(ctx, Upload{Filename: "card.png", Uploader: "somchai", Image: []byte("valid")})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !out.Result.Succeeded {
		t.Fatalf("Result = %+v, want success", out.Result)
	}

	got, err := store.Get(ctx, out.Record.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.State != models.ScanStateProcessed || got.IdentifiedNumber != "1234567890121" {
		t.Errorf("stored record = %+v", got)
	}
	if got.IdentifiedDate != "2565-01-15" {
		t.Errorf("IdentifiedDate = %q, want 2565-01-15", got.IdentifiedDate)
	}
	if got.IdentifiedAmount == nil || *got.IdentifiedAmount != 1234.56 {
		t.Errorf("IdentifiedAmount = %v, want 1234.56", got.IdentifiedAmount)
	}
	if got.Engine != "fake" || got.Uploader != "somchai" {
		t.Errorf("metadata = %q/%q", got.Engine, got.Uploader)
	}
	if got.Confidence == nil || *got.Confidence != 0.8 {
		t.Errorf("Confidence = %v, want 0.8", got.Confidence)
	}
}

func TestScanInvalidIdentifier(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, newFake())

	out, err := svc.Scan(ctx, Upload{Filename: "bad.png", Image: []byte("invalid")})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !errors.Is(out.Result.Err, extraction.ErrIdentifierInvalid) {
		t.Errorf("Result.Err = %v, want ErrIdentifierInvalid", out.Result.Err)
	}

	got, err := store.Get(ctx, out.Record.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.State != models.ScanStateError || got.ErrorMessage != "invalid identifier: 1234567890123" {
		t.Errorf("stored record state %q message %q", got.State, got.ErrorMessage)
	}
	if got.IdentifiedNumber != "" || got.IdentifiedDate != "2024-03-01" {
		t.Errorf("stored fields number %q date %q", got.IdentifiedNumber, got.IdentifiedDate)
	}
}

func TestScanNoText(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, newFake())

	out, err := svc.Scan(ctx, Upload{Filename: "white.png", Image: []byte("blank")})
	if !errors.Is(err, ErrNoText) {
		t.Fatalf("Scan() error = %v, want ErrNoText", err)
	}
	got, getErr := store.Get(ctx, out.Record.ID)
	if getErr != nil {
		t.Fatalf("Get() error = %v", getErr)
	}
	if got.State != models.ScanStateError || got.RawText != NoTextFound {
		t.Errorf("stored record state %q raw text %q", got.State, got.RawText)
	}
}

func TestScanOCRFailure(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, newFake())

	out, err := svc.Scan(ctx, Upload{Filename: "x.png", Image: []byte("unknown")})
	if !errors.Is(err, errEngineDown) {
		t.Fatalf("Scan() error = %v, want engine error", err)
	}
	var scanErr *ScanError
	if !errors.As(err, &scanErr) || scanErr.Op != "Scan" || scanErr.Details != "x.png" {
		t.Errorf("error %v is not a ScanError for x.png", err)
	}

	got, getErr := store.Get(ctx, out.Record.ID)
	if getErr != nil {
		t.Fatalf("Get() error = %v", getErr)
	}
	if got.State != models.ScanStateError || got.ErrorMessage != errEngineDown.Error() {
		t.Errorf("stored record state %q message %q", got.State, got.ErrorMessage)
	}
}

// cancelingRecognizer cancels the scan while it is running, like a run
// timeout or an interrupt would.
type cancelingRecognizer struct {
	cancel context.CancelFunc
}

func (c *cancelingRecognizer) Name() string { return "canceling" }

func (c *cancelingRecognizer) Recognize(ctx context.Context, image []byte) ([]ocr.Segment, error) {
	c.cancel()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (c *cancelingRecognizer) Close() error { return nil }

func TestScanCanceledRecordsErrorState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc, store := newTestService(t, &cancelingRecognizer{cancel: cancel})

	out, err := svc.Scan(ctx, Upload{Filename: "slow.png", Image: []byte("valid")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Scan() error = %v, want context.Canceled", err)
	}
	if out == nil || out.Record.State != models.ScanStateError {
		t.Fatalf("Scan() outcome = %+v, want error-state record", out)
	}

	got, getErr := store.Get(context.Background(), out.Record.ID)
	if getErr != nil {
		t.Fatalf("Get() error = %v", getErr)
	}
	if got.State != models.ScanStateError {
		t.Errorf("stored state = %q, want %q", got.State, models.ScanStateError)
	}
	if got.ErrorMessage != context.Canceled.Error() {
		t.Errorf("stored message = %q", got.ErrorMessage)
	}
}

func TestScanNoImage(t *testing.T) {
	fake := newFake()
	svc := NewService(fake, nil, nil)

	if _, err := svc.Scan(context.Background(), Upload{Filename: "empty.png"}); !errors.Is(err, ErrNoImage) {
		t.Fatalf("Scan() error = %v, want ErrNoImage", err)
	}
	if fake.calls.Load() != 0 {
		t.Error("recognizer was called without an image")
	}
}

func TestScanWithoutStore(t *testing.T) {
	svc := NewService(newFake(), nil, nil)
	out, err := svc.Scan(context.Background(), Upload{Filename: "card.png", Image: []byte("valid")})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if out.Record.ID != "" {
		t.Errorf("record got an ID without a store: %q", out.Record.ID)
	}
	if out.Record.State != models.ScanStateProcessed {
		t.Errorf("State = %q, want processed", out.Record.State)
	}
}

func TestCreateContact(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, newFake())

	out, err := svc.Scan(ctx, Upload{Filename: "card.png", Image: []byte("valid")})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	// Mark the record as failed to check that CreateContact sets it back.
	rec := out.Record
	rec.State = models.ScanStateError
	if err := store.Update(ctx, rec); err != nil {
		t.Fatal(err)
	}

	c, msg, err := svc.CreateContact(ctx, rec.ID)
	if err != nil {
		t.Fatalf("CreateContact() error = %v", err)
	}
	if msg != contact.MessageCreated || c.Reference != "1234567890121" {
		t.Errorf("CreateContact() = %+v, %q", c, msg)
	}

	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != models.ScanStateProcessed {
		t.Errorf("record state = %q, want processed", got.State)
	}

	if _, msg, err = svc.CreateContact(ctx, rec.ID); err != nil || msg != contact.MessageUpdated {
		t.Errorf("second CreateContact() = %q, %v; want %q", msg, err, contact.MessageUpdated)
	}
}

func TestCreateContactWithoutIdentifier(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, newFake())

	out, err := svc.Scan(ctx, Upload{Filename: "bad.png", Image: []byte("invalid")})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.CreateContact(ctx, out.Record.ID); !errors.Is(err, ErrNoIdentifier) {
		t.Errorf("CreateContact() error = %v, want ErrNoIdentifier", err)
	}
	if _, _, err := svc.CreateContact(ctx, "missing"); !errors.Is(err, history.ErrNotFound) {
		t.Errorf("CreateContact(missing) error = %v, want history.ErrNotFound", err)
	}
}

func TestCreateContactWithoutStores(t *testing.T) {
	svc := NewService(newFake(), nil, nil)
	if _, _, err := svc.CreateContact(context.Background(), "id"); !errors.Is(err, ErrNoRecordStore) {
		t.Errorf("CreateContact() error = %v, want ErrNoRecordStore", err)
	}
}

func TestScanBatch(t *testing.T) {
	fake := newFake()
	fake.delay = 10 * time.Millisecond
	svc := NewService(fake, nil, nil)

	var uploads []Upload
	for i := range 8 {
		image := "valid"
		if i%4 == 3 {
			image = "unknown"
		}
		uploads = append(uploads, Upload{Filename: fmt.Sprintf("f%d.png", i), Image: []byte(image)})
	}

	items, err := svc.ScanBatch(context.Background(), uploads, 3)
	if err != nil {
		t.Fatalf("ScanBatch() error = %v", err)
	}
	if len(items) != len(uploads) {
		t.Fatalf("got %d items, want %d", len(items), len(uploads))
	}
	for i, it := range items {
		if it.Upload.Filename != uploads[i].Filename {
			t.Errorf("item %d is %s, want input order", i, it.Upload.Filename)
		}
		wantErr := i%4 == 3
		if (it.Err != nil) != wantErr {
			t.Errorf("item %d error = %v, want error %v", i, it.Err, wantErr)
		}
	}
	if m := fake.maxSeen.Load(); m > 3 {
		t.Errorf("max concurrent scans = %d, want <= 3", m)
	}
}

func TestScanBatchCanceled(t *testing.T) {
	svc := NewService(newFake(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items, err := svc.ScanBatch(ctx, []Upload{{Filename: "a", Image: []byte("valid")}}, 2)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ScanBatch() error = %v, want context.Canceled", err)
	}
	if len(items) != 1 || items[0].Upload.Filename != "a" || !errors.Is(items[0].Err, context.Canceled) {
		t.Errorf("ScanBatch() items = %+v, want the canceled upload reported", items)
	}
}
