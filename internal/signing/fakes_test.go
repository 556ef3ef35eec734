package signing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inkflow/server/internal/mail"
	"github.com/inkflow/server/internal/model"
	"github.com/inkflow/server/internal/repo"
)

// fakeStore is an in-memory implementation of the repo interfaces, good
// enough to exercise the workflow services without Postgres.
type fakeStore struct {
	mu            sync.Mutex
	requests      map[uuid.UUID]model.SignatureRequest
	fields        map[uuid.UUID]model.SignatureField
	sessions      map[uuid.UUID]model.SigningSession
	activeByField map[uuid.UUID]uuid.UUID
	signatures    []model.Signature
	events        []model.SignatureEvent
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		requests:      make(map[uuid.UUID]model.SignatureRequest),
		fields:        make(map[uuid.UUID]model.SignatureField),
		sessions:      make(map[uuid.UUID]model.SigningSession),
		activeByField: make(map[uuid.UUID]uuid.UUID),
	}
}

// RequestRepo

func (f *fakeStore) Create(ctx context.Context, userID uuid.UUID, name, path string) (model.SignatureRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req := model.SignatureRequest{
		ID: uuid.New(), UserID: userID, DocumentName: name, DocumentPath: path,
		Status: model.RequestPending, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	f.requests[req.ID] = req
	return req, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (model.SignatureRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return model.SignatureRequest{}, repo.ErrNotFound
	}
	return req, nil
}

func (f *fakeStore) SetStatus(ctx context.Context, id uuid.UUID, status model.RequestStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return repo.ErrNotFound
	}
	req.Status = status
	f.requests[id] = req
	return nil
}

func (f *fakeStore) RecomputeStatus(ctx context.Context, id uuid.UUID, completedPath, documentHash string) (model.RequestStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return "", repo.ErrNotFound
	}
	complete := true
	for _, field := range f.fields {
		if field.RequestID != id {
			continue
		}
		sid, ok := f.activeByField[field.ID]
		if !ok || !f.sessions[sid].Signed {
			complete = false
			break
		}
	}
	if complete {
		req.Status = model.RequestCompleted
	} else {
		req.Status = model.RequestInProgress
	}
	req.CompletedDocumentPath = &completedPath
	req.DocumentHash = &documentHash
	f.requests[id] = req
	return req.Status, nil
}

// FieldRepo

func (f *fakeStore) CreateField(field model.SignatureField) model.SignatureField {
	f.mu.Lock()
	defer f.mu.Unlock()
	field.ID = uuid.New()
	field.CreatedAt = time.Now()
	f.fields[field.ID] = field
	return field
}

func (f *fakeStore) GetFieldByID(ctx context.Context, id uuid.UUID) (model.SignatureField, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	field, ok := f.fields[id]
	if !ok {
		return model.SignatureField{}, repo.ErrNotFound
	}
	return field, nil
}

func (f *fakeStore) GetByRequestAndEmail(ctx context.Context, requestID uuid.UUID, email string) (model.SignatureField, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, field := range f.fields {
		if field.RequestID == requestID && field.SignerEmail == email {
			return field, nil
		}
	}
	return model.SignatureField{}, repo.ErrNotFound
}

func (f *fakeStore) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]model.SignatureField, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var fields []model.SignatureField
	for _, field := range f.fields {
		if field.RequestID == requestID {
			fields = append(fields, field)
		}
	}
	return fields, nil
}

// SessionRepo

func (f *fakeStore) CreateOrReplace(ctx context.Context, session model.SigningSession) (model.SigningSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sid, ok := f.activeByField[session.FieldID]; ok && f.sessions[sid].Signed {
		return model.SigningSession{}, repo.ErrConflict
	}
	session.ID = uuid.New()
	session.CreatedAt = time.Now()
	f.sessions[session.ID] = session
	f.activeByField[session.FieldID] = session.ID
	return session, nil
}

func (f *fakeStore) GetByTokenHash(ctx context.Context, tokenHash string) (model.SigningSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sid := range f.activeByField {
		if f.sessions[sid].TokenHash == tokenHash {
			return f.sessions[sid], nil
		}
	}
	return model.SigningSession{}, repo.ErrNotFound
}

func (f *fakeStore) GetSessionByID(ctx context.Context, id uuid.UUID) (model.SigningSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return model.SigningSession{}, repo.ErrNotFound
	}
	return session, nil
}

func (f *fakeStore) IncrementAttempt(ctx context.Context, id uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return 0, repo.ErrNotFound
	}
	session.OTPAttempts++
	f.sessions[id] = session
	return session.OTPAttempts, nil
}

func (f *fakeStore) MarkVerified(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return repo.ErrNotFound
	}
	if session.OTPVerifiedAt == nil {
		now := time.Now()
		session.OTPVerifiedAt = &now
		f.sessions[id] = session
	}
	return nil
}

func (f *fakeStore) MarkSigned(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return repo.ErrNotFound
	}
	if session.Signed {
		return repo.ErrConflict
	}
	now := time.Now()
	session.Signed = true
	session.SignedAt = &now
	f.sessions[id] = session
	return nil
}

func (f *fakeStore) AppendAudit(ctx context.Context, id uuid.UUID, entry model.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return repo.ErrNotFound
	}
	session.AuditTrail = append(session.AuditTrail, entry)
	f.sessions[id] = session
	return nil
}

// SignatureRepo

func (f *fakeStore) CreateSignature(ctx context.Context, sig model.Signature) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sig.ID = uuid.New()
	f.signatures = append(f.signatures, sig)
	return sig.ID, nil
}

// EventRepo

func (f *fakeStore) Insert(ctx context.Context, event model.SignatureEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event.ID = uuid.New()
	event.CreatedAt = time.Now()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeStore) listEventsByRequest(requestID uuid.UUID) []model.SignatureEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var events []model.SignatureEvent
	for _, event := range f.events {
		if event.RequestID == requestID {
			events = append(events, event)
		}
	}
	return events
}

func (f *fakeStore) eventsOfType(eventType string) []model.SignatureEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var events []model.SignatureEvent
	for _, event := range f.events {
		if event.EventType == eventType {
			events = append(events, event)
		}
	}
	return events
}

// Interface adapters: the fake is one struct, the service wants narrow views.

type fakeFieldRepo struct{ *fakeStore }

func (f fakeFieldRepo) Create(ctx context.Context, field model.SignatureField) (model.SignatureField, error) {
	return f.fakeStore.CreateField(field), nil
}
func (f fakeFieldRepo) GetByID(ctx context.Context, id uuid.UUID) (model.SignatureField, error) {
	return f.fakeStore.GetFieldByID(ctx, id)
}

type fakeSessionRepo struct{ *fakeStore }

func (f fakeSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (model.SigningSession, error) {
	return f.fakeStore.GetSessionByID(ctx, id)
}

type fakeSignatureRepo struct{ *fakeStore }

func (f fakeSignatureRepo) Create(ctx context.Context, sig model.Signature) (uuid.UUID, error) {
	return f.fakeStore.CreateSignature(ctx, sig)
}

type fakeEventRepo struct{ *fakeStore }

func (f fakeEventRepo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]model.SignatureEvent, error) {
	return f.fakeStore.listEventsByRequest(requestID), nil
}

// fakeLocker serializes with one process-wide mutex.
type fakeLocker struct{ mu sync.Mutex }

func (l *fakeLocker) AcquireRequestLock(ctx context.Context, requestID uuid.UUID) (func(), error) {
	l.mu.Lock()
	return l.mu.Unlock, nil
}

// captureMailer records outbound mail and can be told to fail.
type captureMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	fail bool
}

func (m *captureMailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return fmt.Errorf("smtp unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

// fakeBlobStore keeps artifacts in a map and can fail uploads.
type fakeBlobStore struct {
	mu         sync.Mutex
	blobs      map[string][]byte
	failUpload bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (b *fakeBlobStore) Upload(ctx context.Context, path string, content []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failUpload {
		return fmt.Errorf("storage unavailable")
	}
	b.blobs[path] = content
	return nil
}

func (b *fakeBlobStore) Download(ctx context.Context, path string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	content, ok := b.blobs[path]
	if !ok {
		return nil, fmt.Errorf("blob %q not found", path)
	}
	return content, nil
}
