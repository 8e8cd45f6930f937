package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/clinicconsole/internal/platform/notification"
)

// -- Mock Repository --

type mockRepo struct {
	mu      sync.Mutex
	records map[string]*Record
	seq     int
	failGet error
}

func newMockRepo() *mockRepo {
	return &mockRepo{records: make(map[string]*Record)}
}

func (m *mockRepo) Create(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	rec.ID = fmt.Sprintf("clinic-%d", m.seq)
	m.records[rec.ID] = rec
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (m *mockRepo) GetByEmail(_ context.Context, email string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return nil, m.failGet
	}
	for _, rec := range m.records {
		if strings.EqualFold(rec.Email, email) {
			return rec, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Record, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Record
	for _, rec := range m.records {
		out = append(out, rec)
	}
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.Status = status
	return nil
}

func newTestService() (*Service, *mockRepo, *notification.MockEmailSender) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())
	mailer := &notification.MockEmailSender{}
	svc.SetMailer(mailer, notification.NewTemplateEngine())
	return svc, repo, mailer
}

func TestService_Register(t *testing.T) {
	svc, repo, mailer := newTestService()
	rec := filledForm().ToRecord("user-1", svc.now())

	res, err := svc.Register(context.Background(), rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.Data.ID == "" {
		t.Fatalf("expected success with id, got %+v", res)
	}
	if len(repo.records) != 1 {
		t.Errorf("expected 1 stored record, got %d", len(repo.records))
	}

	calls := mailer.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 confirmation e-mail, got %d", len(calls))
	}
	if calls[0].To != "mara@lakeside.example" {
		t.Errorf("expected mail to contact person, got %q", calls[0].To)
	}
	if !strings.Contains(calls[0].Body, res.Data.ID) || !strings.Contains(calls[0].Subject, "Lakeside Family Clinic") {
		t.Errorf("unexpected e-mail: %+v", calls[0])
	}
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	svc, repo, mailer := newTestService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, filledForm().ToRecord("u", svc.now())); err != nil {
		t.Fatalf("first register: %v", err)
	}

	dup := filledForm().ToRecord("u", svc.now())
	dup.Email = "INFO@lakeside.example"
	res, err := svc.Register(ctx, dup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("expected rejection for duplicate email")
	}
	if res.Error != MsgDuplicateEmail {
		t.Errorf("expected %q, got %q", MsgDuplicateEmail, res.Error)
	}
	if len(repo.records) != 1 || len(mailer.Calls()) != 1 {
		t.Error("duplicate registration must not store or mail")
	}
}

func TestService_Register_InvalidInput(t *testing.T) {
	svc, _, _ := newTestService()
	rec := filledForm().ToRecord("u", svc.now())
	rec.Name = ""
	res, _ := svc.Register(context.Background(), rec)
	if res.Success || res.Error != MsgMissingName {
		t.Errorf("expected missing name rejection, got %+v", res)
	}

	rec = filledForm().ToRecord("u", svc.now())
	rec.Email = "nope"
	res, _ = svc.Register(context.Background(), rec)
	if res.Success || res.Error != MsgInvalidEmail {
		t.Errorf("expected invalid email rejection, got %+v", res)
	}
}

func TestService_Register_RepoError(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.failGet = errors.New("connection refused")
	_, err := svc.Register(context.Background(), filledForm().ToRecord("u", svc.now()))
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("expected wrapped repo error, got %v", err)
	}
}

func TestService_Register_MailFailureStillSucceeds(t *testing.T) {
	svc, _, mailer := newTestService()
	mailer.ShouldFail = true
	res, err := svc.Register(context.Background(), filledForm().ToRecord("u", svc.now()))
	if err != nil || !res.Success {
		t.Fatalf("expected success despite mail failure, got %+v, %v", res, err)
	}
}

func TestService_Review(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	res, _ := svc.Register(ctx, filledForm().ToRecord("u", svc.now()))

	if err := svc.Review(ctx, res.Data.ID, StatusApproved); err != nil {
		t.Fatalf("Review: %v", err)
	}
	got, _ := svc.Get(ctx, res.Data.ID)
	if got.Status != StatusApproved {
		t.Errorf("expected approved, got %q", got.Status)
	}
	if err := svc.Review(ctx, res.Data.ID, "archived"); err == nil {
		t.Error("expected error for invalid status")
	}
	if err := svc.Review(ctx, "missing", StatusRejected); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_Submitter(t *testing.T) {
	svc, repo, _ := newTestService()
	submit := svc.Submitter("user-9")
	res, err := submit(context.Background(), filledForm())
	if err != nil || !res.Success {
		t.Fatalf("expected success, got %+v, %v", res, err)
	}
	if repo.records[res.Data.ID].SubmittedBy != "user-9" {
		t.Errorf("expected submitted_by user-9, got %q", repo.records[res.Data.ID].SubmittedBy)
	}
}

func TestMemoryRepo_ListNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, zerolog.Nop())
	ctx := context.Background()

	first := filledForm().ToRecord("u", svc.now().Add(-time.Hour))
	second := filledForm().ToRecord("u", svc.now())
	second.Email = "second@lakeside.example"
	for _, rec := range []*Record{first, second} {
		if res, err := svc.Register(ctx, rec); err != nil || !res.Success {
			t.Fatalf("Register: %+v %v", res, err)
		}
	}

	recs, total, err := repo.List(ctx, 1, 0)
	if err != nil || total != 2 || len(recs) != 1 {
		t.Fatalf("List: %d %d %v", total, len(recs), err)
	}
	if recs[0].Email != "second@lakeside.example" {
		t.Errorf("expected newest first, got %s", recs[0].Email)
	}
	if recs, _, _ := repo.List(ctx, 10, 5); len(recs) != 0 {
		t.Errorf("expected empty page past the end, got %d", len(recs))
	}
}
