package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/iliyamo/clinic-patients/internal/model"
	"github.com/iliyamo/clinic-patients/internal/queue"
	"github.com/iliyamo/clinic-patients/internal/repository"
)

type fakeUsers struct {
	mu        sync.Mutex
	byID      map[uint64]*model.User
	nextID    uint64
	createErr error
	lookupErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[uint64]*model.User{}}
}

func (f *fakeUsers) Create(_ context.Context, name, email, hash string, role model.Role) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return 0, f.createErr
	}
	for _, u := range f.byID {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	f.nextID++
	f.byID[f.nextID] = &model.User{ID: f.nextID, Name: name, Email: email, PasswordHash: hash, Role: role, Active: true, CreatedAt: time.Now()}
	return f.nextID, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return model.User{}, f.lookupErr
	}
	for _, u := range f.byID {
		if u.Email == email {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		return *u, nil
	}
	return model.User{}, repository.ErrUserNotFound
}

func (f *fakeUsers) setPassword(id uint64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

type resetRow struct {
	userID    uint64
	tokenHash string
	expires   time.Time
	used      bool
}

type fakeResets struct {
	mu    sync.Mutex
	users *fakeUsers
	rows  map[string]*resetRow
}

func newFakeResets(users *fakeUsers) *fakeResets {
	return &fakeResets{users: users, rows: map[string]*resetRow{}}
}

func (f *fakeResets) Create(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[tokenHash] = &resetRow{userID: userID, tokenHash: tokenHash, expires: exp}
	return nil
}

func (f *fakeResets) Consume(_ context.Context, tokenHash, passwordHash string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[tokenHash]
	if !ok || r.used || !now.Before(r.expires) {
		return repository.ErrResetNotFound
	}
	r.used = true
	return f.users.setPassword(r.userID, passwordHash)
}

type sentReset struct {
	to, name, url string
}

type fakeNotifier struct {
	sent []sentReset
	err  error
}

func (f *fakeNotifier) SendPasswordReset(_ context.Context, to, name, url string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentReset{to, name, url})
	return nil
}

type fakePatients struct {
	mu     sync.Mutex
	rows   map[uint64]model.Patient
	nextID uint64
	err    error
}

func newFakePatients() *fakePatients {
	return &fakePatients{rows: map[uint64]model.Patient{}}
}

func (f *fakePatients) List(context.Context) ([]*model.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []*model.Patient{}
	for id := f.nextID; id > 0; id-- {
		if p, ok := f.rows[id]; ok {
			p := p
			out = append(out, &p)
		}
	}
	return out, nil
}

func (f *fakePatients) GetByID(_ context.Context, id uint64) (*model.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrPatientNotFound
	}
	return &p, nil
}

func (f *fakePatients) Create(_ context.Context, p *model.Patient) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.nextID++
	p.ID = f.nextID
	p.RegisteredAt = time.Now().UTC()
	f.rows[p.ID] = *p
	return nil
}

func (f *fakePatients) Update(_ context.Context, p *model.Patient) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	old, ok := f.rows[p.ID]
	if !ok {
		return repository.ErrPatientNotFound
	}
	p.RegisteredAt = old.RegisteredAt
	p.CreatedBy = old.CreatedBy
	f.rows[p.ID] = *p
	return nil
}

func (f *fakePatients) Delete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return repository.ErrPatientNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.PatientEvent
	err    error
}

func (f *fakePublisher) PublishPatientEvent(_ context.Context, ev queue.PatientEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

var errBoom = errors.New("boom")
