package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/anonrelay/internal/common"
	"github.com/dmitrijs2005/anonrelay/internal/dbx"
	"github.com/dmitrijs2005/anonrelay/internal/logging"
	"github.com/dmitrijs2005/anonrelay/internal/server/delivery"
	"github.com/dmitrijs2005/anonrelay/internal/server/models"
	alertsrepo "github.com/dmitrijs2005/anonrelay/internal/server/repositories/alerts"
	analyticsrepo "github.com/dmitrijs2005/anonrelay/internal/server/repositories/analytics"
	messagesrepo "github.com/dmitrijs2005/anonrelay/internal/server/repositories/messages"
	modlogrepo "github.com/dmitrijs2005/anonrelay/internal/server/repositories/modlog"
	ratelimitsrepo "github.com/dmitrijs2005/anonrelay/internal/server/repositories/ratelimits"
	"github.com/dmitrijs2005/anonrelay/internal/server/repositories/repomanager"
	replytokensrepo "github.com/dmitrijs2005/anonrelay/internal/server/repositories/replytokens"
	usersrepo "github.com/dmitrijs2005/anonrelay/internal/server/repositories/users"
)

// --- helpers ---

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newSQLMockDB(t *testing.T) *sql.DB {
	t.Helper()
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db
}

// --- users ---

type fakeUsersRepo struct {
	users      map[int64]*models.User
	nextID     int64
	takenCodes map[string]bool
	createErr  error
	getErr     error
	getMisses  int // first N GetByExternalID calls report ErrNotFound
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{users: map[int64]*models.User{}, takenCodes: map[string]bool{}}
}

func (f *fakeUsersRepo) add(u *models.User) *models.User {
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = time.Now()
	f.users[u.ID] = u
	return u
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, existing := range f.users {
		if existing.ExternalID == u.ExternalID {
			return nil, common.ErrAlreadyExists
		}
	}
	return f.add(u), nil
}

func (f *fakeUsersRepo) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.getMisses > 0 {
		f.getMisses--
		return nil, common.ErrNotFound
	}
	for _, u := range f.users {
		if u.ExternalID == externalID {
			return u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) GetByCode(ctx context.Context, code string) (*models.User, error) {
	for _, u := range f.users {
		if u.Code == code {
			return u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) UpdateDisplayName(ctx context.Context, id int64, displayName string) error {
	if u, ok := f.users[id]; ok {
		u.DisplayName = displayName
	}
	return nil
}

func (f *fakeUsersRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	if f.takenCodes[code] {
		return true, nil
	}
	for _, u := range f.users {
		if u.Code == code {
			return true, nil
		}
	}
	return false, nil
}

// --- messages ---

type fakeMessagesRepo struct {
	mu        sync.Mutex
	msgs      map[int64]*models.Message
	nextID    int64
	createErr error

	setRefs   map[int64]string
	inbox     []*models.Message
	urgent    []*models.Message
	pending   int
	sentToday int
	stats     *messagesrepo.Stats
}

func newFakeMessagesRepo() *fakeMessagesRepo {
	return &fakeMessagesRepo{msgs: map[int64]*models.Message{}, setRefs: map[int64]string{}}
}

func (f *fakeMessagesRepo) Create(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	msg.ID = f.nextID
	msg.CreatedAt = time.Now()
	f.msgs[msg.ID] = msg
	return msg, nil
}

func (f *fakeMessagesRepo) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.msgs[id]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeMessagesRepo) TransitionStatus(ctx context.Context, id int64, from, to models.MessageStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.msgs[id]
	if !ok || m.Status != from {
		return false, nil
	}
	m.Status = to
	return true, nil
}

func (f *fakeMessagesRepo) SetPublishedRef(ctx context.Context, id int64, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setRefs[id] = ref
	if m, ok := f.msgs[id]; ok {
		m.PublishedRef = ref
	}
	return nil
}

func (f *fakeMessagesRepo) MarkRead(ctx context.Context, id int64, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.msgs[id]
	if !ok || m.IsRead {
		return false, nil
	}
	m.IsRead = true
	m.ReadAt = &at
	return true, nil
}

func (f *fakeMessagesRepo) ListInbox(ctx context.Context, receiverID int64, limit, offset int) ([]*models.Message, error) {
	return f.inbox, nil
}

func (f *fakeMessagesRepo) ListUrgentPending(ctx context.Context) ([]*models.Message, error) {
	return f.urgent, nil
}

func (f *fakeMessagesRepo) CountByStatus(ctx context.Context, status models.MessageStatus) (int, error) {
	return f.pending, nil
}

func (f *fakeMessagesRepo) CountSentSince(ctx context.Context, senderID int64, since time.Time) (int, error) {
	return f.sentToday, nil
}

func (f *fakeMessagesRepo) UserStats(ctx context.Context, userID int64) (*messagesrepo.Stats, error) {
	if f.stats != nil {
		return f.stats, nil
	}
	return &messagesrepo.Stats{}, nil
}

// --- reply tokens ---

type fakeTokensRepo struct {
	tokens     map[string]*models.ReplyToken
	nextID     int64
	insertErrs []error // popped per Insert call before storing
}

func newFakeTokensRepo() *fakeTokensRepo {
	return &fakeTokensRepo{tokens: map[string]*models.ReplyToken{}}
}

func (f *fakeTokensRepo) Insert(ctx context.Context, token *models.ReplyToken) error {
	if len(f.insertErrs) > 0 {
		err := f.insertErrs[0]
		f.insertErrs = f.insertErrs[1:]
		if err != nil {
			return err
		}
	}
	if _, ok := f.tokens[token.Hash]; ok {
		return common.ErrAlreadyExists
	}
	f.nextID++
	token.ID = f.nextID
	token.CreatedAt = time.Now()
	f.tokens[token.Hash] = token
	return nil
}

func (f *fakeTokensRepo) Find(ctx context.Context, hash string) (*models.ReplyToken, error) {
	if t, ok := f.tokens[hash]; ok {
		return t, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeTokensRepo) FindByPair(ctx context.Context, senderID, receiverID int64) (*models.ReplyToken, error) {
	for _, t := range f.tokens {
		if t.SenderID == senderID && t.ReceiverID == receiverID {
			return t, nil
		}
	}
	return nil, common.ErrNotFound
}

// --- rate limits ---

type fakeRateLimitsRepo struct {
	state *models.RateLimitState

	inserts int
	resets  int
	blocks  []time.Time
}

func (f *fakeRateLimitsRepo) Get(ctx context.Context, userID int64) (*models.RateLimitState, error) {
	if f.state == nil {
		return nil, common.ErrNotFound
	}
	return f.state, nil
}

func (f *fakeRateLimitsRepo) InsertFresh(ctx context.Context, userID int64, windowStart time.Time) error {
	f.inserts++
	f.state = &models.RateLimitState{UserID: userID, MessageCount: 1, WindowStart: windowStart}
	return nil
}

func (f *fakeRateLimitsRepo) ResetWindow(ctx context.Context, userID int64, windowStart time.Time) error {
	f.resets++
	f.state = &models.RateLimitState{UserID: userID, MessageCount: 1, WindowStart: windowStart}
	return nil
}

func (f *fakeRateLimitsRepo) Increment(ctx context.Context, userID int64) (int, error) {
	f.state.MessageCount++
	return f.state.MessageCount, nil
}

func (f *fakeRateLimitsRepo) Block(ctx context.Context, userID int64, until time.Time) error {
	f.blocks = append(f.blocks, until)
	if f.state == nil {
		f.state = &models.RateLimitState{UserID: userID}
	}
	f.state.IsBlocked = true
	f.state.BlockedUntil = &until
	return nil
}

func (f *fakeRateLimitsRepo) Unblock(ctx context.Context, userID int64) error {
	if f.state != nil {
		f.state.IsBlocked = false
		f.state.BlockedUntil = nil
	}
	return nil
}

// --- alerts / mod log ---

type createdAlert struct {
	Type    string
	UserID  *int64
	Details string
}

type fakeAlertsRepo struct {
	created []createdAlert
	listed  []*models.Alert
}

func (f *fakeAlertsRepo) Create(ctx context.Context, alertType string, userID *int64, details string) (int64, error) {
	f.created = append(f.created, createdAlert{Type: alertType, UserID: userID, Details: details})
	return int64(len(f.created)), nil
}

func (f *fakeAlertsRepo) ListUnresolved(ctx context.Context) ([]*models.Alert, error) {
	return f.listed, nil
}

func (f *fakeAlertsRepo) Resolve(ctx context.Context, id int64) error { return nil }

type fakeModLogRepo struct {
	entries []*models.ModLogEntry
}

func (f *fakeModLogRepo) Create(ctx context.Context, entry *models.ModLogEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeModLogRepo) List(ctx context.Context, limit int) ([]*models.ModLogEntry, error) {
	return f.entries, nil
}

// --- manager ---

type fakeRepoManager struct {
	users      *fakeUsersRepo
	messages   *fakeMessagesRepo
	tokens     *fakeTokensRepo
	rateLimits *fakeRateLimitsRepo
	alerts     *fakeAlertsRepo
	modLog     *fakeModLogRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:      newFakeUsersRepo(),
		messages:   newFakeMessagesRepo(),
		tokens:     newFakeTokensRepo(),
		rateLimits: &fakeRateLimitsRepo{},
		alerts:     &fakeAlertsRepo{},
		modLog:     &fakeModLogRepo{},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error               { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                     { return m.users }
func (m *fakeRepoManager) Messages(db dbx.DBTX) messagesrepo.Repository               { return m.messages }
func (m *fakeRepoManager) ReplyTokens(db dbx.DBTX) replytokensrepo.Repository         { return m.tokens }
func (m *fakeRepoManager) RateLimits(db dbx.DBTX) ratelimitsrepo.Repository           { return m.rateLimits }
func (m *fakeRepoManager) Alerts(db dbx.DBTX) alertsrepo.Repository                   { return m.alerts }
func (m *fakeRepoManager) ModLog(db dbx.DBTX) modlogrepo.Repository                   { return m.modLog }
func (m *fakeRepoManager) Analytics(db dbx.DBTX) analyticsrepo.Repository             { return nil }

var _ repomanager.RepositoryManager = (*fakeRepoManager)(nil)

// --- delivery ---

type deliveredCall struct {
	Target  string
	Content delivery.Content
}

type fakeDeliverer struct {
	calls []deliveredCall
	err   error
}

func (f *fakeDeliverer) Deliver(ctx context.Context, target string, content delivery.Content) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.calls = append(f.calls, deliveredCall{Target: target, Content: content})
	return fmt.Sprintf("ref-%d", len(f.calls)), nil
}

type fakeNotifier struct {
	texts []string
	err   error
}

func (f *fakeNotifier) Notify(ctx context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.texts = append(f.texts, text)
	return nil
}
