package workers

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zenithlabs/zenith-api/internal/models"
	"github.com/zenithlabs/zenith-api/internal/queue"
	"github.com/zenithlabs/zenith-api/internal/services/ai"
	"go.uber.org/zap"
)

type fakeMessage struct {
	job      *queue.Job
	acked    bool
	nacked   bool
	requeued bool
}

func (m *fakeMessage) Ack() error {
	m.acked = true
	return nil
}

func (m *fakeMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeued = requeue
	return nil
}

func (m *fakeMessage) GetJob() *queue.Job {
	return m.job
}

type fakeSurveyStore struct {
	profile *models.SurveyProfile
}

func (f *fakeSurveyStore) Create(ctx context.Context, user *models.User) error { return nil }
func (f *fakeSurveyStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return &models.User{ID: id, Balance: decimal.NewFromInt(100), StressLevel: 4}, nil
}
func (f *fakeSurveyStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return nil, fmt.Errorf("not found")
}
func (f *fakeSurveyStore) GetBySessionToken(ctx context.Context, token string) (*models.User, error) {
	return nil, fmt.Errorf("not found")
}
func (f *fakeSurveyStore) SetSessionToken(ctx context.Context, id uuid.UUID, token *string) error {
	return nil
}
func (f *fakeSurveyStore) SetStressLevel(ctx context.Context, id uuid.UUID, level int) error {
	return nil
}
func (f *fakeSurveyStore) GetSurvey(ctx context.Context, id uuid.UUID) (*models.SurveyProfile, error) {
	return f.profile, nil
}
func (f *fakeSurveyStore) SetSurvey(ctx context.Context, id uuid.UUID, profile *models.SurveyProfile) error {
	f.profile = profile
	return nil
}
func (f *fakeSurveyStore) GetBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

type fakeRemote struct {
	mu      sync.Mutex
	reply   string
	sendErr error
	sends   int
}

func (r *fakeRemote) CreateAssistant(ctx context.Context, name, systemPrompt string) (string, error) {
	return "asst_test", nil
}

func (r *fakeRemote) CreateThread(ctx context.Context, assistantID string) (string, error) {
	return "thread_test", nil
}

func (r *fakeRemote) SendMessage(ctx context.Context, threadID, content string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sends++
	if r.sendErr != nil {
		return "", r.sendErr
	}
	return r.reply, nil
}

type bindingKey struct {
	userID uuid.UUID
	topic  models.Topic
}

type memStore struct {
	mu         sync.Mutex
	assistants map[models.Topic]*models.AssistantBinding
	threads    map[bindingKey]*models.ConversationThread
	briefs     map[bindingKey]*models.Brief
}

func newMemStore() *memStore {
	return &memStore{
		assistants: make(map[models.Topic]*models.AssistantBinding),
		threads:    make(map[bindingKey]*models.ConversationThread),
		briefs:     make(map[bindingKey]*models.Brief),
	}
}

func (m *memStore) Get(ctx context.Context, topic models.Topic) (*models.AssistantBinding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assistants[topic], nil
}

func (m *memStore) Upsert(ctx context.Context, topic models.Topic, assistantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assistants[topic] = &models.AssistantBinding{Topic: topic, AssistantID: assistantID}
	return nil
}

func (m *memStore) DeleteAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assistants = make(map[models.Topic]*models.AssistantBinding)
	m.threads = make(map[bindingKey]*models.ConversationThread)
	m.briefs = make(map[bindingKey]*models.Brief)
	return nil
}

type memThreads struct{ store *memStore }

func (m memThreads) Get(ctx context.Context, userID uuid.UUID, topic models.Topic) (*models.ConversationThread, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return m.store.threads[bindingKey{userID, topic}], nil
}

func (m memThreads) Upsert(ctx context.Context, userID uuid.UUID, topic models.Topic, threadID string) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.threads[bindingKey{userID, topic}] = &models.ConversationThread{UserID: userID, Topic: topic, ThreadID: threadID}
	return nil
}

func (m memThreads) MarkInitialized(ctx context.Context, userID uuid.UUID, topic models.Topic) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if th, ok := m.store.threads[bindingKey{userID, topic}]; ok {
		th.Initialized = true
	}
	return nil
}

func (m memThreads) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for k := range m.store.threads {
		if k.userID == userID {
			delete(m.store.threads, k)
		}
	}
	return nil
}

func (m memThreads) DeleteAll(ctx context.Context) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.threads = make(map[bindingKey]*models.ConversationThread)
	return nil
}

type memBriefs struct{ store *memStore }

func (m memBriefs) Get(ctx context.Context, userID uuid.UUID, topic models.Topic) (*models.Brief, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return m.store.briefs[bindingKey{userID, topic}], nil
}

func (m memBriefs) Upsert(ctx context.Context, brief *models.Brief) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.briefs[bindingKey{brief.UserID, brief.Topic}] = brief
	return nil
}

func (m memBriefs) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for k := range m.store.briefs {
		if k.userID == userID {
			delete(m.store.briefs, k)
		}
	}
	return nil
}

func (m memBriefs) DeleteAll(ctx context.Context) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.briefs = make(map[bindingKey]*models.Brief)
	return nil
}

type enqueueRecorder struct {
	mu   sync.Mutex
	jobs []*queue.Job
}

func (q *enqueueRecorder) Enqueue(ctx context.Context, job *queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *enqueueRecorder) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, fmt.Errorf("not implemented")
}

func (q *enqueueRecorder) Close() error { return nil }

func (q *enqueueRecorder) HealthCheck(ctx context.Context) error { return nil }

func newTestRefresher(remote *fakeRemote, store *memStore) (*BriefRefresher, *enqueueRecorder) {
	sessions := ai.NewSessionCache(remote, store, memThreads{store}, memBriefs{store}, zap.NewNop())
	jobs := &enqueueRecorder{}
	users := &fakeSurveyStore{profile: &models.SurveyProfile{Name: "Jordan", SpendingProfile: "saver"}}
	return NewBriefRefresher(users, sessions, jobs, zap.NewNop()), jobs
}

func topicPtr(t models.Topic) *models.Topic {
	return &t
}

func TestProcessJob_BriefRefresh(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{reply: "Good morning. 1. Save more."}
	store := newMemStore()
	refresher, _ := newTestRefresher(remote, store)

	userID := uuid.New()
	msg := &fakeMessage{job: queue.NewJob(queue.JobTypeBriefRefresh, userID, topicPtr(models.TopicGuardian))}

	if err := refresher.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob returned error: %v", err)
	}
	if !msg.acked {
		t.Error("successful job was not acked")
	}

	brief := store.briefs[bindingKey{userID, models.TopicGuardian}]
	if brief == nil {
		t.Fatal("no brief cached after refresh")
	}
	if brief.Content != "Good morning. 1. Save more." {
		t.Errorf("brief content = %q", brief.Content)
	}
}

func TestProcessJob_BriefRefreshMissingTopic(t *testing.T) {
	t.Parallel()

	refresher, _ := newTestRefresher(&fakeRemote{reply: "ok"}, newMemStore())

	msg := &fakeMessage{job: queue.NewJob(queue.JobTypeBriefRefresh, uuid.New(), nil)}
	err := refresher.ProcessJob(context.Background(), msg)
	if err == nil {
		t.Fatal("expected error for job without topic")
	}
	if !msg.nacked || !msg.requeued {
		t.Error("retryable failure should nack with requeue")
	}
}

func TestProcessJob_SessionReset(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	refresher, _ := newTestRefresher(&fakeRemote{reply: "ok"}, store)

	// Seed some cached state
	userID := uuid.New()
	store.assistants[models.TopicVitals] = &models.AssistantBinding{Topic: models.TopicVitals, AssistantID: "asst_old"}
	store.threads[bindingKey{userID, models.TopicVitals}] = &models.ConversationThread{UserID: userID}

	msg := &fakeMessage{job: queue.NewJob(queue.JobTypeSessionReset, userID, nil)}
	if err := refresher.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob returned error: %v", err)
	}
	if !msg.acked {
		t.Error("reset job was not acked")
	}
	if len(store.assistants) != 0 || len(store.threads) != 0 {
		t.Error("reset left cached bindings behind")
	}
}

func TestProcessJob_UnknownType(t *testing.T) {
	t.Parallel()

	refresher, _ := newTestRefresher(&fakeRemote{reply: "ok"}, newMemStore())

	msg := &fakeMessage{job: queue.NewJob(queue.JobType("bogus"), uuid.New(), nil)}
	if err := refresher.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("expected error for unknown job type")
	}
	if !msg.nacked || msg.requeued {
		t.Error("unknown job type should nack without requeue")
	}
}

func TestProcessJob_ThrottledRetryIsDelayed(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{sendErr: &ai.RemoteError{Op: "send message", StatusCode: http.StatusTooManyRequests}}
	refresher, jobs := newTestRefresher(remote, newMemStore())

	msg := &fakeMessage{job: queue.NewJob(queue.JobTypeBriefRefresh, uuid.New(), topicPtr(models.TopicScholar))}
	if err := refresher.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("throttled job should be handled, got error: %v", err)
	}
	if !msg.acked {
		t.Error("throttled job must be acked before re-enqueue")
	}
	if len(jobs.jobs) != 1 {
		t.Fatalf("got %d re-enqueued jobs, want 1", len(jobs.jobs))
	}

	delayed := jobs.jobs[0]
	if delayed.NotBefore == nil || !delayed.NotBefore.After(time.Now()) {
		t.Error("re-enqueued job has no future NotBefore")
	}
	if delayed.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", delayed.RetryCount)
	}
}

func TestProcessJob_RetryBudgetExhausted(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{sendErr: fmt.Errorf("connection refused")}
	refresher, _ := newTestRefresher(remote, newMemStore())

	job := queue.NewJob(queue.JobTypeBriefRefresh, uuid.New(), topicPtr(models.TopicGuardian))
	job.RetryCount = job.MaxRetries

	msg := &fakeMessage{job: job}
	if err := refresher.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("expected error after retry budget is exhausted")
	}
	if !msg.nacked || msg.requeued {
		t.Error("exhausted job should nack without requeue")
	}
}
