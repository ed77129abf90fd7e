package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"synxronedit/internal/domain"
)

type callbackFixture struct {
	files    *fakeFileStore
	content  *fakeStorage
	sessions *SessionService
	pending  *PendingForceSaves
	fanout   *fakePublisher
	svc      *CallbackService
	file     *domain.File
	token    string
	docSrv   *httptest.Server
}

const editedBody = "edited document bytes"

func newCallbackFixture(t *testing.T) *callbackFixture {
	t.Helper()

	file := &domain.File{
		UUID:      uuid.New(),
		Name:      "report.docx",
		MIMEType:  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		SizeBytes: 10,
		OwnerID:   "user-1",
		UpdatedAt: time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC),
	}

	files := newFakeFileStore(file)
	content := newFakeStorage()
	require.NoError(t, content.Write(context.Background(), file.UUID.String(), []byte("original")))

	sessions := NewSessionService(newFakeSessionStore(), 24*time.Hour)
	session, err := sessions.Issue(context.Background(), file.OwnerID, file.UUID)
	require.NoError(t, err)

	docSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(editedBody))
	}))
	t.Cleanup(docSrv.Close)

	pending := NewPendingForceSaves(time.Hour)
	fanout := &fakePublisher{}
	svc := NewCallbackService(files, content, sessions, pending, fanout, 5*time.Second)

	return &callbackFixture{
		files:    files,
		content:  content,
		sessions: sessions,
		pending:  pending,
		fanout:   fanout,
		svc:      svc,
		file:     file,
		token:    session.Token,
		docSrv:   docSrv,
	}
}

func (f *callbackFixture) currentKey(t *testing.T) string {
	t.Helper()
	file, err := f.files.GetByUUID(context.Background(), f.file.UUID)
	require.NoError(t, err)
	return DocumentKey(file.UUID, file.UpdatedAt)
}

func TestCallback_Status2_SavesAndRotatesKey(t *testing.T) {
	t.Parallel()

	f := newCallbackFixture(t)
	key := f.currentKey(t)

	err := f.svc.Process(context.Background(), f.file.UUID, f.token, &domain.CallbackRequest{
		Key:    key,
		Status: domain.CallbackStatusSave,
		URL:    f.docSrv.URL,
	})
	require.NoError(t, err)

	require.Equal(t, []byte(editedBody), f.content.bytes(f.file.UUID.String()))
	// Статус 2 всегда продвигает updated_at, следующий ключ другой
	require.NotEqual(t, key, f.currentKey(t))

	require.Len(t, f.fanout.byName(domain.EventCallbackReceived), 1)
	require.Len(t, f.fanout.byName(domain.EventDocumentSaved), 1)
}

func TestCallback_Status1And4_AcknowledgeOnly(t *testing.T) {
	t.Parallel()

	f := newCallbackFixture(t)
	key := f.currentKey(t)

	for _, status := range []int{domain.CallbackStatusEditing, domain.CallbackStatusClosedNoSave} {
		err := f.svc.Process(context.Background(), f.file.UUID, f.token, &domain.CallbackRequest{
			Key:    key,
			Status: status,
		})
		require.NoError(t, err)
	}

	require.Equal(t, []byte("original"), f.content.bytes(f.file.UUID.String()))
	require.Equal(t, key, f.currentKey(t))
	require.Empty(t, f.fanout.byName(domain.EventDocumentSaved))
}

func TestCallback_KeyMismatch_LeavesFileUntouched(t *testing.T) {
	t.Parallel()

	f := newCallbackFixture(t)

	err := f.svc.Process(context.Background(), f.file.UUID, f.token, &domain.CallbackRequest{
		Key:    "stale-key",
		Status: domain.CallbackStatusSave,
		URL:    f.docSrv.URL,
	})
	require.ErrorIs(t, err, domain.ErrKeyMismatch)

	// Запоздавший коллбэк не должен затирать более новое содержимое
	require.Equal(t, []byte("original"), f.content.bytes(f.file.UUID.String()))
}

// Два параллельных коллбэка статуса 2 с одним ключом: первый держит
// замок файла, пока качает документ, второй стоит в очереди. После
// ротации ключа первым второй обязан отвергнуться по несовпадению
// ключа, а не затереть более новые байты.
func TestCallback_Status2_ConcurrentSameKey_SecondRejected(t *testing.T) {
	t.Parallel()

	f := newCallbackFixture(t)
	ctx := context.Background()
	k0 := f.currentKey(t)

	// Отдельный грант для второго коллбэка: первый отзывается после статуса 2
	second, err := f.sessions.Issue(ctx, f.file.OwnerID, f.file.UUID)
	require.NoError(t, err)

	fetching := make(chan struct{})
	release := make(chan struct{})
	slowSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(fetching)
		<-release
		w.Write([]byte("first writer"))
	}))
	defer slowSrv.Close()

	lateSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("late writer"))
	}))
	defer lateSrv.Close()

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- f.svc.Process(ctx, f.file.UUID, f.token, &domain.CallbackRequest{
			Key:    k0,
			Status: domain.CallbackStatusSave,
			URL:    slowSrv.URL,
		})
	}()

	// Первый коллбэк дошёл до скачивания и держит замок файла
	<-fetching

	lateDone := make(chan error, 1)
	go func() {
		lateDone <- f.svc.Process(ctx, f.file.UUID, second.Token, &domain.CallbackRequest{
			Key:    k0,
			Status: domain.CallbackStatusSave,
			URL:    lateSrv.URL,
		})
	}()

	// Даем второму коллбэку встать в очередь на замке, затем отпускаем первый
	time.Sleep(50 * time.Millisecond)
	close(release)

	require.NoError(t, <-firstDone)
	require.ErrorIs(t, <-lateDone, domain.ErrKeyMismatch)

	// Побеждают байты первого коллбэка, ключ ротирован ровно один раз
	require.Equal(t, []byte("first writer"), f.content.bytes(f.file.UUID.String()))
	k1 := f.currentKey(t)
	require.NotEqual(t, k0, k1)
	require.Len(t, f.fanout.byName(domain.EventDocumentSaved), 1)
}

func TestCallback_Status2_RevokesGrant(t *testing.T) {
	t.Parallel()

	f := newCallbackFixture(t)
	ctx := context.Background()

	err := f.svc.Process(ctx, f.file.UUID, f.token, &domain.CallbackRequest{
		Key:    f.currentKey(t),
		Status: domain.CallbackStatusSave,
		URL:    f.docSrv.URL,
	})
	require.NoError(t, err)

	// Сессия закрыта, грант отозван: повторное использование токена отвергается
	_, err = f.sessions.Validate(ctx, f.file.UUID, f.token)
	require.ErrorIs(t, err, domain.ErrInvalidGrant)
}

func TestCallback_Status4_RevokesGrant(t *testing.T) {
	t.Parallel()

	f := newCallbackFixture(t)
	ctx := context.Background()

	err := f.svc.Process(ctx, f.file.UUID, f.token, &domain.CallbackRequest{
		Key:    f.currentKey(t),
		Status: domain.CallbackStatusClosedNoSave,
	})
	require.NoError(t, err)

	_, err = f.sessions.Validate(ctx, f.file.UUID, f.token)
	require.ErrorIs(t, err, domain.ErrInvalidGrant)
}

func TestCallback_Status2_FetchFailure_KeepsGrant(t *testing.T) {
	t.Parallel()

	f := newCallbackFixture(t)
	ctx := context.Background()

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	err := f.svc.Process(ctx, f.file.UUID, f.token, &domain.CallbackRequest{
		Key:    f.currentKey(t),
		Status: domain.CallbackStatusSave,
		URL:    failing.URL,
	})
	require.ErrorIs(t, err, domain.ErrUpstreamFetch)

	// Редактор повторит коллбэк после {error:1}, грант ещё должен действовать
	_, err = f.sessions.Validate(ctx, f.file.UUID, f.token)
	require.NoError(t, err)
}

func TestCallback_Status6_AutoSave_PersistsWithoutRotation(t *testing.T) {
	t.Parallel()

	f := newCallbackFixture(t)
	key := f.currentKey(t)
	f.pending.Put(key, domain.ForceSaveSourceAuto)

	err := f.svc.Process(context.Background(), f.file.UUID, f.token, &domain.CallbackRequest{
		Key:    key,
		Status: domain.CallbackStatusForceSave,
		URL:    f.docSrv.URL,
	})
	require.NoError(t, err)

	require.Equal(t, []byte(editedBody), f.content.bytes(f.file.UUID.String()))
	// auto-save: байты новые, ключ прежний — живая сессия редактора не рвётся
	require.Equal(t, key, f.currentKey(t))

	_, ok := f.pending.Take(key)
	require.False(t, ok, "pending entry must be consumed")

	events := f.fanout.byName(domain.EventDocumentForceSaved)
	require.Len(t, events, 1)
	payload := events[0].payload.(domain.CallbackEvent)
	require.Equal(t, domain.ForceSaveSourceAuto, payload.Source)
	require.NotNil(t, payload.Success)
	require.True(t, *payload.Success)
}

func TestCallback_Status6_SaveAndClose_RotatesKey(t *testing.T) {
	t.Parallel()

	f := newCallbackFixture(t)
	key := f.currentKey(t)
	f.pending.Put(key, domain.ForceSaveSourceClose)

	err := f.svc.Process(context.Background(), f.file.UUID, f.token, &domain.CallbackRequest{
		Key:    key,
		Status: domain.CallbackStatusForceSave,
		URL:    f.docSrv.URL,
	})
	require.NoError(t, err)

	require.Equal(t, []byte(editedBody), f.content.bytes(f.file.UUID.String()))
	require.NotEqual(t, key, f.currentKey(t))
}

func TestCallback_Status6_NoPendingTag_PersistsWithoutRotation(t *testing.T) {
	t.Parallel()

	f := newCallbackFixture(t)
	key := f.currentKey(t)

	err := f.svc.Process(context.Background(), f.file.UUID, f.token, &domain.CallbackRequest{
		Key:    key,
		Status: domain.CallbackStatusForceSave,
		URL:    f.docSrv.URL,
	})
	require.NoError(t, err)

	require.Equal(t, []byte(editedBody), f.content.bytes(f.file.UUID.String()))
	require.Equal(t, key, f.currentKey(t))
}

func TestCallback_Status6_PendingConsumedEvenOnFetchFailure(t *testing.T) {
	t.Parallel()

	f := newCallbackFixture(t)
	key := f.currentKey(t)
	f.pending.Put(key, domain.ForceSaveSourceClose)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	err := f.svc.Process(context.Background(), f.file.UUID, f.token, &domain.CallbackRequest{
		Key:    key,
		Status: domain.CallbackStatusForceSave,
		URL:    failing.URL,
	})
	require.ErrorIs(t, err, domain.ErrUpstreamFetch)

	// Запись снимается независимо от исхода, иначе карта ожиданий течёт
	_, ok := f.pending.Take(key)
	require.False(t, ok)
	require.Equal(t, []byte("original"), f.content.bytes(f.file.UUID.String()))
}

func TestCallback_Status7_ClearsPendingAndReportsFailure(t *testing.T) {
	t.Parallel()

	f := newCallbackFixture(t)
	key := f.currentKey(t)
	f.pending.Put(key, domain.ForceSaveSourceAuto)

	err := f.svc.Process(context.Background(), f.file.UUID, f.token, &domain.CallbackRequest{
		Key:    key,
		Status: domain.CallbackStatusForceSaveError,
	})
	require.NoError(t, err)

	_, ok := f.pending.Take(key)
	require.False(t, ok)

	events := f.fanout.byName(domain.EventDocumentForceSaved)
	require.Len(t, events, 1)
	payload := events[0].payload.(domain.CallbackEvent)
	require.NotNil(t, payload.Success)
	require.False(t, *payload.Success)
	require.Equal(t, []byte("original"), f.content.bytes(f.file.UUID.String()))
}

func TestCallback_Status3AndUnknown_AcknowledgeOnly(t *testing.T) {
	t.Parallel()

	f := newCallbackFixture(t)
	key := f.currentKey(t)

	for _, status := range []int{domain.CallbackStatusSaveError, 99} {
		err := f.svc.Process(context.Background(), f.file.UUID, f.token, &domain.CallbackRequest{
			Key:    key,
			Status: status,
		})
		require.NoError(t, err)
	}

	require.Equal(t, []byte("original"), f.content.bytes(f.file.UUID.String()))
	require.Equal(t, key, f.currentKey(t))
}

func TestCallback_InvalidToken(t *testing.T) {
	t.Parallel()

	f := newCallbackFixture(t)

	err := f.svc.Process(context.Background(), f.file.UUID, "bogus", &domain.CallbackRequest{
		Key:    f.currentKey(t),
		Status: domain.CallbackStatusSave,
		URL:    f.docSrv.URL,
	})
	require.ErrorIs(t, err, domain.ErrInvalidGrant)
	require.Equal(t, []byte("original"), f.content.bytes(f.file.UUID.String()))
}

// Сквозной сценарий: force-save без тега не ротирует ключ, force-save
// с тегом save-and-close ротирует
func TestCallback_ForceSaveScenario(t *testing.T) {
	t.Parallel()

	f := newCallbackFixture(t)
	ctx := context.Background()
	k0 := f.currentKey(t)

	// Коллбэк 6 без предшествующего запроса force-save: байты записаны, ключ прежний
	err := f.svc.Process(ctx, f.file.UUID, f.token, &domain.CallbackRequest{
		Key:    k0,
		Status: domain.CallbackStatusForceSave,
		URL:    f.docSrv.URL,
	})
	require.NoError(t, err)
	require.Equal(t, k0, f.currentKey(t))

	// Явный запрос save-and-close, затем его коллбэк: ключ ротируется
	f.pending.Put(k0, domain.ForceSaveSourceClose)
	err = f.svc.Process(ctx, f.file.UUID, f.token, &domain.CallbackRequest{
		Key:    k0,
		Status: domain.CallbackStatusForceSave,
		URL:    f.docSrv.URL,
	})
	require.NoError(t, err)

	k1 := f.currentKey(t)
	require.NotEqual(t, k0, k1)

	// Повтор старого коллбэка с ключом k0 теперь отвергается
	err = f.svc.Process(ctx, f.file.UUID, f.token, &domain.CallbackRequest{
		Key:    k0,
		Status: domain.CallbackStatusSave,
		URL:    f.docSrv.URL,
	})
	require.ErrorIs(t, err, domain.ErrKeyMismatch)
}
