package portfolio_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/byteaxis/byteaxis-api/internal/lock"
	"github.com/byteaxis/byteaxis-api/internal/portfolio"
)

type fakeReader struct {
	raw   string
	err   error
	calls int
}

func (f *fakeReader) Query(_ context.Context, query string, _ map[string]any, dst any) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if query != portfolio.ProjectsQuery {
		return errors.New("unexpected query")
	}
	return json.Unmarshal([]byte(f.raw), dst)
}

const sampleResult = `[
  {"_id":"p1","title":"Harare Logistics","category":"Web App",
   "coverImage":{"asset":{"url":"https://cdn/cover1.jpg"}},
   "gallery":[{"asset":{"url":"https://cdn/g1.jpg"}},{"asset":null},{"asset":{"url":"https://cdn/g2.jpg"}}]},
  {"_id":"p2","title":"Bakery Brand","coverImage":{"asset":{"url":"https://cdn/cover2.jpg"}}},
  {"_id":"p3","title":"Gallery Only","gallery":[{"asset":{"url":"https://cdn/g3.jpg"}}]},
  {"_id":"p4","title":"No Images"}
]`

func TestProjectsMapping(t *testing.T) {
	svc := portfolio.NewService(&fakeReader{raw: sampleResult}, nil, zerolog.Nop())

	got := svc.Projects(context.Background())
	require.Equal(t, []portfolio.Project{
		{ID: "p1", Title: "Harare Logistics", Category: "Web App", Cover: "https://cdn/cover1.jpg", Images: []string{"https://cdn/g1.jpg", "https://cdn/g2.jpg"}},
		{ID: "p2", Title: "Bakery Brand", Category: "Project", Cover: "https://cdn/cover2.jpg", Images: []string{"https://cdn/cover2.jpg"}},
		{ID: "p3", Title: "Gallery Only", Category: "Project", Cover: "https://cdn/g3.jpg", Images: []string{"https://cdn/g3.jpg"}},
	}, got)
}

func TestProjectsStoreFailureReturnsEmpty(t *testing.T) {
	svc := portfolio.NewService(&fakeReader{err: errors.New("store: unavailable")}, nil, zerolog.Nop())
	got := svc.Projects(context.Background())
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestProjectsCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	reader := &fakeReader{raw: sampleResult}
	svc := portfolio.NewService(reader, portfolio.NewCache(client, time.Minute), zerolog.Nop())

	first := svc.Projects(context.Background())
	second := svc.Projects(context.Background())
	require.Equal(t, first, second)
	require.Equal(t, 1, reader.calls)

	mr.FastForward(2 * time.Minute)
	svc.Projects(context.Background())
	require.Equal(t, 2, reader.calls)
}

func TestProjectsFailureIsNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	reader := &fakeReader{err: errors.New("down")}
	svc := portfolio.NewService(reader, portfolio.NewCache(client, time.Minute), zerolog.Nop())
	require.Empty(t, svc.Projects(context.Background()))

	reader.err = nil
	reader.raw = sampleResult
	require.Len(t, svc.Projects(context.Background()), 3)
}

type slowReader struct {
	calls atomic.Int32
}

func (s *slowReader) Query(_ context.Context, _ string, _ map[string]any, dst any) error {
	s.calls.Add(1)
	time.Sleep(20 * time.Millisecond)
	return json.Unmarshal([]byte(sampleResult), dst)
}

func TestProjectsRefreshLockSingleQuery(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	reader := &slowReader{}
	locker := &lock.Locker{Client: client, Retry: 2 * time.Millisecond}
	svc := portfolio.NewService(reader, portfolio.NewCache(client, time.Minute), zerolog.Nop()).WithRefreshLock(locker)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.Len(t, svc.Projects(context.Background()), 3)
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), reader.calls.Load())
	require.False(t, mr.Exists("portfolio:projects:refresh"))
}

func TestListHandler(t *testing.T) {
	h := portfolio.Handler{Service: portfolio.NewService(&fakeReader{raw: sampleResult}, nil, zerolog.Nop())}
	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Projects []portfolio.Project `json:"projects"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Projects, 3)
}
