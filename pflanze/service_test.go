package pflanze_test

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pflanzen/errors"
	"pflanzen/logging"
	"pflanzen/pflanze"
	"pflanzen/pflanze/store"
)

func newService(t *testing.T, policy pflanze.VersionPolicy, notifier pflanze.Notifier) (*pflanze.Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	cfg := pflanze.DefaultServiceConfig()
	cfg.VersionPolicy = policy
	cfg.Notifier = notifier
	cfg.Logger = logging.NewNoopLogger()
	svc := pflanze.NewService(mem, cfg)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return svc, mem
}

func candidate(name string) *pflanze.Pflanze {
	return &pflanze.Pflanze{
		Name:        name,
		Pflanzentyp: pflanze.Gartenpflanze,
		Versandart:  pflanze.Versand,
		Preis:       11.1,
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, pflanze.VersionAtLeast, nil)

	saved, err := svc.Create(ctx, candidate("Alocasia"))
	require.NoError(t, err)
	assert.Len(t, saved.ID, 36)
	assert.Equal(t, int64(0), saved.Version)
	assert.False(t, saved.CreatedAt.IsZero())

	found, err := svc.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Alocasia", found.Name)
}

func TestService_Create_Invalid(t *testing.T) {
	svc, mem := newService(t, pflanze.VersionAtLeast, nil)

	c := candidate("")
	c.Versandart = ""
	_, err := svc.Create(context.Background(), c)

	var invalid *pflanze.PflanzeInvalid
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, []string{"name", "versandart"}, invalid.Msg.Fields())
	assert.Equal(t, errors.ErrCodeValidation, errors.GetErrorCode(err))
	assert.Equal(t, 0, mem.Len())
}

func TestService_Create_NameExists(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, pflanze.VersionAtLeast, nil)

	first, err := svc.Create(ctx, candidate("Alocasia"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, candidate("Alocasia"))
	var exists *pflanze.NameExists
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, first.ID, exists.ID)
	assert.Equal(t, `Der Name "Alocasia" existiert bereits bei `+first.ID+".", err.Error())
}

func TestService_Create_ArtikelnummerExists(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, pflanze.VersionAtLeast, nil)

	a := candidate("Alocasia")
	a.Artikelnummer = pflanze.Ptr("96385074")
	first, err := svc.Create(ctx, a)
	require.NoError(t, err)

	m := candidate("Monstera")
	m.Artikelnummer = pflanze.Ptr("96385074")
	_, err = svc.Create(ctx, m)
	var exists *pflanze.ArtikelnummerExists
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, first.ID, exists.ID)
}

func TestService_Create_Notifies(t *testing.T) {
	var (
		mu       sync.Mutex
		notified []string
	)
	notifier := pflanze.NotifierFunc(func(ctx context.Context, p *pflanze.Pflanze) error {
		mu.Lock()
		defer mu.Unlock()
		notified = append(notified, p.Name)
		return nil
	})
	svc, _ := newService(t, pflanze.VersionAtLeast, notifier)

	_, err := svc.Create(context.Background(), candidate("Alocasia"))
	require.NoError(t, err)
	require.NoError(t, svc.Close(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"Alocasia"}, notified)
}

func TestService_Create_NotifierFailureIgnored(t *testing.T) {
	var calls atomic.Int32
	notifier := pflanze.NotifierFunc(func(ctx context.Context, p *pflanze.Pflanze) error {
		calls.Add(1)
		return stderrors.New("smtp down")
	})
	svc, _ := newService(t, pflanze.VersionAtLeast, notifier)

	// 调用方已取消的 ctx 不影响后台通知
	ctx, cancel := context.WithCancel(context.Background())
	saved, err := svc.Create(ctx, candidate("Alocasia"))
	cancel()
	require.NoError(t, err)
	require.NotNil(t, saved)

	require.NoError(t, svc.Close(context.Background()))
	assert.Equal(t, int32(1), calls.Load())
}

func TestService_Close_Timeout(t *testing.T) {
	release := make(chan struct{})
	notifier := pflanze.NotifierFunc(func(ctx context.Context, p *pflanze.Pflanze) error {
		<-release
		return nil
	})
	svc, _ := newService(t, pflanze.VersionAtLeast, notifier)
	defer close(release)

	_, err := svc.Create(context.Background(), candidate("Alocasia"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.Close(ctx), context.DeadlineExceeded)
}

func TestService_Update(t *testing.T) {
	for _, policy := range []pflanze.VersionPolicy{pflanze.VersionAtLeast, pflanze.VersionExact} {
		t.Run(policy.String(), func(t *testing.T) {
			ctx := context.Background()
			svc, _ := newService(t, policy, nil)

			saved, err := svc.Create(ctx, candidate("Alocasia"))
			require.NoError(t, err)

			next := candidate("Alocasia")
			next.Preis = 20
			updated, err := svc.Update(ctx, saved.ID, next, "0")
			require.NoError(t, err)
			assert.Equal(t, int64(1), updated.Version)
			assert.Equal(t, 20.0, updated.Preis)
			assert.Equal(t, saved.ID, updated.ID)
			assert.True(t, updated.CreatedAt.Equal(saved.CreatedAt))

			// 落后的版本在两种策略下都被拒绝
			_, err = svc.Update(ctx, saved.ID, next, "0")
			var outdated *pflanze.VersionOutdated
			require.ErrorAs(t, err, &outdated)
			assert.Equal(t, `Die Versionsnummer "0" ist nicht aktuell.`, err.Error())
		})
	}
}

func TestService_Update_AheadVersion(t *testing.T) {
	ctx := context.Background()

	lenient, _ := newService(t, pflanze.VersionAtLeast, nil)
	saved, err := lenient.Create(ctx, candidate("Alocasia"))
	require.NoError(t, err)
	updated, err := lenient.Update(ctx, saved.ID, candidate("Alocasia"), "7")
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.Version)

	strict, _ := newService(t, pflanze.VersionExact, nil)
	saved, err = strict.Create(ctx, candidate("Alocasia"))
	require.NoError(t, err)
	_, err = strict.Update(ctx, saved.ID, candidate("Alocasia"), "7")
	var outdated *pflanze.VersionOutdated
	require.ErrorAs(t, err, &outdated)
	assert.Equal(t, int64(7), outdated.Version)
}

func TestService_Update_VersionInvalid(t *testing.T) {
	ctx := context.Background()
	svc, mem := newService(t, pflanze.VersionAtLeast, nil)
	saved, err := svc.Create(ctx, candidate("Alocasia"))
	require.NoError(t, err)

	for _, token := range []string{"abc", "", "1.5", " 1"} {
		_, err := svc.Update(ctx, saved.ID, candidate("Neu"), token)
		var invalid *pflanze.VersionInvalid
		require.ErrorAs(t, err, &invalid, "token %q", token)
		assert.Equal(t, token, invalid.Version)
	}

	// 存储未被修改
	current, err := mem.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alocasia", current.Name)
	assert.Equal(t, int64(0), current.Version)
}

func TestService_Update_NotExists(t *testing.T) {
	svc, _ := newService(t, pflanze.VersionAtLeast, nil)
	_, err := svc.Update(context.Background(), "00000000-0000-0000-0000-000000000099", candidate("Alocasia"), "0")
	var notExists *pflanze.PflanzeNotExists
	require.ErrorAs(t, err, &notExists)
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetErrorCode(err))
}

func TestService_Update_Uniqueness(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, pflanze.VersionAtLeast, nil)

	a := candidate("Alocasia")
	a.Artikelnummer = pflanze.Ptr("4006381333931")
	alocasia, err := svc.Create(ctx, a)
	require.NoError(t, err)
	monstera, err := svc.Create(ctx, candidate("Monstera"))
	require.NoError(t, err)

	// 保留自己的名称不算冲突
	same := candidate("Alocasia")
	same.Artikelnummer = pflanze.Ptr("4006381333931")
	_, err = svc.Update(ctx, alocasia.ID, same, "0")
	require.NoError(t, err)

	_, err = svc.Update(ctx, monstera.ID, candidate("Alocasia"), "0")
	var nameExists *pflanze.NameExists
	require.ErrorAs(t, err, &nameExists)
	assert.Equal(t, alocasia.ID, nameExists.ID)

	m := candidate("Monstera")
	m.Artikelnummer = pflanze.Ptr("4006381333931")
	_, err = svc.Update(ctx, monstera.ID, m, "0")
	var nrExists *pflanze.ArtikelnummerExists
	require.ErrorAs(t, err, &nrExists)
}

func TestService_Update_Invalid(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, pflanze.VersionAtLeast, nil)
	saved, err := svc.Create(ctx, candidate("Alocasia"))
	require.NoError(t, err)

	bad := candidate("Alocasia")
	bad.Wuchshoehe = pflanze.Ptr(9.0)
	_, err = svc.Update(ctx, saved.ID, bad, "0")
	var invalid *pflanze.PflanzeInvalid
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "9 ist keine gültige Höhe.", invalid.Msg["wuchshoehe"])
}

// 严格策略下并发更新同一版本只有一个成功
func TestService_Update_ExactConcurrent(t *testing.T) {
	ctx := context.Background()
	svc, mem := newService(t, pflanze.VersionExact, nil)
	saved, err := svc.Create(ctx, candidate("Alocasia"))
	require.NoError(t, err)

	const n = 8
	var (
		wg sync.WaitGroup
		ok atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Update(ctx, saved.ID, candidate("Alocasia"), "0"); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	current, err := mem.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), current.Version)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, pflanze.VersionAtLeast, nil)
	saved, err := svc.Create(ctx, candidate("Alocasia"))
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.Delete(ctx, saved.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	found, err := svc.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestService_Find(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, pflanze.VersionAtLeast, nil)

	for _, name := range []string{"Monstera", "Alocasia", "Calathea"} {
		_, err := svc.Create(ctx, candidate(name))
		require.NoError(t, err)
	}

	names := func(c pflanze.Criteria) []string {
		result, err := svc.Find(ctx, c)
		require.NoError(t, err)
		out := []string{}
		for _, p := range result {
			out = append(out, p.Name)
		}
		return out
	}

	assert.Equal(t, []string{"Alocasia", "Calathea", "Monstera"}, names(pflanze.Criteria{}))
	assert.Equal(t, []string{"Alocasia", "Calathea"}, names(pflanze.Criteria{Name: pflanze.Ptr("al")}))
	assert.Equal(t, []string{"Alocasia", "Calathea", "Monstera"}, names(pflanze.Criteria{Name: pflanze.Ptr("xxxxxxxxxxx")}))
	assert.Empty(t, names(pflanze.Criteria{Immergruen: true}))
}

type failingStore struct {
	*store.Memory
}

func (failingStore) Find(context.Context, pflanze.Filter) ([]*pflanze.Pflanze, error) {
	return nil, stderrors.New("connection refused")
}

func TestService_StoreFailure(t *testing.T) {
	cfg := pflanze.DefaultServiceConfig()
	cfg.Logger = logging.NewNoopLogger()
	svc := pflanze.NewService(failingStore{store.NewMemory()}, cfg)

	_, err := svc.Find(context.Background(), pflanze.Criteria{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDatabase, errors.GetErrorCode(err))
	var se pflanze.ServiceError
	assert.False(t, stderrors.As(err, &se))
}
