package app

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dokan-next/internal/config"
	"github.com/dokan-next/internal/models"
	"github.com/dokan-next/internal/provider"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeService struct {
	name     string
	startErr error
	stopped  atomic.Bool
}

func (f *fakeService) Name() string { return f.name }

func (f *fakeService) Start(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	<-ctx.Done()
	return nil
}

func (f *fakeService) Stop(ctx context.Context) error {
	f.stopped.Store(true)
	return nil
}

func TestRunnerStopsAllServicesOnFailure(t *testing.T) {
	healthy := &fakeService{name: "healthy"}
	broken := &fakeService{name: "broken", startErr: errors.New("bind failed")}
	runner := NewRunner(healthy, broken)

	var order []string
	runner.OnShutdown(func() { order = append(order, "first") })
	runner.OnShutdown(func() { order = append(order, "second") })

	err := runner.Run(context.Background(), time.Second, nil)
	require.EqualError(t, err, "bind failed")
	assert.True(t, healthy.stopped.Load())
	assert.True(t, broken.stopped.Load())
	assert.Equal(t, []string{"second", "first"}, order)
	assert.Equal(t, []string{"healthy", "broken"}, runner.Names())
}

func TestRunnerReturnsNilOnCancel(t *testing.T) {
	svc := &fakeService{name: "loop"}
	runner := NewRunner(svc)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	require.NoError(t, runner.Run(ctx, time.Second, nil))
	assert.True(t, svc.stopped.Load())
}

func TestRunnerWithoutServices(t *testing.T) {
	assert.Error(t, NewRunner().Run(context.Background(), time.Second, nil))
	assert.Error(t, RunWithOptions(nil, Options{}))
}

func TestBuildRunnerValidatesInput(t *testing.T) {
	_, err := BuildRunner(nil, ModeAll)
	assert.Error(t, err)
	_, err = BuildRunner(&config.Config{}, "batch")
	assert.Error(t, err)
	assert.Error(t, Run(Options{}))
}

func newAppTestContainer(t *testing.T, cfg *config.Config) *provider.Container {
	t.Helper()
	dsn := "file:app_" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return provider.NewContainerWithDB(cfg, db)
}

func TestBuildRunnerServicesByMode(t *testing.T) {
	cfg := &config.Config{
		Server:      config.ServerConfig{Host: "127.0.0.1", Port: "0", Mode: "debug"},
		Reservation: config.ReservationConfig{TTLMinutes: 15, SweepBatchSize: 10},
	}

	cases := []struct {
		mode string
		want []string
	}{
		{ModeAPI, []string{"http"}},
		{ModeWorker, []string{"maintenance"}},
		{ModeAll, []string{"http", "maintenance"}},
	}
	for _, tc := range cases {
		t.Run(tc.mode, func(t *testing.T) {
			runner, err := buildRunner(cfg, tc.mode, newAppTestContainer(t, cfg))
			require.NoError(t, err)
			assert.Equal(t, tc.want, runner.Names())
			assert.Len(t, runner.cleanups, 1)
		})
	}
}

func TestNormalizeOptions(t *testing.T) {
	opts := normalizeOptions(Options{Config: &config.Config{Server: config.ServerConfig{ShutdownTimeoutSeconds: 3}}})
	assert.Equal(t, ModeAll, opts.Mode)
	assert.Equal(t, 3*time.Second, opts.ShutdownTimeout)
	assert.NotNil(t, opts.Logger)

	opts = normalizeOptions(Options{Mode: ModeAPI})
	assert.Equal(t, 10*time.Second, opts.ShutdownTimeout)
	assert.True(t, ValidMode(opts.Mode))
	assert.False(t, ValidMode("batch"))
}

func TestHTTPServiceConfig(t *testing.T) {
	svc := NewHTTPService(config.ServerConfig{Host: "127.0.0.1", Port: "9000", ReadTimeoutSeconds: 5}, nil)
	assert.Equal(t, "http", svc.Name())
	assert.Equal(t, "127.0.0.1:9000", svc.Addr())
	assert.Equal(t, 5*time.Second, svc.server.ReadTimeout)
	assert.Zero(t, svc.server.WriteTimeout)
	require.NoError(t, svc.Stop(context.Background()))
}
