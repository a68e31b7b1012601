package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartupOrder(t *testing.T) {
	h := newHarness(t)

	manifest := NewManifest(
		Define("gamma", Instance(&gamma{h.base("gamma")}), WithPriority(5)),
		Define("alpha", Instance(&alpha{h.base("alpha")}), WithPriority(0)),
		Define("beta", Instance(&beta{h.base("beta")})),
		Define("delta", Instance(&delta{h.base("delta")}), WithPriority(5)),
	)

	o := h.started(t, manifest)
	assert.True(t, o.Initialized())
	assert.Equal(t, []string{"alpha", "gamma", "delta", "beta"}, h.events.filter("init:"))

	require.NoError(t, o.Shutdown(context.Background()))
	assert.Equal(t, []string{"beta", "delta", "gamma", "alpha"}, h.events.filter("deinit:"))
	assert.False(t, o.Initialized())
}

func TestStartupFailureIsolation(t *testing.T) {
	t.Run("InitializeErrorMarksFailed", func(t *testing.T) {
		h := newHarness(t)
		broken := &beta{h.base("beta")}
		broken.initErr = errors.New("no device")

		o := h.started(t, NewManifest(
			Define("alpha", Instance(&alpha{h.base("alpha")}), WithPriority(0)),
			Define("beta", Instance(broken), WithPriority(1)),
			Define("gamma", Instance(&gamma{h.base("gamma")}), WithPriority(2)),
		))

		assert.Equal(t, []string{"alpha", "gamma"}, h.events.filter("init:"))

		d, ok := h.registry.Get("beta")
		require.True(t, ok)
		assert.Equal(t, StateFailed, d.State)
		assert.True(t, IsInitializationError(d.Err))
		assert.ErrorContains(t, d.Err, "no device")

		require.NoError(t, o.Shutdown(context.Background()))
		assert.Equal(t, []string{"gamma", "alpha"}, h.events.filter("deinit:"),
			"failed services are not torn down")
	})

	t.Run("InitializePanicMarksFailed", func(t *testing.T) {
		h := newHarness(t)
		exploding := &beta{h.base("beta")}
		exploding.initPanic = true

		h.started(t, NewManifest(
			Define("beta", Instance(exploding), WithPriority(0)),
			Define("alpha", Instance(&alpha{h.base("alpha")}), WithPriority(1)),
		))

		d, ok := h.registry.Get("beta")
		require.True(t, ok)
		assert.Equal(t, StateFailed, d.State)
		assert.ErrorContains(t, d.Err, "panic: init exploded")
		assert.Equal(t, []string{"alpha"}, h.events.filter("init:"))
	})

	t.Run("ConstructorErrorSkipsService", func(t *testing.T) {
		h := newHarness(t)

		h.started(t, NewManifest(
			Define("broken", func() (Service, error) { return nil, errors.New("bad config") }),
			Define("nil", func() (Service, error) { return nil, nil }),
			Define("no-ctor", nil),
			Define("alpha", Instance(&alpha{h.base("alpha")})),
		))

		assert.Equal(t, 1, h.registry.Len())
		_, ok := h.registry.Get("broken")
		assert.False(t, ok)
		assert.Equal(t, float64(3), counterValue(t, h.promReg, "icecold_lifecycle_failures_total",
			map[string]string{LabelPhase: PhaseStartup}))
	})

	t.Run("DuplicateTypeSkipped", func(t *testing.T) {
		h := newHarness(t)

		h.started(t, NewManifest(
			Define("alpha-1", Instance(&alpha{h.base("alpha-1")}), WithPriority(0)),
			Define("alpha-2", Instance(&alpha{h.base("alpha-2")}), WithPriority(1)),
		))

		assert.Equal(t, []string{"alpha-1"}, h.events.filter("init:"))
		assert.Equal(t, 1, h.registry.Len())
	})
}

func TestStartupFailFast(t *testing.T) {
	h := newHarness(t)
	broken := &beta{h.base("beta")}
	broken.initErr = errors.New("no device")

	o := h.orchestrator(NewManifest(
		Define("alpha", Instance(&alpha{h.base("alpha")}), WithPriority(0)),
		Define("gamma", Instance(&gamma{h.base("gamma")}), WithPriority(1)),
		Define("beta", Instance(broken), WithPriority(2)),
		Define("delta", Instance(&delta{h.base("delta")}), WithPriority(3)),
	), WithFailFast(true))

	var initialized bool
	o.OnInitialized().Subscribe(func() { initialized = true })

	err := o.Startup(context.Background())
	require.Error(t, err)
	assert.True(t, IsInitializationError(err))

	assert.Equal(t, []string{"alpha", "gamma"}, h.events.filter("init:"))
	assert.Equal(t, []string{"gamma", "alpha"}, h.events.filter("deinit:"))
	assert.False(t, initialized)
	assert.False(t, o.Initialized())

	// Shutdown after a fail-fast abort has nothing left to do.
	require.NoError(t, o.Shutdown(context.Background()))
	assert.Len(t, h.events.filter("deinit:"), 2)
}

func TestStartupRunsOnce(t *testing.T) {
	h := newHarness(t)
	o := h.orchestrator(NewManifest(Define("alpha", Instance(&alpha{h.base("alpha")}))))

	var fired int
	o.OnInitialized().Subscribe(func() { fired++ })

	require.NoError(t, o.Startup(context.Background()))
	require.NoError(t, o.Startup(context.Background()))

	assert.Equal(t, 1, fired)
	assert.Equal(t, []string{"alpha"}, h.events.filter("init:"))
}

func TestStartupCancelled(t *testing.T) {
	h := newHarness(t)
	o := h.orchestrator(NewManifest(Define("alpha", Instance(&alpha{h.base("alpha")}))))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := o.Startup(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.events.filter("init:"))
}

func TestShutdown(t *testing.T) {
	t.Run("CollectsErrorsWithoutStopping", func(t *testing.T) {
		h := newHarness(t)
		a := &alpha{h.base("alpha")}
		a.deinitErr = errors.New("flush failed")
		g := &gamma{h.base("gamma")}
		g.deinitErr = errors.New("socket busy")

		o := h.started(t, NewManifest(
			Define("alpha", Instance(a), WithPriority(0)),
			Define("beta", Instance(&beta{h.base("beta")}), WithPriority(1)),
			Define("gamma", Instance(g), WithPriority(2)),
		))

		err := o.Shutdown(context.Background())
		require.Error(t, err)
		assert.True(t, IsDeinitializationError(err))
		assert.ErrorContains(t, err, "flush failed")
		assert.ErrorContains(t, err, "socket busy")
		assert.Equal(t, []string{"gamma", "beta", "alpha"}, h.events.filter("deinit:"))
	})

	t.Run("Idempotent", func(t *testing.T) {
		h := newHarness(t)
		o := h.started(t, NewManifest(Define("alpha", Instance(&alpha{h.base("alpha")}))))

		var fired int
		o.OnDeinitialized().Subscribe(func() { fired++ })

		require.NoError(t, o.Shutdown(context.Background()))
		require.NoError(t, o.Shutdown(context.Background()))

		assert.Equal(t, 1, fired)
		assert.Equal(t, []string{"alpha"}, h.events.filter("deinit:"))
	})

	t.Run("ReleasesInstances", func(t *testing.T) {
		h := newHarness(t)
		o := h.started(t, NewManifest(Define("alpha", Instance(&alpha{h.base("alpha")}))))

		_, ok := Resolve[*alpha](h.registry)
		require.True(t, ok)

		require.NoError(t, o.Shutdown(context.Background()))
		assert.Zero(t, h.registry.Len())
		_, err := Lookup[*alpha](h.registry)
		assert.True(t, IsNotFound(err))
	})

	t.Run("PublishesStateGauge", func(t *testing.T) {
		h := newHarness(t)
		broken := &beta{h.base("beta")}
		broken.initErr = errors.New("nope")

		h.started(t, NewManifest(
			Define("alpha", Instance(&alpha{h.base("alpha")})),
			Define("beta", Instance(broken)),
		))

		assert.Equal(t, float64(1), counterValue(t, h.promReg, "icecold_lifecycle_services",
			map[string]string{LabelState: "running"}))
		assert.Equal(t, float64(1), counterValue(t, h.promReg, "icecold_lifecycle_services",
			map[string]string{LabelState: "failed"}))
	})
}

func TestStartupAfterShutdown(t *testing.T) {
	t.Run("QuitGrantedBeforeStartup", func(t *testing.T) {
		h := newHarness(t)
		svc := &alpha{h.base("alpha")}
		o := h.orchestrator(NewManifest(Define("alpha", Instance(svc))))
		q := h.coordinator(o)

		res := q.RequestQuit(context.Background())
		require.True(t, res.Granted())

		err := o.Startup(context.Background())
		assert.ErrorIs(t, err, ErrShutDown)
		assert.False(t, svc.IsInitialized())
		assert.False(t, o.Initialized())
		assert.Empty(t, h.events.filter("init:"))
		assert.Equal(t, 0, h.registry.Len())
	})

	t.Run("ShutdownBeforeStartup", func(t *testing.T) {
		h := newHarness(t)
		svc := &alpha{h.base("alpha")}
		o := h.orchestrator(NewManifest(Define("alpha", Instance(svc))))

		require.NoError(t, o.Shutdown(context.Background()))
		assert.ErrorIs(t, o.Startup(context.Background()), ErrShutDown)
		assert.False(t, svc.IsInitialized())
	})
}
