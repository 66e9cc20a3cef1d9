package storage

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultdrive/utils"
)

type fakeBackend struct {
	name       string
	presign    bool
	probeErr   error
	probeCalls int

	presignErrs []error // consumed one per PresignDownload call
	deleted     []string
	objects     map[string]bool
}

func newFakeBackend(name string, presign bool) *fakeBackend {
	return &fakeBackend{name: name, presign: presign, objects: map[string]bool{}}
}

func (f *fakeBackend) Name() string                  { return f.name }
func (f *fakeBackend) Bucket() string                { return f.name + "-bucket" }
func (f *fakeBackend) SupportsPresignedUpload() bool { return f.presign }

func (f *fakeBackend) PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration, metadata map[string]string) (string, error) {
	if !f.presign {
		return "", ErrPresignUnsupported
	}
	return "https://" + f.name + ".example/put/" + key, nil
}

func (f *fakeBackend) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if len(f.presignErrs) > 0 {
		err := f.presignErrs[0]
		f.presignErrs = f.presignErrs[1:]
		if err != nil {
			return "", err
		}
	}
	return "https://" + f.name + ".example/get/" + key, nil
}

func (f *fakeBackend) DeleteObject(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeBackend) ObjectExists(ctx context.Context, key string) (bool, error) {
	return f.objects[key], nil
}

func (f *fakeBackend) Upload(ctx context.Context, key, contentType string, r io.Reader) error {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return err
	}
	f.objects[key] = true
	return nil
}

func (f *fakeBackend) Probe(ctx context.Context) error {
	f.probeCalls++
	return f.probeErr
}

func newTestManager(t *testing.T, cfg ManagerConfig, backends ...Backend) *Manager {
	t.Helper()
	m, err := NewManager(cfg, testLogger(), backends...)
	require.NoError(t, err)
	return m
}

func TestManagerUsesPreferredBackendWhenReachable(t *testing.T) {
	cloud := newFakeBackend("cloud", true)
	native := newFakeBackend("native", false)

	m := newTestManager(t, ManagerConfig{
		PreferredBackend: "cloud",
		FallbackBackend:  "native",
	}, cloud, native)

	assert.Equal(t, "cloud", m.ActiveProvider(context.Background()))
	assert.Equal(t, 1, cloud.probeCalls)

	// The decision is made once per process instance.
	m.ActiveProvider(context.Background())
	assert.Equal(t, 1, cloud.probeCalls)
}

func TestManagerDowngradesToFallbackOnProbeFailure(t *testing.T) {
	cloud := newFakeBackend("cloud", true)
	cloud.probeErr = errors.New("connect timeout")
	native := newFakeBackend("native", false)

	m := newTestManager(t, ManagerConfig{
		PreferredBackend: "cloud",
		FallbackBackend:  "native",
	}, cloud, native)

	assert.Equal(t, "native", m.ActiveProvider(context.Background()))

	// Downgrade is permanent even if the backend recovers later.
	cloud.probeErr = nil
	assert.Equal(t, "native", m.ActiveProvider(context.Background()))
	assert.Equal(t, 1, cloud.probeCalls)
}

func TestManagerExplicitProviderOverride(t *testing.T) {
	cloud := newFakeBackend("cloud", true)
	native := newFakeBackend("native", false)

	m := newTestManager(t, ManagerConfig{
		PreferredBackend: "cloud",
		FallbackBackend:  "native",
	}, cloud, native)

	urlStr, err := m.GenerateDownloadURL(context.Background(), "native", "k/obj", time.Minute)
	require.NoError(t, err)
	assert.Contains(t, urlStr, "native.example")

	_, err = m.GenerateDownloadURL(context.Background(), "nope", "k/obj", time.Minute)
	require.Error(t, err)
	assert.Equal(t, utils.CodeInvalidArgument, utils.CodeOf(err))
}

func TestManagerUploadTicketDirectVsProxied(t *testing.T) {
	cloud := newFakeBackend("cloud", true)
	native := newFakeBackend("native", false)

	m := newTestManager(t, ManagerConfig{
		PreferredBackend:   "cloud",
		FallbackBackend:    "native",
		UploadEndpointBase: "/api/vault/upload",
	}, cloud, native)

	direct, err := m.GenerateUploadURL(context.Background(), "cloud", "a/b.txt", "text/plain", 0, nil)
	require.NoError(t, err)
	assert.True(t, direct.Direct)
	assert.Contains(t, direct.URL, "cloud.example")

	proxied, err := m.GenerateUploadURL(context.Background(), "native", "a/b.txt", "text/plain", 0, nil)
	require.NoError(t, err)
	assert.False(t, proxied.Direct)
	assert.Equal(t, "/api/vault/upload/a%2Fb.txt", proxied.URL)
}

func TestManagerRetriesTransientDownloadFailures(t *testing.T) {
	cloud := newFakeBackend("cloud", true)
	cloud.presignErrs = []error{&statusError{code: 500}, &statusError{code: 503}}

	m := newTestManager(t, ManagerConfig{
		PreferredBackend: "cloud",
		RetryAttempts:    3,
		RetryBaseDelay:   time.Millisecond,
	}, cloud)

	urlStr, err := m.GenerateDownloadURL(context.Background(), "", "k", time.Minute)
	require.NoError(t, err)
	assert.Contains(t, urlStr, "cloud.example/get/k")
}

func TestManagerCopyRejectsSameProvider(t *testing.T) {
	cloud := newFakeBackend("cloud", true)
	native := newFakeBackend("native", false)

	m := newTestManager(t, ManagerConfig{PreferredBackend: "cloud"}, cloud, native)

	err := m.CopyObject(context.Background(), "cloud", "cloud", "k")
	require.Error(t, err)
	assert.Equal(t, utils.CodeInvalidArgument, utils.CodeOf(err))

	// An empty source resolves to the active backend, which here is the
	// destination. The guard must compare resolved backends, not arguments.
	err = m.CopyObject(context.Background(), "", "cloud", "k")
	require.Error(t, err)
	assert.Equal(t, utils.CodeInvalidArgument, utils.CodeOf(err))
}
