package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"vaultdrive/utils"
)

const (
	// DefaultUploadTTL bounds how long a handed-out upload URL stays valid.
	DefaultUploadTTL = 1 * time.Hour
	// DefaultDownloadTTL matches the cached-URL window on file documents.
	DefaultDownloadTTL = 24 * time.Hour

	copyTransferTTL     = 15 * time.Minute
	defaultProbeTimeout = 5 * time.Second
)

// ManagerConfig tunes backend selection and the retry policy.
type ManagerConfig struct {
	// PreferredBackend is used for every call unless overridden per call or
	// found unreachable by the one-time connectivity probe.
	PreferredBackend string
	// FallbackBackend is the platform-native store the manager permanently
	// downgrades to when the probe fails.
	FallbackBackend string

	RetryAttempts  int
	RetryBaseDelay time.Duration
	ProbeTimeout   time.Duration

	// UploadEndpointBase is the application route used for backends without
	// presigned uploads; the object key is appended path-escaped.
	UploadEndpointBase string
}

// UploadTicket is the provider-agnostic answer to an upload-URL request.
// Direct tickets point at the provider; proxied tickets point back at the
// application, which streams through Manager.Upload.
type UploadTicket struct {
	URL      string
	Provider string
	Bucket   string
	Key      string
	Direct   bool
}

// Manager unifies the configured backends behind one interface, wrapping
// every call in the retry policy. The active-backend decision is made once
// per process instance.
type Manager struct {
	backends map[string]Backend
	cfg      ManagerConfig
	retry    retryPolicy
	logger   *zap.SugaredLogger

	httpClient *http.Client

	probeOnce sync.Once
	active    string
}

func NewManager(cfg ManagerConfig, logger *zap.SugaredLogger, backends ...Backend) (*Manager, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("storage manager requires at least one backend")
	}
	byName := make(map[string]Backend, len(backends))
	for _, b := range backends {
		byName[b.Name()] = b
	}
	if cfg.PreferredBackend == "" {
		cfg.PreferredBackend = backends[0].Name()
	}
	if _, ok := byName[cfg.PreferredBackend]; !ok {
		return nil, fmt.Errorf("preferred backend %q is not configured", cfg.PreferredBackend)
	}
	if cfg.FallbackBackend != "" {
		if _, ok := byName[cfg.FallbackBackend]; !ok {
			return nil, fmt.Errorf("fallback backend %q is not configured", cfg.FallbackBackend)
		}
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if cfg.UploadEndpointBase == "" {
		cfg.UploadEndpointBase = "/api/vault/upload"
	}

	return &Manager{
		backends:   byName,
		cfg:        cfg,
		retry:      newRetryPolicy(cfg.RetryAttempts, cfg.RetryBaseDelay),
		logger:     logger,
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}, nil
}

// ActiveProvider reports the backend the manager currently routes to,
// probing on first use.
func (m *Manager) ActiveProvider(ctx context.Context) string {
	return m.activeBackend(ctx).Name()
}

// activeBackend resolves the process-wide backend decision. The preferred
// backend is probed exactly once with a hard timeout; timeout counts as
// unreachable and downgrades to the fallback for the process lifetime.
func (m *Manager) activeBackend(ctx context.Context) Backend {
	m.probeOnce.Do(func() {
		m.active = m.cfg.PreferredBackend
		preferred := m.backends[m.cfg.PreferredBackend]

		probeCtx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
		defer cancel()

		if err := preferred.Probe(probeCtx); err != nil {
			if m.cfg.FallbackBackend != "" && m.cfg.FallbackBackend != m.cfg.PreferredBackend {
				m.logger.Warnw("preferred storage backend unreachable, downgrading",
					"preferred", m.cfg.PreferredBackend,
					"fallback", m.cfg.FallbackBackend,
					"error", err)
				m.active = m.cfg.FallbackBackend
			} else {
				m.logger.Warnw("preferred storage backend unreachable, no fallback configured",
					"preferred", m.cfg.PreferredBackend, "error", err)
			}
		} else {
			m.logger.Infow("storage backend probe succeeded", "backend", m.cfg.PreferredBackend)
		}
	})
	return m.backends[m.active]
}

// backendFor honors an explicit per-call provider override; empty means the
// active backend.
func (m *Manager) backendFor(ctx context.Context, provider string) (Backend, error) {
	if provider == "" {
		return m.activeBackend(ctx), nil
	}
	b, ok := m.backends[provider]
	if !ok {
		return nil, utils.InvalidArgumentf("unknown storage provider: %s", provider)
	}
	return b, nil
}

func (m *Manager) GenerateUploadURL(ctx context.Context, provider, key, contentType string, ttl time.Duration, metadata map[string]string) (*UploadTicket, error) {
	b, err := m.backendFor(ctx, provider)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultUploadTTL
	}

	ticket := &UploadTicket{Provider: b.Name(), Bucket: b.Bucket(), Key: key}
	if !b.SupportsPresignedUpload() {
		ticket.URL = m.cfg.UploadEndpointBase + "/" + url.PathEscape(key)
		return ticket, nil
	}

	err = m.retry.do(ctx, m.logger, "presign_upload", func() error {
		u, presignErr := b.PresignUpload(ctx, key, contentType, ttl, metadata)
		if presignErr != nil {
			return presignErr
		}
		ticket.URL = u
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate upload URL on %s: %w", b.Name(), err)
	}
	ticket.Direct = true
	return ticket, nil
}

func (m *Manager) GenerateDownloadURL(ctx context.Context, provider, key string, ttl time.Duration) (string, error) {
	b, err := m.backendFor(ctx, provider)
	if err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = DefaultDownloadTTL
	}

	var signed string
	err = m.retry.do(ctx, m.logger, "presign_download", func() error {
		u, presignErr := b.PresignDownload(ctx, key, ttl)
		if presignErr != nil {
			return presignErr
		}
		signed = u
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL on %s: %w", b.Name(), err)
	}
	return signed, nil
}

func (m *Manager) DeleteObject(ctx context.Context, provider, key string) error {
	b, err := m.backendFor(ctx, provider)
	if err != nil {
		return err
	}
	return m.retry.do(ctx, m.logger, "delete_object", func() error {
		return b.DeleteObject(ctx, key)
	})
}

func (m *Manager) ObjectExists(ctx context.Context, provider, key string) (bool, error) {
	b, err := m.backendFor(ctx, provider)
	if err != nil {
		return false, err
	}
	var exists bool
	err = m.retry.do(ctx, m.logger, "object_exists", func() error {
		ok, existsErr := b.ObjectExists(ctx, key)
		if existsErr != nil {
			return existsErr
		}
		exists = ok
		return nil
	})
	return exists, err
}

// Upload streams bytes server-side, for proxied upload tickets.
func (m *Manager) Upload(ctx context.Context, provider, key, contentType string, r io.Reader) error {
	b, err := m.backendFor(ctx, provider)
	if err != nil {
		return err
	}
	// Not retried: the reader cannot be rewound after a partial write.
	return b.Upload(ctx, key, contentType, r)
}

// CopyObject migrates one object between providers: download via a
// short-lived signed URL from the source, re-upload to the destination.
// Source and destination must differ.
func (m *Manager) CopyObject(ctx context.Context, srcProvider, dstProvider, key string) error {
	src, err := m.backendFor(ctx, srcProvider)
	if err != nil {
		return err
	}
	dst, err := m.backendFor(ctx, dstProvider)
	if err != nil {
		return err
	}
	// Compare resolved backends, not the raw arguments: an empty provider
	// resolves to the active backend and could otherwise alias the other side.
	if src.Name() == dst.Name() {
		return utils.InvalidArgumentf("copy source and destination providers must differ")
	}

	return m.retry.do(ctx, m.logger, "copy_object", func() error {
		return m.transferObject(ctx, src, dst, key)
	})
}

func (m *Manager) transferObject(ctx context.Context, src, dst Backend, key string) error {
	srcURL, err := src.PresignDownload(ctx, key, copyTransferTTL)
	if err != nil {
		return fmt.Errorf("failed to sign source URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build source request: %w", err)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download from %s: %w", src.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("source download failed with status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if err := dst.Upload(ctx, key, contentType, resp.Body); err != nil {
		return fmt.Errorf("failed to upload to %s: %w", dst.Name(), err)
	}
	return nil
}
