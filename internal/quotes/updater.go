package quotes

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"wse-scanner/internal/logging"
	"wse-scanner/pkg/utils"
)

// DefaultArchiveURL is the bossa.pl MetaStock archive of all WSE instruments.
const DefaultArchiveURL = "https://info.bossa.pl/pub/metastock/mstock/mstall.zip"

// SyncTypeQuotes is the sync marker set after a successful update.
const SyncTypeQuotes = "quotes"

// SyncRecorder records when data was last refreshed.
type SyncRecorder interface {
	SetLastSync(dataType string, t time.Time) error
}

// Updater downloads the quotes archive and extracts it into a directory.
type Updater struct {
	url    string
	dir    string
	client *http.Client
	retry  utils.RetryConfig
	sync   SyncRecorder
	logger zerolog.Logger
}

// UpdaterOption configures an Updater.
type UpdaterOption func(*Updater)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) UpdaterOption {
	return func(u *Updater) { u.client = client }
}

// WithRetry overrides the download retry policy.
func WithRetry(cfg utils.RetryConfig) UpdaterOption {
	return func(u *Updater) { u.retry = cfg }
}

// WithSyncRecorder records successful updates.
func WithSyncRecorder(r SyncRecorder) UpdaterOption {
	return func(u *Updater) { u.sync = r }
}

// NewUpdater creates an updater for url extracting into dir.
func NewUpdater(url, dir string, logger zerolog.Logger, opts ...UpdaterOption) *Updater {
	if url == "" {
		url = DefaultArchiveURL
	}
	u := &Updater{
		url:    url,
		dir:    dir,
		client: &http.Client{Timeout: 10 * time.Minute},
		retry:  utils.DefaultRetryConfig(),
		logger: logging.WithOperation(logger, "update"),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Update downloads the archive and replaces the extracted files.
// It returns the number of files written.
func (u *Updater) Update(ctx context.Context) (int, error) {
	if err := os.MkdirAll(u.dir, 0755); err != nil {
		return 0, fmt.Errorf("creating quotes directory: %w", err)
	}

	tmp, err := os.CreateTemp(u.dir, "download-*.zip")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	err = utils.Retry(ctx, u.retry, func() error {
		start := time.Now()
		err := u.download(ctx, tmp)
		logging.LogDownload(u.logger, u.url, time.Since(start), err)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to download data from %s: %w", u.url, err)
	}

	n, err := extract(tmp, u.dir)
	if err != nil {
		return n, fmt.Errorf("failed to extract data from %s: %w", u.url, err)
	}

	if u.sync != nil {
		if err := u.sync.SetLastSync(SyncTypeQuotes, time.Now()); err != nil {
			u.logger.Warn().Err(err).Msg("Failed to record sync time")
		}
	}
	u.logger.Info().Int("files", n).Str("dir", u.dir).Msg("Quotes updated")
	return n, nil
}

func (u *Updater) download(ctx context.Context, dst *os.File) error {
	if _, err := dst.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := dst.Truncate(0); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.url, nil)
	if err != nil {
		return err
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	_, err = io.Copy(dst, resp.Body)
	return err
}

func extract(f *os.File, dir string) (int, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return 0, err
	}

	root := filepath.Clean(dir) + string(os.PathSeparator)
	n := 0
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		target := filepath.Join(dir, zf.Name)
		if !strings.HasPrefix(target, root) {
			return n, fmt.Errorf("archive entry %q escapes %s", zf.Name, dir)
		}
		if err := extractFile(zf, target); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func extractFile(zf *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
