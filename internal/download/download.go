package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mattn/go-isatty"

	"dfxvm/internal/logger"
)

// Downloader fetches release artifacts over HTTP.
type Downloader struct {
	// Client performs the requests. nil means http.DefaultClient.
	Client *http.Client
	// NewBackOff builds the retry policy for one file. nil means DefaultBackOff.
	NewBackOff func() backoff.BackOff
	// Progress receives the progress bar. nil disables it.
	Progress io.Writer
}

// VerifiedFile is an artifact whose SHA-256 matched its published checksum.
type VerifiedFile struct {
	Path   string
	SHA256 string
}

// New returns a Downloader that draws a progress bar when stderr is a terminal.
func New() *Downloader {
	d := &Downloader{Client: &http.Client{}}
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		d.Progress = os.Stderr
	}
	return d
}

// DefaultBackOff is a jittered exponential policy capped at one minute between
// attempts and fifteen minutes overall.
func DefaultBackOff() backoff.BackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(500*time.Millisecond),
		backoff.WithMaxInterval(time.Minute),
		backoff.WithMaxElapsedTime(15*time.Minute),
	)
}

func (d *Downloader) client() *http.Client {
	if d.Client == nil {
		return http.DefaultClient
	}
	return d.Client
}

func (d *Downloader) backOff() backoff.BackOff {
	if d.NewBackOff == nil {
		return DefaultBackOff()
	}
	return d.NewBackOff()
}

// DownloadVerified downloads rawURL into destDir after first fetching rawURL+".sha256".
// A 404 on the checksum is reported as *NotFoundError without retrying.
func (d *Downloader) DownloadVerified(ctx context.Context, rawURL, destDir string) (*VerifiedFile, error) {
	name, err := fileNameFromURL(rawURL)
	if err != nil {
		return nil, err
	}
	checksumURL := rawURL + ".sha256"
	checksumPath := filepath.Join(destDir, name+".sha256")
	filePath := filepath.Join(destDir, name)

	if _, err := d.DownloadFile(ctx, checksumURL, checksumPath); err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, &NotFoundError{URL: checksumURL}
		}
		return nil, err
	}

	hash, err := d.DownloadFile(ctx, rawURL, filePath)
	if err != nil {
		return nil, err
	}
	if err := VerifyChecksum(hash, checksumPath); err != nil {
		return nil, err
	}
	return &VerifiedFile{Path: filePath, SHA256: hash}, nil
}

// DownloadFile streams rawURL to dest and returns the hex SHA-256 of the body.
// Transient failures are retried under the backoff policy; everything else
// stops at the first attempt.
func (d *Downloader) DownloadFile(ctx context.Context, rawURL, dest string) (string, error) {
	var hash string
	err := d.retry(ctx, func() error {
		h, err := d.attempt(ctx, rawURL, dest)
		hash = h
		return err
	})
	if err != nil {
		return "", err
	}
	return hash, nil
}

// retry runs op under the backoff policy. Only errors marked transient are
// retried; any other error ends the loop at once.
func (d *Downloader) retry(ctx context.Context, op func() error) error {
	operation := func() error {
		err := op()
		if err != nil && !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, delay time.Duration) {
		logger.Warn("[WARN] %v\n", err)
		logger.Warn("[WARN] Retrying in %s\n", delay.Round(time.Millisecond))
	}
	return backoff.RetryNotify(operation, backoff.WithContext(d.backOff(), ctx), notify)
}

func (d *Downloader) attempt(ctx context.Context, rawURL, dest string) (string, error) {
	logger.Info("[INFO] Downloading %s\n", rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for %s: %w", rawURL, err)
	}
	resp, err := d.client().Do(req)
	if err != nil {
		return "", &transientError{err: fmt.Errorf("failed to GET %s: %w", rawURL, err)}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Debug("[DEBUG] Failed to close response body: %s\n", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	if resp.ContentLength < 0 {
		return "", &MissingContentLengthError{URL: rawURL}
	}

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", dest, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil {
			logger.Error("[ERROR] Failed to close destination file: %s\n", cerr)
		}
	}()

	bar := newProgressBar(d.Progress, resp.ContentLength)
	digest := sha256.New()
	buf := make([]byte, 32*1024)
	var done int64
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			digest.Write(buf[:n])
			if _, werr := out.Write(buf[:n]); werr != nil {
				return "", fmt.Errorf("failed to write %s: %w", dest, werr)
			}
			done += int64(n)
			bar.update(done)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return "", &transientError{err: fmt.Errorf("failed to read body of %s: %w", rawURL, rerr)}
		}
	}
	bar.finish()

	logger.Debug("[DEBUG] Downloaded %s to %s (%d bytes)\n", rawURL, dest, done)
	return hex.EncodeToString(digest.Sum(nil)), nil
}

// VerifyChecksum compares hash against the first token of the first line of the checksum file.
func VerifyChecksum(hash, checksumPath string) error {
	data, err := os.ReadFile(checksumPath)
	if err != nil {
		return fmt.Errorf("failed to read checksum file %s: %w", checksumPath, err)
	}
	contents := string(data)
	firstLine, _, _ := strings.Cut(contents, "\n")
	fields := strings.Fields(firstLine)
	if len(fields) == 0 {
		return &MalformedChecksumError{Path: checksumPath, Contents: contents}
	}
	expected := strings.ToLower(fields[0])
	if expected != hash {
		return &ChecksumMismatchError{Expected: expected, Actual: hash}
	}
	logger.Info("[INFO] Verified checksum %s\n", hash)
	return nil
}

// FetchJSON GETs rawURL and decodes the body into v. Connection and read
// failures are retried like downloads; status and decode errors are not.
func (d *Downloader) FetchJSON(ctx context.Context, rawURL string, v any) error {
	var body []byte
	err := d.retry(ctx, func() error {
		b, err := d.fetch(ctx, rawURL)
		body = b
		return err
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON from %s: %w", rawURL, err)
	}
	return nil
}

func (d *Downloader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	logger.Debug("[DEBUG] Fetching %s\n", rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", rawURL, err)
	}
	resp, err := d.client().Do(req)
	if err != nil {
		return nil, &transientError{err: fmt.Errorf("failed to GET %s: %w", rawURL, err)}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Debug("[DEBUG] Failed to close response body: %s\n", cerr)
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transientError{err: fmt.Errorf("failed to read body of %s: %w", rawURL, err)}
	}
	return body, nil
}

func fileNameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid download URL %q: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "download", nil
	}
	return name, nil
}
