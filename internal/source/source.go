// Package source retrieves script sources from local files or http(s) URLs.
package source

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Script is a fetched script source.
type Script struct {
	Name     string // file name without extension
	Location string
	Code     string
}

// Fetcher loads scripts. Remote locations go through a shared resty client.
type Fetcher struct {
	client *resty.Client
	logger *zap.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithTimeout bounds each remote fetch, retries included.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.client.SetTimeout(d)
		}
	}
}

// WithRetries sets how many times a failed remote fetch is retried.
func WithRetries(n int) Option {
	return func(f *Fetcher) {
		f.client.SetRetryCount(n)
	}
}

// NewFetcher creates a Fetcher with production defaults.
func NewFetcher(opts ...Option) *Fetcher {
	client := resty.New().
		SetTimeout(30*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("User-Agent", "scriptterm/1.0").
		SetHeader("Accept", "text/plain, */*")

	f := &Fetcher{client: client, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	u, err := url.Parse(location)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Fetch reads the script at location.
func (f *Fetcher) Fetch(ctx context.Context, location string) (Script, error) {
	if strings.TrimSpace(location) == "" {
		return Script{}, fmt.Errorf("no script location configured")
	}
	if IsRemote(location) {
		return f.fetchRemote(ctx, location)
	}
	return f.fetchFile(location)
}

func (f *Fetcher) fetchFile(location string) (Script, error) {
	data, err := os.ReadFile(location)
	if err != nil {
		return Script{}, fmt.Errorf("read script: %w", err)
	}
	f.logger.Debug("script read", zap.String("path", location), zap.Int("bytes", len(data)))
	return Script{Name: baseName(filepath.Base(location)), Location: location, Code: string(data)}, nil
}

func (f *Fetcher) fetchRemote(ctx context.Context, location string) (Script, error) {
	start := time.Now()
	resp, err := f.client.R().SetContext(ctx).Get(location)
	if err != nil {
		return Script{}, fmt.Errorf("fetch script: %w", err)
	}
	if resp.IsError() {
		return Script{}, fmt.Errorf("fetch script: %s returned %s", location, resp.Status())
	}
	f.logger.Debug("script fetched",
		zap.String("url", location),
		zap.Int("status", resp.StatusCode()),
		zap.Int("bytes", len(resp.Body())),
		zap.Duration("took", time.Since(start)))

	u, _ := url.Parse(location)
	return Script{Name: baseName(path.Base(u.Path)), Location: location, Code: string(resp.Body())}, nil
}

func baseName(file string) string {
	name := strings.TrimSuffix(file, path.Ext(file))
	if name == "" || name == "." || name == "/" {
		return "main"
	}
	return name
}
