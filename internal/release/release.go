package release

import (
	"context"
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
)

var (
	// ErrNoArtifact is returned when no listed artifact matches the platform filter.
	ErrNoArtifact = errors.New("no artifact matches the platform filter")

	// errBadHTTPStatus is returned when the endpoint answers with a non-200 status.
	errBadHTTPStatus = errors.New("unexpected http status")
)

// Source identifies an upstream release listing and the artifact selection rules.
// It is immutable and comes straight from the service catalog.
type Source struct {
	// Repo is an "owner/name" slug resolved against the resolver's API base,
	// or a full listing URL.
	Repo string
	// Filter is the case-sensitive substring selecting the platform artifact.
	Filter string
	// Exclude skips artifacts whose name contains this substring (signature
	// files and the like). Empty means nothing is excluded.
	Exclude string
}

// Artifact is the selected downloadable release bundle.
type Artifact struct {
	// Version is the release tag the artifact belongs to.
	Version string
	// Name is the artifact filename.
	Name string
	// URL is the direct download location.
	URL string
}

// listing mirrors the relevant parts of a "latest release" JSON document.
type listing struct {
	// TagName is the release tag, e.g. "b4521" or "v1.2.3".
	TagName string `json:"tag_name"`
	// Assets are the downloadable artifacts in listing order.
	Assets []asset `json:"assets"`
}

// asset is one downloadable artifact in the listing.
type asset struct {
	Name string `json:"name"`
	URL  string `json:"browser_download_url"`
}

// Resolver fetches release listings and downloads artifacts.
type Resolver struct {
	// apiBase resolves "owner/name" repositories into listing URLs.
	apiBase string
	// client performs all HTTP requests. Injectable for tests.
	client *http.Client
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithHTTPClient replaces the HTTP client used for listing and artifact
// requests. Tests use this to intercept transport or point at local servers.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		r.client = client
	}
}

// NewResolver returns a Resolver querying listings against the given API base.
func NewResolver(apiBase string, opts ...Option) *Resolver {
	r := &Resolver{
		apiBase: apiBase,
		client:  http.DefaultClient,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve fetches the release listing for the source and returns the first
// artifact whose name contains the platform filter and not the exclusion
// substring. Listing order decides ties; matching is case-sensitive.
func (r *Resolver) Resolve(ctx context.Context, src Source) (*Artifact, error) {
	listingURL, err := r.listingURL(src)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listingURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	response, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch release listing: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s, %s: %w", listingURL, response.Status, errBadHTTPStatus)
	}

	var doc listing
	if err = json.NewDecoder(response.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode release listing: %w", err)
	}

	for _, a := range doc.Assets {
		name := a.Name
		if name == "" {
			name = path.Base(a.URL)
		}

		if !strings.Contains(name, src.Filter) {
			continue
		}

		if src.Exclude != "" && strings.Contains(name, src.Exclude) {
			continue
		}

		return &Artifact{
			Version: doc.TagName,
			Name:    name,
			URL:     a.URL,
		}, nil
	}

	return nil, fmt.Errorf("%s (filter %q): %w", listingURL, src.Filter, ErrNoArtifact)
}

// listingURL turns the source repository into a concrete listing URL.
// Full URLs pass through untouched.
func (r *Resolver) listingURL(src Source) (string, error) {
	if strings.Contains(src.Repo, "://") {
		return src.Repo, nil
	}

	base, err := url.Parse(r.apiBase)
	if err != nil {
		return "", fmt.Errorf("parse release API base: %w", err)
	}

	base.Path = path.Join(base.Path, src.Repo, "releases", "latest")

	return base.String(), nil
}

// Download streams the artifact into the given directory and returns the
// path of the downloaded file. There is no retry: any transfer failure
// propagates immediately.
func (r *Resolver) Download(ctx context.Context, artifact *Artifact, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artifact.URL, http.NoBody)
	if err != nil {
		return "", err
	}

	response, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", artifact.URL, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s, %s: %w", artifact.URL, response.Status, errBadHTTPStatus)
	}

	outputPath := filepath.Join(dir, artifact.Name)

	outputFile, err := os.Create(filepath.Clean(outputPath))
	if err != nil {
		return "", err
	}

	if _, err = io.Copy(outputFile, response.Body); err != nil {
		_ = outputFile.Close()

		return "", fmt.Errorf("write %s: %w", outputPath, err)
	}

	if err = outputFile.Close(); err != nil {
		return "", err
	}

	return outputPath, nil
}
