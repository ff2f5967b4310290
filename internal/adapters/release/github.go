package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/sirupsen/logrus"

	"nymctl/internal/adapters/exec"
	"nymctl/internal/core"
	"nymctl/internal/ports"
)

const (
	DefaultReleaseAPI = "https://api.github.com/repos/nymtech/nym/releases/latest"
	FetchTimeout      = 10 * time.Second
	userAgent         = "nymctl"
)

// GitHubReleases reads the latest release of the nym repository
type GitHubReleases struct {
	client *http.Client
	api    string
	out    io.Writer // liveness indicator during downloads
	log    *logrus.Entry
}

func NewGitHubReleases(api string, out io.Writer, log *logrus.Entry) *GitHubReleases {
	if api == "" {
		api = DefaultReleaseAPI
	}
	return &GitHubReleases{client: cleanhttp.DefaultClient(), api: api, out: out, log: log}
}

var _ ports.ReleaseIndex = (*GitHubReleases)(nil)

type releaseDoc struct {
	TagName string     `json:"tag_name"`
	Assets  []assetDoc `json:"assets"`
}

type assetDoc struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
	Size        int64  `json:"size"`
}

// Latest fetches the newest release and picks the asset called name (or starting with it when exact is false)
func (g *GitHubReleases) Latest(ctx context.Context, name string, exact bool) (core.Release, error) {
	ctx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.api, nil)
	if err != nil {
		return core.Release{}, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := g.client.Do(req)
	if err != nil {
		return core.Release{}, fmt.Errorf("unable to fetch release info: %v: %w", err, core.ErrNetworkUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return core.Release{}, fmt.Errorf("release index returned %s", resp.Status)
	}

	var doc releaseDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return core.Release{}, fmt.Errorf("unable to decode release info: %w", err)
	}
	g.log.WithField("tag", doc.TagName).Info("latest release")

	for _, a := range doc.Assets {
		if a.Name == name || (!exact && strings.HasPrefix(a.Name, name)) {
			return core.Release{Tag: doc.TagName, AssetName: a.Name, DownloadURL: a.DownloadURL, Size: a.Size}, nil
		}
	}
	return core.Release{Tag: doc.TagName}, fmt.Errorf("release %s has no %q asset: %w", doc.TagName, name, core.ErrPreconditionUnmet)
}

// Download streams the asset to dest and makes it executable. A partial file is removed on failure.
// There is no overall timeout, the operator can interrupt a slow download
func (g *GitHubReleases) Download(ctx context.Context, rel core.Release, dest string) (err error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("unable to create %s: %w", filepath.Dir(dest), err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rel.DownloadURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	label := "Downloading " + rel.AssetName
	if rel.Size > 0 {
		label += " (" + humanize.Bytes(uint64(rel.Size)) + ")"
	}
	spinner := exec.NewSpinner(g.out, label).Start()
	defer spinner.Stop()

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %v: %w", err, core.ErrNetworkUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned %s", resp.Status)
	}

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return fmt.Errorf("unable to create %s: %w", dest, err)
	}
	defer func() {
		if err != nil {
			os.Remove(dest)
		}
	}()
	n, err := io.Copy(f, resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("unable to write %s: %w", dest, err)
	}
	g.log.WithFields(logrus.Fields{"dest": dest, "size": humanize.Bytes(uint64(n))}).Info("download complete")
	return nil
}
