package datasets

import (
	"context"
	"io"
	"net/http"
	"os"

	"code.cloudfoundry.org/bytefmt"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Ensure makes both spec files present in the cache, downloading whatever is
// missing, and returns their paths.
func (s Spec) Ensure(ctx context.Context, root, vendor string) (dataPath, indexPath string, err error) {
	if err := os.MkdirAll(s.CacheDir(root, vendor), 0755); err != nil {
		return "", "", errors.Wrapf(err, "cannot create cache dir %s", s.CacheDir(root, vendor))
	}
	dataPath = s.DataPath(root, vendor)
	if err := ensureFile(ctx, s.DataURL, dataPath); err != nil {
		return "", "", err
	}
	indexPath = s.IndexPath(root, vendor)
	if err := ensureFile(ctx, s.IndexURL, indexPath); err != nil {
		return "", "", err
	}
	return dataPath, indexPath, nil
}

func ensureFile(ctx context.Context, url, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		log.WithField("file", dest).Debug("dataset file cached")
		return nil
	}
	return download(ctx, url, dest)
}

func download(ctx context.Context, url, dest string) error {
	log.WithFields(log.Fields{"url": url, "file": dest}).Info("downloading dataset file")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrapf(err, "cannot build request for %s", url)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "cannot download %s", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("cannot download %s: unexpected status %s", url, resp.Status)
	}

	// Write to a temp name first so an interrupted download never passes for
	// a cached file.
	tmp := dest + ".partial"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "cannot create %s", tmp)
	}
	written, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "cannot write %s", tmp)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "cannot move %s into place", tmp)
	}
	log.WithFields(log.Fields{
		"file": dest,
		"size": bytefmt.ByteSize(uint64(written)),
	}).Info("dataset file downloaded")
	return nil
}
