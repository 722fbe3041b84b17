// Package mountvfs lets a share's host side be something other than a
// plain directory: a zip archive or an HTTP(S) URL, extracted to a
// temporary directory once so the rest of the share engine sees an
// ordinary path. machinery's core never reimplements an archive format or
// an HTTP client beyond what this package needs.
package mountvfs

import (
	"archive/zip"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Source resolves a share host spec to a real, transparently-usable local
// directory.
type Source interface {
	// Resolve returns a local directory path standing in for spec,
	// extracting/downloading it first if necessary.
	Resolve(spec string) (string, error)
}

// ResolveHost returns a real local directory standing in for a share's host
// spec: if spec is a zip archive or an http(s) URL, it is extracted/
// downloaded to a temp directory once and that directory is returned; a
// bare filesystem path is returned unchanged. This is how a share whose
// host side isn't already a plain directory becomes transparently mountable
// by the vboxsf/rsync engines.
func ResolveHost(spec string) (string, error) {
	source := Detect(spec)
	if source == nil {
		return spec, nil
	}
	return source.Resolve(spec)
}

// Detect returns the Source that understands spec: a zip archive
// (".zip" suffix) or an http(s) URL. A bare filesystem path needs no
// Source at all; callers check that first.
func Detect(spec string) Source {
	if strings.HasSuffix(strings.ToLower(spec), ".zip") {
		return ZipSource{}
	}
	if u, err := url.Parse(spec); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return HTTPSource{}
	}
	return nil
}

// ZipSource extracts a local .zip file into a temp directory.
type ZipSource struct{}

// Resolve extracts spec (a local .zip path) into a new temp directory and
// returns it.
func (ZipSource) Resolve(spec string) (string, error) {
	reader, err := zip.OpenReader(spec)
	if err != nil {
		return "", fmt.Errorf("open archive %s: %w", spec, err)
	}
	defer reader.Close()

	dir, err := os.MkdirTemp("", "machinery-share-*")
	if err != nil {
		return "", fmt.Errorf("create extraction dir for %s: %w", spec, err)
	}

	for _, f := range reader.File {
		target := filepath.Join(dir, f.Name)
		if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
			return "", fmt.Errorf("archive %s: entry %q escapes extraction dir", spec, f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return "", err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return "", err
		}
		if err := extractOne(f, target); err != nil {
			return "", fmt.Errorf("extract %s from %s: %w", f.Name, spec, err)
		}
	}
	return dir, nil
}

func extractOne(f *zip.File, target string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// HTTPSource downloads a single file served at an http(s) URL into a temp
// directory and returns that directory.
type HTTPSource struct{}

// Resolve downloads spec into a new temp directory, keeping the URL's base
// name as the file name.
func (HTTPSource) Resolve(spec string) (string, error) {
	resp, err := http.Get(spec)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", spec, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %s", spec, resp.Status)
	}

	dir, err := os.MkdirTemp("", "machinery-share-*")
	if err != nil {
		return "", fmt.Errorf("create download dir for %s: %w", spec, err)
	}

	u, err := url.Parse(spec)
	if err != nil {
		return "", err
	}
	name := filepath.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		name = "download"
	}

	target := filepath.Join(dir, name)
	out, err := os.Create(target)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("download %s: %w", spec, err)
	}
	return dir, nil
}
