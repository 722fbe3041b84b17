// Package pack implements the two operations behind `machinery pack`
// (§6): rewriting a docker-machine storage directory's config.json files
// to relative paths, and archiving the cluster YAML, its side-cars, and
// that storage directory into a single zip.
package pack

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// RewriteConfigPaths walks storageDir for every `config.json` docker-machine
// writes per machine, rewriting any absolute path value that lives under
// storageDir to a path relative to the file's own directory. A `.bak` copy
// of the untouched original is kept alongside it.
func RewriteConfigPaths(storageDir string) error {
	return filepath.WalkDir(storageDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Base(path) != "config.json" {
			return nil
		}
		return rewriteOne(path, storageDir)
	})
}

func rewriteOne(path, storageDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := os.WriteFile(path+".bak", data, 0o600); err != nil {
		return fmt.Errorf("backup %s: %w", path, err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	rewriteValue(doc, storageDir, filepath.Dir(path))

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return os.WriteFile(path, out, 0o600)
}

func rewriteValue(v interface{}, storageDir, base string) {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			if s, ok := val.(string); ok {
				if isUnderStorage(s, storageDir) {
					if rel, err := filepath.Rel(base, s); err == nil {
						t[k] = rel
					}
				}
				continue
			}
			rewriteValue(val, storageDir, base)
		}
	case []interface{}:
		for _, item := range t {
			rewriteValue(item, storageDir, base)
		}
	}
}

func isUnderStorage(s, storageDir string) bool {
	return filepath.IsAbs(s) && strings.HasPrefix(s, storageDir)
}

// Archive zips clusterYAML, its `.NAME.env`/`.NAME.swt` side-cars, and
// storageDir into zipPath.
func Archive(clusterYAML, storageDir, zipPath string) error {
	f, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	defer zw.Close()

	rootname := strings.TrimSuffix(filepath.Base(clusterYAML), filepath.Ext(clusterYAML))
	dir := filepath.Dir(clusterYAML)

	for _, file := range []string{
		clusterYAML,
		filepath.Join(dir, "."+rootname+".env"),
		filepath.Join(dir, "."+rootname+".swt"),
	} {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := addFile(zw, file, filepath.Base(file)); err != nil {
			return err
		}
	}

	if _, err := os.Stat(storageDir); err == nil {
		if err := addDir(zw, storageDir, filepath.Base(storageDir)); err != nil {
			return err
		}
	}
	return nil
}

func addFile(zw *zip.Writer, path, nameInZip string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	w, err := zw.Create(nameInZip)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func addDir(zw *zip.Writer, dir, prefix string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		return addFile(zw, path, filepath.Join(prefix, rel))
	})
}

// Zap removes the cluster's side-cars and storage directory, meant to run
// right after a successful Archive (the `-zap` flag).
func Zap(clusterYAML, storageDir string) error {
	rootname := strings.TrimSuffix(filepath.Base(clusterYAML), filepath.Ext(clusterYAML))
	dir := filepath.Dir(clusterYAML)
	_ = os.Remove(filepath.Join(dir, "."+rootname+".env"))
	_ = os.Remove(filepath.Join(dir, "."+rootname+".swt"))
	return os.RemoveAll(storageDir)
}
