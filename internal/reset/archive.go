package reset

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// archiveWorld writes the world directory to
// <dataDir>/archives/<timestamp>-<id>.tar.gz and returns the path.
func (s *Service) archiveWorld() (string, error) {
	archiveDir := filepath.Join(s.dataDir, "archives")
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return "", fmt.Errorf("create archive directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s.tar.gz", time.Now().Format("20060102-150405"), uuid.New().String()[:8])
	path := filepath.Join(archiveDir, name)

	if err := createTarGz(path, s.worldDir); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func createTarGz(dest, srcDir string) error {
	file, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer file.Close()

	gw := gzip.NewWriter(file)
	defer gw.Close()

	tw := tar.NewWriter(gw)
	defer tw.Close()

	return filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = relPath
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
}
