// Package imagesaver persists scanned camera frames according to the
// configured save policy.
package imagesaver

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/conf"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/errors"
	"github.com/grinco/CodeProject.AI-HomeAssist-ALPR/internal/logging"
)

// TimestampFormat is embedded in timestamped filenames and in the
// last_detection entity attribute.
const TimestampFormat = "2006-01-02_15-04-05"

var (
	serviceLogger *slog.Logger
	closeLogger   func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "imagesaver.log")

	serviceLogger, closeLogger, err = logging.NewFileLogger(logFilePath, "imagesaver", slog.LevelInfo)
	if err != nil {
		log.Printf("Failed to initialize imagesaver file logger at %s: %v. Falling back to discard.", logFilePath, err)
		serviceLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))
		closeLogger = func() error { return nil }
	}
}

// Saver decides whether and where to write the processed image. Write
// failures are reported but never abort a scan.
type Saver struct {
	folder       string
	timestamped  bool
	alwaysLatest bool
}

// New creates a Saver from the loaded save settings.
func New(settings *conf.SaveSettings) *Saver {
	return &Saver{
		folder:       settings.FileFolder,
		timestamped:  settings.TimestampedFile,
		alwaysLatest: settings.AlwaysLatest,
	}
}

// Enabled reports whether any scan can result in a file write.
func (s *Saver) Enabled() bool {
	return s.folder != "" && (s.alwaysLatest || s.timestamped)
}

// Save applies the persistence policy for one scan and returns the paths
// written. The latest file is rewritten whenever any write is due; a
// timestamped copy is added when the flag is set and the scan detected at
// least one plate. A configured folder with neither flag set writes nothing.
func (s *Saver) Save(entityName string, image []byte, detectionCount int, when time.Time, scanID string) ([]string, error) {
	if s.folder == "" {
		return nil, nil
	}
	wantTimestamped := s.timestamped && detectionCount > 0
	if !s.alwaysLatest && !wantTimestamped {
		return nil, nil
	}

	written := make([]string, 0, 2)
	var errs []error

	latestPath := filepath.Join(s.folder, fmt.Sprintf("%s_latest.jpg", entityName))
	if err := s.writeFile(latestPath, image); err != nil {
		errs = append(errs, err)
	} else {
		written = append(written, latestPath)
	}

	if wantTimestamped {
		stampedPath := s.timestampedPath(entityName, when, scanID)
		if err := s.writeFile(stampedPath, image); err != nil {
			errs = append(errs, err)
		} else {
			written = append(written, stampedPath)
			serviceLogger.Info("Saved timestamped image", "path", stampedPath, "entity", entityName)
		}
	}

	if len(errs) > 0 {
		return written, errors.New(errors.Join(errs...)).
			Component("imagesaver").
			Category(errors.CategoryImageSave).
			Context("entity", entityName).
			Context("folder", s.folder).
			Build()
	}
	return written, nil
}

// timestampedPath builds a unique filename for the scan. Stamps have second
// resolution, so two scans inside the same second fall back to a scan-ID
// suffixed name rather than overwriting the earlier file.
func (s *Saver) timestampedPath(entityName string, when time.Time, scanID string) string {
	base := filepath.Join(s.folder, fmt.Sprintf("%s_%s.jpg", entityName, when.Format(TimestampFormat)))
	if _, err := os.Stat(base); err == nil && scanID != "" {
		suffix := scanID
		if len(suffix) > 8 {
			suffix = suffix[:8]
		}
		return filepath.Join(s.folder, fmt.Sprintf("%s_%s_%s.jpg", entityName, when.Format(TimestampFormat), suffix))
	}
	return base
}

func (s *Saver) writeFile(path string, image []byte) error {
	if err := os.WriteFile(path, image, 0o644); err != nil {
		serviceLogger.Error("Failed to write image file", "path", path, "error", err)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Close releases the service log file.
func Close() {
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("failed to close imagesaver log file: %v", err)
		}
		closeLogger = nil
	}
}
