package ingestion

import (
	"bufio"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/pterm/pterm"
)

// IncrementalReader reads a bodyfile incrementally, tracking position and
// detecting rotation or truncation. It is the line source the codec expects:
// comment lines ('#' prefix) and blank lines are filtered here, and lines are
// handed over newline-stripped.
type IncrementalReader struct {
	filePath        string
	lastPosition    int64
	lastInode       int64 // File identifier (inode on Unix, file index on Windows)
	lastLineContent string
	logger          *pterm.Logger
}

// NewIncrementalReader creates a new incremental reader
func NewIncrementalReader(filePath string, lastPos int64, lastInode int64, lastLine string, logger *pterm.Logger) *IncrementalReader {
	return &IncrementalReader{
		filePath:        filePath,
		lastPosition:    lastPos,
		lastInode:       lastInode,
		lastLineContent: lastLine,
		logger:          logger,
	}
}

// ReadBatch reads up to maxLines new non-comment lines from the file.
// Returns: lines read, new position, new inode, last line content (for
// continuity check), error.
func (r *IncrementalReader) ReadBatch(maxLines int) ([]string, int64, int64, string, error) {
	// Check if file exists first
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		r.logger.Warn("Bodyfile does not exist yet, waiting for creation",
			r.logger.Args("path", r.filePath))
		return []string{}, r.lastPosition, r.lastInode, r.lastLineContent, nil
	}

	file, err := os.Open(r.filePath)
	if err != nil {
		if os.IsPermission(err) {
			r.logger.Error("Permission denied accessing bodyfile",
				r.logger.Args("path", r.filePath, "error", err))
			return []string{}, r.lastPosition, r.lastInode, r.lastLineContent, nil
		}
		r.logger.Warn("Failed to open bodyfile, will retry",
			r.logger.Args("path", r.filePath, "error", err))
		return []string{}, r.lastPosition, r.lastInode, r.lastLineContent, nil
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		r.logger.WithCaller().Error("Failed to stat bodyfile", r.logger.Args("path", r.filePath, "error", err))
		return nil, 0, 0, "", err
	}

	fileSize := stat.Size()

	currentInode, err := getFileInode(file)
	if err != nil {
		r.logger.WithCaller().Warn("Failed to get file inode", r.logger.Args("path", r.filePath, "error", err))
		currentInode = 0 // Continue without inode check
	}

	// ROTATION DETECTION CASE 1: file identity changed (deleted and recreated)
	if r.lastInode != 0 && currentInode != 0 && currentInode != r.lastInode {
		r.logger.Info("Rotation detected: bodyfile deleted and recreated (inode changed)",
			r.logger.Args(
				"path", r.filePath,
				"old_inode", r.lastInode,
				"new_inode", currentInode,
			))
		r.lastPosition = 0
		r.lastLineContent = ""
		r.lastInode = currentInode
	} else if currentInode != 0 {
		r.lastInode = currentInode
	}

	// ROTATION DETECTION CASE 2: file truncated (size < last position)
	if fileSize < r.lastPosition {
		r.logger.Info("Rotation detected: bodyfile truncated",
			r.logger.Args(
				"path", r.filePath,
				"old_size", r.lastPosition,
				"new_size", fileSize,
			))
		r.lastPosition = 0
		r.lastLineContent = ""
	}

	// Seek to last known position. Positions are only ever advanced by exact
	// byte counts of consumed lines, so this always lands on a line boundary
	// (or 0 after a rotation reset).
	if _, err = file.Seek(r.lastPosition, 0); err != nil {
		r.logger.WithCaller().Error("Failed to seek in bodyfile",
			r.logger.Args("path", r.filePath, "position", r.lastPosition, "error", err))
		return nil, 0, 0, "", err
	}

	// Read line by line, accounting for every byte consumed. The position is
	// computed from the raw line lengths, never from the file offset: a
	// buffered reader's offset includes read-ahead that was never returned,
	// and persisting it would skip those lines on the next poll.
	br := bufio.NewReaderSize(file, 64*1024)
	lines := []string{}
	newPos := r.lastPosition

	for len(lines) < maxLines {
		raw, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			r.logger.WithCaller().Error("Read error while reading bodyfile",
				r.logger.Args("path", r.filePath, "error", err))
			return nil, 0, 0, "", err
		}

		if len(raw) > 0 {
			newPos += int64(len(raw))

			line := strings.TrimSuffix(raw, "\n")
			line = strings.TrimSuffix(line, "\r")

			// The codec never sees comments or blank lines; that filtering is
			// the line source's contract.
			if line != "" && !strings.HasPrefix(line, "#") {
				lines = append(lines, line)
			}
		}

		if err == io.EOF {
			break
		}
	}

	if len(lines) > 0 {
		lastLineForCheck := getTail(lines[len(lines)-1], 500)

		r.logger.Trace("Read batch from bodyfile",
			r.logger.Args(
				"path", r.filePath,
				"lines_read", len(lines),
				"old_position", r.lastPosition,
				"new_position", newPos,
			))

		return lines, newPos, r.lastInode, lastLineForCheck, nil
	}

	return []string{}, r.lastPosition, r.lastInode, r.lastLineContent, nil
}

// UpdatePosition is called by the processor to confirm the position after a
// successful batch write.
func (r *IncrementalReader) UpdatePosition(position int64, inode int64, lastLine string) {
	r.lastPosition = position
	r.lastInode = inode
	r.lastLineContent = lastLine
	r.logger.Trace("Updated reader position by caller",
		r.logger.Args(
			"path", r.filePath,
			"position", position,
			"inode", inode,
		))
}

// Reset resets the reader to the beginning of the file
func (r *IncrementalReader) Reset() {
	r.logger.Info("Resetting reader to beginning", r.logger.Args("path", r.filePath))
	r.lastPosition = 0
	r.lastInode = 0
	r.lastLineContent = ""
}

// getTail returns the last maxLen characters of a string
func getTail(s string, maxLen int) string {
	if s == "" {
		return ""
	}

	s = strings.TrimRight(s, " \t\n\r")

	if len(s) <= maxLen {
		return s
	}
	return s[len(s)-maxLen:]
}

// getFileInode returns a stable identifier for the file using reflection to
// access the system-specific inode. This works across platforms without
// build tags.
func getFileInode(file *os.File) (int64, error) {
	stat, err := file.Stat()
	if err != nil {
		return 0, err
	}

	// On Unix Sys() returns *syscall.Stat_t with an Ino field; on Windows the
	// file index fields play the same role.
	sys := stat.Sys()
	if sys != nil {
		v := reflect.ValueOf(sys)
		if v.Kind() == reflect.Ptr {
			v = v.Elem()
		}
		if v.Kind() == reflect.Struct {
			inoField := v.FieldByName("Ino")
			if inoField.IsValid() && inoField.CanUint() {
				return int64(inoField.Uint()), nil
			}

			fileIndexField := v.FieldByName("FileIndexHigh")
			if fileIndexField.IsValid() && fileIndexField.CanUint() {
				fileIndexHigh := fileIndexField.Uint()
				fileIndexLow := uint64(0)
				if lowField := v.FieldByName("FileIndexLow"); lowField.IsValid() && lowField.CanUint() {
					fileIndexLow = lowField.Uint()
				}
				return int64((fileIndexHigh << 32) | fileIndexLow), nil
			}
		}
	}

	// Without a real inode we return 0 and rely on size changes alone:
	// truncation is still detected, recreate-with-same-size is not.
	return 0, nil
}
