package bodyfile

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldCount is the number of pipe-delimited fields in a TSK 3.x bodyfile line:
//
//	MD5|name|inode|mode_as_string|UID|GID|size|atime|mtime|ctime|crtime
//
// The format is produced by fls, ils and mac-robber and consumed by mactime.
// Times are UNIX epoch seconds; -1 marks a timestamp as unknown. The MD5 field
// holds the literal "0" when no hash was computed. There is no escaping
// mechanism, so a field containing a literal pipe makes the line ambiguous.
const FieldCount = 11

// TimeUnknown is the sentinel carried by a timestamp field whose value is
// unavailable for the record.
const TimeUnknown = -1

// Line is one bodyfile record. Text fields are stored verbatim, exactly as
// they appeared between the separators; numeric fields are typed.
type Line struct {
	MD5   string
	Name  string
	Inode string
	Mode  string

	UID  uint64
	GID  uint64
	Size uint64

	Atime  int64
	Mtime  int64
	Ctime  int64
	Crtime int64
}

// MalformedLineError reports a line that did not split into exactly
// FieldCount fields.
type MalformedLineError struct {
	FieldCount int
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("malformed bodyfile line: got %d fields, want %d", e.FieldCount, FieldCount)
}

// InvalidFieldError reports a numeric field whose raw text could not be
// parsed as the required integer type. Err carries the strconv cause.
type InvalidFieldError struct {
	Field string
	Raw   string
	Err   error
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid bodyfile field %s: %q: %v", e.Field, e.Raw, e.Err)
}

func (e *InvalidFieldError) Unwrap() error {
	return e.Err
}

// NewLine returns an empty record with the format's conventional defaults:
// MD5 "0" (not computed), inode "0" and all four timestamps unknown.
func NewLine() *Line {
	return &Line{
		MD5:    "0",
		Inode:  "0",
		Atime:  TimeUnknown,
		Mtime:  TimeUnknown,
		Ctime:  TimeUnknown,
		Crtime: TimeUnknown,
	}
}

// Chainable setters for assembling a record programmatically.

func (l *Line) WithMD5(md5 string) *Line     { l.MD5 = md5; return l }
func (l *Line) WithName(name string) *Line   { l.Name = name; return l }
func (l *Line) WithInode(inode string) *Line { l.Inode = inode; return l }
func (l *Line) WithMode(mode string) *Line   { l.Mode = mode; return l }
func (l *Line) WithUID(uid uint64) *Line     { l.UID = uid; return l }
func (l *Line) WithGID(gid uint64) *Line     { l.GID = gid; return l }
func (l *Line) WithSize(size uint64) *Line   { l.Size = size; return l }
func (l *Line) WithAtime(t int64) *Line      { l.Atime = t; return l }
func (l *Line) WithMtime(t int64) *Line      { l.Mtime = t; return l }
func (l *Line) WithCtime(t int64) *Line      { l.Ctime = t; return l }
func (l *Line) WithCrtime(t int64) *Line     { l.Crtime = t; return l }

// ParseLine parses one newline-free, non-comment bodyfile line into a Line.
//
// The split is strictly positional on ASCII '|'. Text fields (md5, name,
// inode, mode) are kept verbatim, whitespace included, because filenames may
// legitimately contain it. uid, gid and size must parse as unsigned decimal
// integers; the four time fields as signed decimal integers. Comment
// filtering and newline stripping are the line source's job, not the codec's.
//
// The mactime rule that at least one time value is non-zero is deliberately
// not enforced here; see ValidateTimestamps.
func ParseLine(line string) (*Line, error) {
	fields := strings.Split(line, "|")
	if len(fields) != FieldCount {
		return nil, &MalformedLineError{FieldCount: len(fields)}
	}

	l := &Line{
		MD5:   fields[0],
		Name:  fields[1],
		Inode: fields[2],
		Mode:  fields[3],
	}

	var err error
	if l.UID, err = strconv.ParseUint(fields[4], 10, 64); err != nil {
		return nil, &InvalidFieldError{Field: "uid", Raw: fields[4], Err: err}
	}
	if l.GID, err = strconv.ParseUint(fields[5], 10, 64); err != nil {
		return nil, &InvalidFieldError{Field: "gid", Raw: fields[5], Err: err}
	}
	if l.Size, err = strconv.ParseUint(fields[6], 10, 64); err != nil {
		return nil, &InvalidFieldError{Field: "size", Raw: fields[6], Err: err}
	}
	if l.Atime, err = strconv.ParseInt(fields[7], 10, 64); err != nil {
		return nil, &InvalidFieldError{Field: "atime", Raw: fields[7], Err: err}
	}
	if l.Mtime, err = strconv.ParseInt(fields[8], 10, 64); err != nil {
		return nil, &InvalidFieldError{Field: "mtime", Raw: fields[8], Err: err}
	}
	if l.Ctime, err = strconv.ParseInt(fields[9], 10, 64); err != nil {
		return nil, &InvalidFieldError{Field: "ctime", Raw: fields[9], Err: err}
	}
	if l.Crtime, err = strconv.ParseInt(fields[10], 10, 64); err != nil {
		return nil, &InvalidFieldError{Field: "crtime", Raw: fields[10], Err: err}
	}

	return l, nil
}

// String renders the record as a canonical bodyfile line: the 11 fields
// joined with '|', integers in base-10 decimal, no trailing newline. For any
// line accepted by ParseLine the output is byte-identical to the input.
func (l *Line) String() string {
	return strings.Join([]string{
		l.MD5,
		l.Name,
		l.Inode,
		l.Mode,
		strconv.FormatUint(l.UID, 10),
		strconv.FormatUint(l.GID, 10),
		strconv.FormatUint(l.Size, 10),
		strconv.FormatInt(l.Atime, 10),
		strconv.FormatInt(l.Mtime, 10),
		strconv.FormatInt(l.Ctime, 10),
		strconv.FormatInt(l.Crtime, 10),
	}, "|")
}
