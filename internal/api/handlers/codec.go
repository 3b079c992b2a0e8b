package handlers

import (
	"errors"
	"net/http"

	"timelynx/internal/parser/bodyfile"

	"github.com/gin-gonic/gin"
	"github.com/pterm/pterm"
)

// CodecHandler exposes the bodyfile line codec over HTTP for ad-hoc
// parsing and formatting without registering a source.
type CodecHandler struct {
	logger *pterm.Logger
}

// NewCodecHandler creates a new codec handler
func NewCodecHandler(logger *pterm.Logger) *CodecHandler {
	return &CodecHandler{logger: logger}
}

// ParseRequest is the body of POST /codec/parse
type ParseRequest struct {
	Line string `json:"line" binding:"required"`
}

// LineDocument mirrors a parsed bodyfile line in JSON
type LineDocument struct {
	MD5    string `json:"md5"`
	Name   string `json:"name"`
	Inode  string `json:"inode"`
	Mode   string `json:"mode"`
	UID    uint64 `json:"uid"`
	GID    uint64 `json:"gid"`
	Size   uint64 `json:"size"`
	Atime  int64  `json:"atime"`
	Mtime  int64  `json:"mtime"`
	Ctime  int64  `json:"ctime"`
	Crtime int64  `json:"crtime"`
}

// Parse parses one bodyfile line and returns its fields
func (h *CodecHandler) Parse(c *gin.Context) {
	var req ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected JSON body with a 'line' field"})
		return
	}

	line, err := bodyfile.ParseLine(req.Line)
	if err != nil {
		var malformed *bodyfile.MalformedLineError
		var invalid *bodyfile.InvalidFieldError

		resp := gin.H{"error": err.Error()}
		switch {
		case errors.As(err, &malformed):
			resp["field_count"] = malformed.FieldCount
		case errors.As(err, &invalid):
			resp["field"] = invalid.Field
			resp["raw"] = invalid.Raw
		}

		c.JSON(http.StatusBadRequest, resp)
		return
	}

	c.JSON(http.StatusOK, toDocument(line))
}

// Format serializes the given fields back into a bodyfile line. Omitted
// fields take the codec defaults (md5 "0", inode "0", timestamps -1).
func (h *CodecHandler) Format(c *gin.Context) {
	doc := LineDocument{
		MD5:    "0",
		Inode:  "0",
		Atime:  bodyfile.TimeUnknown,
		Mtime:  bodyfile.TimeUnknown,
		Ctime:  bodyfile.TimeUnknown,
		Crtime: bodyfile.TimeUnknown,
	}
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected JSON body with line fields"})
		return
	}

	line := bodyfile.NewLine().
		WithMD5(doc.MD5).
		WithName(doc.Name).
		WithInode(doc.Inode).
		WithMode(doc.Mode).
		WithUID(doc.UID).
		WithGID(doc.GID).
		WithSize(doc.Size).
		WithAtime(doc.Atime).
		WithMtime(doc.Mtime).
		WithCtime(doc.Ctime).
		WithCrtime(doc.Crtime)

	c.JSON(http.StatusOK, gin.H{"line": line.String()})
}

func toDocument(l *bodyfile.Line) *LineDocument {
	return &LineDocument{
		MD5:    l.MD5,
		Name:   l.Name,
		Inode:  l.Inode,
		Mode:   l.Mode,
		UID:    l.UID,
		GID:    l.GID,
		Size:   l.Size,
		Atime:  l.Atime,
		Mtime:  l.Mtime,
		Ctime:  l.Ctime,
		Crtime: l.Crtime,
	}
}
