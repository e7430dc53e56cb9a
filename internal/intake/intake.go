package intake

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"

	"quotedesk/internal"
	"quotedesk/internal/logger"
)

// Upload is a quotation file accepted for processing. Tables is only set for
// spreadsheets, which never go through layout parsing.
type Upload struct {
	Name      string
	Kind      internal.FileKind
	Data      []byte
	PageCount int
	Tables    []internal.Table
}

var imageExts = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".bmp": {}, ".tiff": {}, ".tif": {},
}

func KindFromName(name string) (internal.FileKind, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case ext == ".pdf":
		return internal.KindPDF, true
	case ext == ".xlsx":
		return internal.KindXLSX, true
	default:
		if _, ok := imageExts[ext]; ok {
			return internal.KindImage, true
		}
		return "", false
	}
}

// ReadFile is Read on a file from disk.
func ReadFile(path string, maxBytes int64) (Upload, error) {
	if maxBytes > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return Upload{}, err
		}
		if info.Size() > maxBytes {
			return Upload{}, fmt.Errorf("%w: %s is %d bytes", internal.ErrFileTooLarge, filepath.Base(path), info.Size())
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Upload{}, err
	}
	return Read(filepath.Base(path), data, maxBytes)
}

// Read validates a quotation file by name and content. An .eml message is
// replaced by its first supported attachment.
func Read(name string, data []byte, maxBytes int64) (Upload, error) {
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return Upload{}, fmt.Errorf("%w: %s is %d bytes", internal.ErrFileTooLarge, name, len(data))
	}

	if strings.EqualFold(filepath.Ext(name), ".eml") {
		attName, attData, err := firstAttachment(data)
		if err != nil {
			return Upload{}, err
		}
		logger.Get("intake").Info("using email attachment", "email", name, "attachment", attName)
		return Read(attName, attData, maxBytes)
	}

	kind, ok := KindFromName(name)
	if !ok {
		return Upload{}, fmt.Errorf("%w: %s", internal.ErrUnsupportedFormat, name)
	}

	u := Upload{Name: name, Kind: kind, Data: data}
	switch kind {
	case internal.KindPDF:
		pages, err := pdfPageCount(data)
		if err != nil {
			return Upload{}, fmt.Errorf("invalid pdf %s: %w", name, err)
		}
		u.PageCount = pages
	case internal.KindImage:
		if !isImage(data) {
			return Upload{}, fmt.Errorf("%w: %s is not an image", internal.ErrUnsupportedFormat, name)
		}
		u.PageCount = 1
	case internal.KindXLSX:
		tables, err := ReadXLSX(data)
		if err != nil {
			return Upload{}, fmt.Errorf("invalid xlsx %s: %w", name, err)
		}
		u.Tables = tables
		u.PageCount = len(tables)
	}
	return u, nil
}

// Store copies the upload into dir/<sessionID>/<fileID>_<name> and returns
// the record to persist.
func Store(dir, sessionID string, u Upload) (internal.FileRecord, error) {
	fileID := uuid.NewString()
	target := filepath.Join(dir, sessionID, fileID+"_"+safeName(u.Name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return internal.FileRecord{}, err
	}
	if err := os.WriteFile(target, u.Data, 0o644); err != nil {
		return internal.FileRecord{}, err
	}
	return internal.FileRecord{
		SessionID:    sessionID,
		FileID:       fileID,
		OriginalName: u.Name,
		StoredPath:   target,
		Kind:         u.Kind,
		PageCount:    u.PageCount,
		Status:       internal.StatusUploaded,
	}, nil
}

func safeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}

func pdfPageCount(data []byte) (int, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return r.NumPage(), nil
}

func isImage(data []byte) bool {
	if bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*")) {
		return true
	}
	return strings.HasPrefix(http.DetectContentType(data), "image/")
}

func firstAttachment(raw []byte) (string, []byte, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return "", nil, err
	}
	parts := append(append([]*enmime.Part{}, env.Attachments...), env.Inlines...)
	for _, att := range parts {
		filename := strings.TrimSpace(att.FileName)
		if _, ok := KindFromName(filename); ok {
			return filename, att.Content, nil
		}
	}
	return "", nil, fmt.Errorf("%w: email has no pdf, image or xlsx attachment", internal.ErrUnsupportedFormat)
}
