package pages

import (
	"context"
	"fmt"
)

// ObjectStore receives exported page files. *postgres.S3Client satisfies it.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, content []byte, contentType string) error
}

// Export names the objects written for one exported page
type Export struct {
	PageID  int64  `json:"page_id"`
	HTMLKey string `json:"html_key"`
	CSSKey  string `json:"css_key"`
}

// ExportKeys returns the object keys a page export writes to
func ExportKeys(userID, pageID int64) Export {
	prefix := fmt.Sprintf("pages/%d/%d/", userID, pageID)
	return Export{
		PageID:  pageID,
		HTMLKey: prefix + "index.html",
		CSSKey:  prefix + "style.css",
	}
}

// Exporter uploads a page as a standalone index.html plus style.css
type Exporter struct {
	objects ObjectStore
}

// NewExporter creates an exporter writing to objects
func NewExporter(objects ObjectStore) *Exporter {
	return &Exporter{objects: objects}
}

// Export uploads page and returns the keys it wrote
func (e *Exporter) Export(ctx context.Context, page *Page) (*Export, error) {
	if page.Status != StatusCompleted {
		return nil, ErrPageNotReady
	}

	keys := ExportKeys(page.UserID, page.ID)
	if err := e.objects.PutObject(ctx, keys.HTMLKey, []byte(page.Document()), "text/html; charset=utf-8"); err != nil {
		return nil, fmt.Errorf("failed to export page html: %w", err)
	}
	if err := e.objects.PutObject(ctx, keys.CSSKey, []byte(page.CSS), "text/css; charset=utf-8"); err != nil {
		return nil, fmt.Errorf("failed to export page css: %w", err)
	}
	return &keys, nil
}
