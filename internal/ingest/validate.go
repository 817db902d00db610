package ingest

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/wedealize/sourcing-engine/internal/config"
	"github.com/wedealize/sourcing-engine/internal/model"
)

// Allowed upload extensions per document kind. Catalogs and price lists
// share the document set; certificates and product images are narrower.
var allowedExtensions = map[model.DocumentKind]map[string]bool{
	model.KindCatalog:     {".pdf": true, ".xlsx": true, ".xls": true, ".csv": true},
	model.KindPricelist:   {".pdf": true, ".xlsx": true, ".xls": true, ".csv": true},
	model.KindCertificate: {".pdf": true, ".jpg": true, ".jpeg": true, ".png": true},
	model.KindImage:       {".jpg": true, ".jpeg": true, ".png": true, ".webp": true},
}

// ValidateUpload rejects files whose extension is not allowed for the kind
// or whose size exceeds the kind's ceiling. It never reads file content.
func ValidateUpload(cfg config.IngestConfig, kind model.DocumentKind, filename string, size int64) error {
	allowed, ok := allowedExtensions[kind]
	if !ok {
		return eris.Errorf("ingest: unknown document kind %q", kind)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowed[ext] {
		return eris.Errorf("ingest: extension %q not allowed for %s uploads", ext, kind)
	}

	limit := sizeLimit(cfg, kind)
	if size > limit {
		return eris.Errorf("ingest: %s exceeds %d byte limit for %s uploads (%d bytes)", filename, limit, kind, size)
	}
	return nil
}

func sizeLimit(cfg config.IngestConfig, kind model.DocumentKind) int64 {
	switch kind {
	case model.KindCertificate:
		return cfg.MaxCertificateBytes
	case model.KindImage:
		return cfg.MaxImageBytes
	default:
		return cfg.MaxDocumentBytes
	}
}
