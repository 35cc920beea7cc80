package submission

import (
	"encoding/base64"
	"strings"

	"github.com/garyjia/business-trip/internal/domain/entity"
	"go.uber.org/zap"
)

// documentFrom decodes a form file component: a list whose first element
// carries the data in "url" (as a data URI) or "base64", and the name in
// "originalName" or "name". A direct data URI string is accepted when a
// separate filename is supplied.
func (e *Extractor) documentFrom(raw interface{}, fallbackName string) *entity.Document {
	var encoded, name string

	switch v := raw.(type) {
	case []interface{}:
		if len(v) == 0 {
			return nil
		}
		info, ok := v[0].(map[string]interface{})
		if !ok {
			e.logger.Warn("File entry is not an object, ignoring")
			return nil
		}
		if storage, ok := info["storage"].(string); ok && storage != "base64" {
			e.logger.Warn("Unsupported file storage, ignoring", zap.String("storage", storage))
			return nil
		}
		if url, _ := info["url"].(string); strings.HasPrefix(url, "data:") {
			encoded = stripDataURI(url)
		} else if b64, _ := info["base64"].(string); b64 != "" {
			encoded = stripDataURI(b64)
		}
		name, _ = info["originalName"].(string)
		if name == "" {
			name, _ = info["name"].(string)
		}
	case string:
		if !strings.HasPrefix(v, "data:") {
			return nil
		}
		encoded = stripDataURI(v)
		name = fallbackName
	default:
		return nil
	}

	if encoded == "" || name == "" {
		e.logger.Warn("File data incomplete, ignoring",
			zap.Bool("has_data", encoded != ""),
			zap.String("file_name", name))
		return nil
	}

	content, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		e.logger.Warn("Failed to decode file data",
			zap.String("file_name", name),
			zap.Error(err))
		return nil
	}
	return &entity.Document{FileName: name, Content: content}
}

// stripDataURI drops a "data:<mime>;base64," prefix
func stripDataURI(s string) string {
	if i := strings.LastIndex(s, ","); i >= 0 {
		return s[i+1:]
	}
	return s
}

// firstDocument returns the first of the candidate keys holding a usable file
func (e *Extractor) firstDocument(p *Payload, keys ...string) *entity.Document {
	for _, key := range keys {
		raw, _, ok := p.lookup([]string{key}, []string{key})
		if !ok {
			continue
		}
		if doc := e.documentFrom(raw, ""); doc != nil {
			return doc
		}
	}
	return nil
}
