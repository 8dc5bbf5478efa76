// internal/catalog/load.go
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"nlq-resolver/internal/common/errors"
	"nlq-resolver/internal/common/logger"
	"nlq-resolver/internal/common/metrics"
)

// LoadFile reads a catalog document from path (YAML, or JSON since YAML
// subsumes it), validates it against the document schema and loads it
// into the catalog.
func LoadFile(c *Catalog, path string) error {
	doc, err := ReadDocument(path)
	if err != nil {
		return err
	}
	return c.Load(*doc)
}

// ReadDocument parses and schema-validates a catalog file without loading it.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewCatalogLoadFailedError(err)
	}
	return decodeDocument(data)
}

func decodeDocument(data []byte) (*Document, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.NewCatalogLoadFailedError(err)
	}
	if err := validateDocument(raw); err != nil {
		return nil, err
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewCatalogLoadFailedError(err)
	}
	return &doc, nil
}

func validateDocument(raw map[string]interface{}) error {
	schemaLoader := gojsonschema.NewGoLoader(documentSchema)
	documentLoader := gojsonschema.NewGoLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return errors.NewCatalogLoadFailedError(err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return errors.NewCatalogInvalidError(strings.Join(details, "; "))
	}
	return nil
}

// Watch loads the catalog from path and reloads it whenever the file
// changes. A reload that fails validation is logged and counted but
// leaves the previously loaded snapshot in place. The watcher runs until
// the process exits.
func Watch(c *Catalog, path string, log logger.Logger) error {
	if err := LoadFile(c, path); err != nil {
		return err
	}
	metrics.CatalogReloads.WithLabelValues("success").Inc()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.NewCatalogLoadFailedError(err)
	}
	// Watch the directory: editors and config maps replace the file, which
	// would silently drop a watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return errors.NewCatalogLoadFailedError(err)
	}

	go func() {
		target := filepath.Clean(path)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				reload(c, path, log)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("catalog watcher error", nil)
			}
		}
	}()
	return nil
}

func reload(c *Catalog, path string, log logger.Logger) {
	if err := LoadFile(c, path); err != nil {
		metrics.CatalogReloads.WithLabelValues("invalid").Inc()
		log.WithError(err).Warn("catalog reload rejected, keeping previous snapshot", map[string]interface{}{
			"path": path,
		})
		return
	}
	metrics.CatalogReloads.WithLabelValues("success").Inc()
	log.Info("catalog reloaded", map[string]interface{}{
		"path":    path,
		"entries": len(c.Entries()),
	})
}
