package mail

import (
	"io/fs"
	"log/slog"
	"path"
)

// DiscoverTemplates scans dir for template subdirectories containing a
// template.yaml manifest. Invalid templates are logged and skipped (not
// fatal) to allow partial discovery.
func DiscoverTemplates(fsys fs.FS, dir string) ([]*Template, error) {
	var templates []*Template

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		templateDir := path.Join(dir, entry.Name())
		if _, err := fs.Stat(fsys, path.Join(templateDir, "template.yaml")); err != nil {
			continue
		}

		t, err := loadTemplate(fsys, templateDir)
		if err != nil {
			slog.Warn("Failed to load email template", "dir", entry.Name(), "error", err)
			continue
		}

		templates = append(templates, t)
	}

	return templates, nil
}
