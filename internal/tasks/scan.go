package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/songseeker/internal/models"
	"github.com/desertthunder/songseeker/internal/shared"
)

// SelectSection picks a section by ID or case-insensitive title.
// Without a choice the only section is used; several sections are ambiguous.
func SelectSection(sections []models.Section, choice string) (*models.Section, error) {
	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: no library sections found", shared.ErrSectionNotFound)
	}

	if choice != "" {
		for i := range sections {
			if sections[i].ID == choice || strings.EqualFold(sections[i].Title, choice) {
				return &sections[i], nil
			}
		}
		return nil, fmt.Errorf("%w: section '%s' not found", shared.ErrSectionNotFound, choice)
	}

	if len(sections) == 1 {
		return &sections[0], nil
	}

	names := make([]string, len(sections))
	for i, s := range sections {
		names[i] = s.String()
	}
	return nil, fmt.Errorf("%w: multiple libraries found, use --section: %s", shared.ErrAmbiguousSection, strings.Join(names, ", "))
}

// ScanPath makes a relative path absolute under the section root.
func ScanPath(root, path string) string {
	if root == "" || strings.HasPrefix(path, "/") || strings.HasPrefix(path, `\`) {
		return path
	}
	return strings.TrimRight(root, "/") + "/" + path
}

// ScanOutcome is the result of one path scan.
type ScanOutcome struct {
	Path string
	Err  error
}

// Scan resolves the section named by choice and triggers a scan per path.
// An empty path list scans the whole section.
func (e *Engine) Scan(ctx context.Context, prog chan<- ProgressUpdate, choice string, paths []string, force bool) (*models.Section, []ScanOutcome, error) {
	if err := e.requireLibrary(); err != nil {
		return nil, nil, err
	}

	sections, err := e.plex.Sections(ctx)
	if err != nil {
		return nil, nil, err
	}
	section, err := SelectSection(sections, choice)
	if err != nil {
		return nil, nil, err
	}

	if len(paths) == 0 {
		paths = []string{""}
	}

	outcomes := make([]ScanOutcome, 0, len(paths))
	for _, p := range paths {
		full := p
		if p != "" {
			full = ScanPath(section.Root, p)
		}
		e.sendProgress(prog, scanUpdate(*section, full))
		outcomes = append(outcomes, ScanOutcome{Path: full, Err: e.plex.Scan(ctx, section.ID, full, force)})
	}
	return section, outcomes, nil
}
