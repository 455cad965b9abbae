package processor

import (
	"os"
	"path/filepath"

	"reframe/internal/config"
)

// Collect lists the files under root that pass the scan filter. Files of a
// directory come before its subdirectories, both in name order; subdirectories
// are entered only when recursive is set. The listing is taken up front so
// files written during the run are never picked up again.
func Collect(root string, opts config.Options) ([]Job, error) {
	var jobs []Job
	if err := collectDir(root, root, opts, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func collectDir(root, dir string, opts config.Options, jobs *[]Job) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var subdirs []string
	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			subdirs = append(subdirs, full)
			continue
		}
		if !entry.Type().IsRegular() || !opts.Matches(entry.Name()) {
			continue
		}
		display, relErr := filepath.Rel(root, full)
		if relErr != nil {
			display = full
		}
		*jobs = append(*jobs, Job{Path: full, Display: display})
	}

	if !opts.Recursive {
		return nil
	}
	for _, sub := range subdirs {
		if err := collectDir(root, sub, opts, jobs); err != nil {
			return err
		}
	}
	return nil
}
