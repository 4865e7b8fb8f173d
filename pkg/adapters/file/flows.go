// Package file reads flow documents from a directory and keeps sessions as JSON files.
package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/comanda/internal/compiler"
	"github.com/aretw0/comanda/pkg/adapters/memory"
	"github.com/aretw0/comanda/pkg/domain"
)

var flowExtensions = map[string]bool{".yaml": true, ".yml": true, ".json": true}

// LoadDir compiles every flow document under dir, recursively, into an
// in-memory repository. Files are read in lexical order, which is also the
// order triggers are matched in. A file may hold one flow or a bundle.
func LoadDir(dir string) (*memory.FlowRepository, error) {
	flows, err := ReadDir(dir)
	if err != nil {
		return nil, err
	}
	return memory.NewFlowRepository(flows...), nil
}

// ReadDir compiles every flow document under dir.
func ReadDir(dir string) ([]*domain.Flow, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if flowExtensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan flow directory %s: %w", dir, err)
	}
	sort.Strings(paths)

	parser := compiler.NewParser()
	seen := make(map[string]string)
	var out []*domain.Flow
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		flows, err := parser.ParseAll(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, f := range flows {
			if prev, dup := seen[f.ID]; dup {
				return nil, fmt.Errorf("flow %q defined in both %s and %s", f.ID, prev, path)
			}
			seen[f.ID] = path
			out = append(out, f)
		}
	}
	return out, nil
}

// Reload replaces the content of repo with the flows currently under dir.
// Flows that disappeared from disk are removed.
func Reload(ctx context.Context, repo *memory.FlowRepository, dir string) (int, error) {
	flows, err := ReadDir(dir)
	if err != nil {
		return 0, err
	}
	current, err := repo.ListFlows(ctx)
	if err != nil {
		return 0, err
	}
	keep := make(map[string]bool, len(flows))
	for _, f := range flows {
		keep[f.ID] = true
		if err := repo.SaveFlow(ctx, f); err != nil {
			return 0, err
		}
	}
	for _, f := range current {
		if !keep[f.ID] {
			if err := repo.DeleteFlow(ctx, f.ID); err != nil {
				return 0, err
			}
		}
	}
	return len(flows), nil
}
