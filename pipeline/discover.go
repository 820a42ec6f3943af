// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/docstream/core"
)

// Discover walks the input directory and builds the work item list in
// deterministic lexical order. Each file is fingerprinted by content;
// a fingerprint already seen in this walk marks the later item as a
// skipped duplicate rather than dropping it, so it still shows up in
// the run report.
//
// Hidden files and directories are ignored.
func Discover(ctx context.Context, inputDir string, logger *slog.Logger) ([]*core.WorkItem, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var items []*core.WorkItem
	seen := make(map[core.Fingerprint]struct{})

	err := filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		name := d.Name()
		if strings.HasPrefix(name, ".") && path != inputDir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		item := &core.WorkItem{
			Path:        path,
			Fingerprint: core.FingerprintFromContent(content),
			Status:      core.StatusDiscovered,
		}
		if _, dup := seen[item.Fingerprint]; dup {
			item.Status = core.StatusSkippedDuplicate
			logger.Debug("duplicate content, skipping", "path", path)
		} else {
			seen[item.Fingerprint] = struct{}{}
		}

		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("discovery complete", "dir", inputDir, "items", len(items))
	return items, nil
}
