/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// AutosaveCrashSnapshot writes the in-memory page to a crash file under
// backups without touching page.json. It returns the written path.
func AutosaveCrashSnapshot(ph *PageHandle) (string, error) {
	if ph == nil {
		return "", errors.New("nil PageHandle")
	}
	if ph.Root == "" {
		return "", errors.New("invalid PageHandle: missing root")
	}
	data, err := Encode(ph.Page)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(ph.Root, BackupsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.crash-%s.json", ManifestFileName, time.Now().Format("20060102-150405")))
	if err := writeFileSync(path, data); err != nil {
		return "", fmt.Errorf("write crash snapshot: %w", err)
	}
	return path, nil
}
