// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hollowmark/weave/internal/log"
)

// BackupScheduler periodically snapshots a FileStore's directory to a
// gzip-compressed tarball, so a crashed or corrupted store can be
// restored from the most recent backup.
type BackupScheduler struct {
	cron    *cron.Cron
	dir     string
	destDir string
}

// NewBackupScheduler constructs a scheduler that backs up sourceDir into
// destDir on spec (standard 5-field cron syntax).
func NewBackupScheduler(sourceDir, destDir string) *BackupScheduler {
	return &BackupScheduler{cron: cron.New(), dir: sourceDir, destDir: destDir}
}

// Start registers spec (e.g. "0 */6 * * *" for every six hours) and
// begins running it in the background.
func (b *BackupScheduler) Start(spec string) error {
	if err := os.MkdirAll(b.destDir, 0o755); err != nil {
		return err
	}
	_, err := b.cron.AddFunc(spec, func() {
		if err := b.runOnce(); err != nil {
			log.Error("session store backup failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	b.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any in-flight backup to finish.
func (b *BackupScheduler) Stop() {
	<-b.cron.Stop().Done()
}

func (b *BackupScheduler) runOnce() error {
	name := fmt.Sprintf("sessions-%s.tar.gz", time.Now().UTC().Format("20060102-150405"))
	dest := filepath.Join(b.destDir, name)

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	return filepath.Walk(b.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(b.dir, path)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = rel
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(tw, src)
		return err
	})
}
