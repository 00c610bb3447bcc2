package syncer

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/gjson"

	"pulseboard/dashboard/internal/model"
)

// ExportSnapshot downloads the companion's database snapshot and writes it to
// path. An empty path picks a timestamped file in the working directory.
func (c *Coordinator) ExportSnapshot(ctx context.Context, path string) (string, error) {
	body, err := c.fetcher.Get(ctx, "/api/export/database", Options{Timeout: 60 * time.Second})
	if err != nil {
		return "", fmt.Errorf("export fetch: %w", err)
	}
	if path == "" {
		path = "pulseboard-export-" + time.Now().Format("20060102-150405") + ".json"
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("export write: %w", err)
	}
	c.logger.Info("snapshot exported", "path", path, "size", humanize.Bytes(uint64(len(body))))
	c.statusSt.Success("exported " + humanize.Bytes(uint64(len(body))) + " to " + path)
	return path, nil
}

// Screenshot is one capture returned by the screenshots-near lookup.
type Screenshot struct {
	Path      string `json:"path"`
	Timestamp int64  `json:"timestamp"`
}

// ScreenshotsNear returns captures recorded around a timestamp, nearest
// first as ordered by the companion.
func (c *Coordinator) ScreenshotsNear(ctx context.Context, ts int64) ([]Screenshot, error) {
	body, err := c.fetcher.Get(ctx, "/api/screenshots/near/"+strconv.FormatInt(ts, 10), Options{})
	if err != nil {
		return nil, err
	}
	var out []Screenshot
	gjson.GetBytes(body, "screenshots").ForEach(func(_, item gjson.Result) bool {
		out = append(out, Screenshot{
			Path:      item.Get("path").String(),
			Timestamp: model.NormalizeTimestamp(item.Get("timestamp")),
		})
		return true
	})
	return out, nil
}

// FileContents fetches current file bodies for the latent layout. The result
// maps path to content; missing files are omitted.
func (c *Coordinator) FileContents(ctx context.Context) (map[string]string, error) {
	body, err := c.fetcher.Get(ctx, "/api/file-contents", Options{})
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	gjson.GetBytes(body, "files").ForEach(func(_, item gjson.Result) bool {
		path := item.Get("path").String()
		if path != "" {
			out[path] = item.Get("content").String()
		}
		return true
	})
	return out, nil
}
