package layout

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"quotedesk/internal"
)

type imageJob struct {
	page   int
	ref    string
	url    string
	target string
}

// DownloadImages fetches every image referenced by the result's markdown into
// dir/imgs and returns a copy of result whose markdown, image map and table
// blocks point at the local files. Images that fail to download keep their
// original reference.
func (c *Client) DownloadImages(ctx context.Context, result internal.ExtractionResult, dir string) (internal.ExtractionResult, error) {
	imgDir := filepath.Join(dir, "imgs")
	if err := os.MkdirAll(imgDir, 0o755); err != nil {
		return result, err
	}

	var jobs []imageJob
	for i, page := range result.LayoutParsingResults {
		for _, ref := range slices.Sorted(maps.Keys(page.Markdown.Images)) {
			url := page.Markdown.Images[ref]
			if strings.TrimSpace(url) == "" {
				continue
			}
			jobs = append(jobs, imageJob{
				page:   i,
				ref:    ref,
				url:    url,
				target: filepath.Join(imgDir, path.Base(filepath.ToSlash(ref))),
			})
		}
	}

	workers := c.cfg.ImageDownloadWorkers
	if workers <= 0 {
		workers = 1
	}

	var (
		mu   sync.Mutex
		done = make([]bool, len(jobs))
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			if err := c.fetchImage(gCtx, job.url, job.target); err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				c.log.Error("image download failed", "url", job.url, "err", err)
				return nil
			}
			mu.Lock()
			done[i] = true
			mu.Unlock()
			c.log.Info("image downloaded", "ref", job.ref, "path", job.target)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	out := cloneResult(result)
	for i, job := range jobs {
		if !done[i] {
			continue
		}
		page := &out.LayoutParsingResults[job.page]
		page.Markdown.Text = strings.ReplaceAll(page.Markdown.Text, job.ref, job.target)
		page.Markdown.Images[job.ref] = job.target
		for b := range page.PrunedResult.ParsingResList {
			block := &page.PrunedResult.ParsingResList[b]
			block.BlockContent = strings.ReplaceAll(block.BlockContent, job.ref, job.target)
		}
	}
	return out, nil
}

func (c *Client) fetchImage(ctx context.Context, url, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	f, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(target)
		return err
	}
	return f.Close()
}

func cloneResult(result internal.ExtractionResult) internal.ExtractionResult {
	out := internal.ExtractionResult{LayoutParsingResults: make([]internal.LayoutPage, len(result.LayoutParsingResults))}
	for i, page := range result.LayoutParsingResults {
		cp := page
		cp.Markdown.Images = maps.Clone(page.Markdown.Images)
		if cp.Markdown.Images == nil {
			cp.Markdown.Images = map[string]string{}
		}
		cp.PrunedResult.ParsingResList = slices.Clone(page.PrunedResult.ParsingResList)
		out.LayoutParsingResults[i] = cp
	}
	return out
}
