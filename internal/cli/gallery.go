package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/digkill/SweetheartDash/internal/models"
	"github.com/digkill/SweetheartDash/internal/render"
)

func newGalleryCommand() *cobra.Command {
	var downloadDir string

	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "List generated images, optionally downloading them",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext()
			defer stop()

			if err := a.requireSignIn(ctx); err != nil {
				return err
			}

			gallery, err := a.api.Images(ctx)
			if err != nil {
				return err
			}

			if gallery.Count() == 0 {
				fmt.Println("Gallery is empty.")
				return nil
			}

			render.NewTerminal(os.Stdout).ShowGallery(gallery)

			if downloadDir == "" {
				return nil
			}
			return a.downloadAll(ctx, downloadDir, gallery.Images)
		},
	}

	cmd.Flags().StringVar(&downloadDir, "download", "", "directory to download images into")
	return cmd
}

func (a *app) downloadAll(ctx context.Context, dir string, images []models.GalleryImage) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}

	client := &http.Client{Timeout: a.cfg.RequestTimeout}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.DownloadConcurrency)

	for i, img := range images {
		g.Go(func() error {
			name := fileNameFor(img.URL, i)
			dest := filepath.Join(dir, name)

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, img.URL, nil)
			if err != nil {
				return fmt.Errorf("new request: %w", err)
			}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("download %s: %w", img.URL, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 300 {
				return fmt.Errorf("download %s: status=%d", img.URL, resp.StatusCode)
			}

			f, err := os.Create(dest)
			if err != nil {
				return fmt.Errorf("create %s: %w", dest, err)
			}
			defer f.Close()

			if _, err := io.Copy(f, resp.Body); err != nil {
				return fmt.Errorf("write %s: %w", dest, err)
			}

			a.log.Info("image downloaded", "dest", dest)
			return nil
		})
	}

	return g.Wait()
}

func fileNameFor(rawURL string, index int) string {
	base := path.Base(rawURL)
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	if base == "" || base == "." || base == "/" {
		return fmt.Sprintf("image-%03d.png", index+1)
	}
	return fmt.Sprintf("%03d-%s", index+1, base)
}
