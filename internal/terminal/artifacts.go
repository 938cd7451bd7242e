package terminal

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/xkilldash9x/vatm-cli/internal/paragon"
)

// Millisecond precision keeps per-step screenshots from overwriting each other.
const artifactTimeLayout = "2006-01-02--15.04.05.000"

// SaveScreenshot writes the current display to folder as
// Screenshot-<timestamp>.jpg and returns the file path.
func SaveScreenshot(ctx context.Context, vm paragon.VirtualMachine, folder string) (string, error) {
	jpeg, err := vm.GetScreenJpeg(ctx)
	if err != nil {
		return "", fmt.Errorf("screenshot: %w", err)
	}
	return writeJPEG(folder, "Screenshot", jpeg, time.Now())
}

// SaveReceipt writes the receipt image to folder as Receipt-<timestamp>.jpg.
// A receipt without an image is not an error; the returned path is empty.
func SaveReceipt(folder string, receipt *paragon.Receipt) (string, error) {
	if receipt == nil || receipt.Image == "" {
		return "", nil
	}
	return writeJPEG(folder, "Receipt", receipt.Image, time.Now())
}

func writeJPEG(folder, prefix, encoded string, at time.Time) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode %s image: %w", prefix, err)
	}
	dir, err := homedir.Expand(folder)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", folder, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	base := fmt.Sprintf("%s-%s", prefix, at.Format(artifactTimeLayout))
	for n := 0; ; n++ {
		name := base + ".jpg"
		if n > 0 {
			name = fmt.Sprintf("%s-%d.jpg", base, n)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", path, err)
		}
		_, werr := f.Write(data)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return "", fmt.Errorf("write %s: %w", path, werr)
		}
		return path, nil
	}
}
