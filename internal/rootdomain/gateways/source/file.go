package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// FileSource reads a local public_suffix_list.dat, such as the copy shipped
// by distribution packages under /usr/share/publicsuffix.
type FileSource struct {
	Path string
}

func (f FileSource) Fetch(ctx context.Context) (io.ReadCloser, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, f.Path, err
	}
	if f.Path == "" {
		return nil, "", errors.New("file source has no path")
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, f.Path, fmt.Errorf(errSourceFailed, f.Path, err)
	}
	return fh, f.Path, nil
}

var _ Source = FileSource{}
