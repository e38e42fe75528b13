// Command pixsafe-info is a read-only diagnostic tool: given a directory of
// carrier images it reads only each image's header (no payload body decode)
// and reports the image index it declares and, for the image at index 0,
// the total payload length it declares.
//
// Grounded on the teacher's cmd/w64tool: a small inspection-only client that
// never mutates the thing it looks at.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pixsafe/pixsafe/internal/container"
	"github.com/pixsafe/pixsafe/internal/fsops"
	"github.com/pixsafe/pixsafe/internal/pixelio"
	"github.com/pixsafe/pixsafe/internal/version"
)

func main() {
	var dir string
	var showVersion bool
	flag.StringVar(&dir, "dir", "", "directory of carrier PNGs to inspect")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version.Get().String())
		return
	}
	if dir == "" {
		fmt.Fprintln(os.Stderr, "pixsafe-info: -dir is required")
		os.Exit(2)
	}

	names, err := fsops.ListPNGsSorted(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pixsafe-info:", err)
		os.Exit(1)
	}
	if len(names) == 0 {
		fmt.Fprintln(os.Stderr, "pixsafe-info: no PNG files found")
		os.Exit(1)
	}

	exitCode := 0
	for _, name := range names {
		h, err := readHeader(filepath.Join(dir, name))
		if err != nil {
			fmt.Printf("%-32s ERROR: %v\n", name, err)
			exitCode = 1
			continue
		}
		if h.TotalPayloadBits != nil {
			fmt.Printf("%-32s index=%d total_payload_bits=%d\n", name, h.ImageIndex, *h.TotalPayloadBits)
			continue
		}
		fmt.Printf("%-32s index=%d\n", name, h.ImageIndex)
	}
	os.Exit(exitCode)
}

func readHeader(path string) (*container.Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := pixelio.Decode(f)
	if err != nil {
		return nil, err
	}
	cur := pixelio.NewCursor(r)
	return container.ReadHeader(cur)
}
