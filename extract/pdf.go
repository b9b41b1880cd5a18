package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var pageFilePattern = regexp.MustCompile(`page_(\d+)`)

// PDF returns an extractor that pulls page content streams out with pdfcpu
// and decodes their text-showing operators. Scanned pages without text
// operators yield nothing.
func PDF() Extractor {
	return ExtractorFunc(extractPDF)
}

func extractPDF(ctx context.Context, data []byte) (string, error) {
	workDir, err := os.MkdirTemp("", "lectern-pdf-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(workDir)

	input := filepath.Join(workDir, "input.pdf")
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return "", err
	}
	if _, err := api.ReadContextFile(input); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	outDir := filepath.Join(workDir, "content")
	if err := os.MkdirAll(outDir, 0o700); err != nil {
		return "", err
	}
	if err := api.ExtractContentFile(input, outDir, nil, model.NewDefaultConfiguration()); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	pages, err := readPageFiles(outDir)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, page := range pages {
		text := strings.TrimSpace(decodeContentStream(page))
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

// readPageFiles returns extracted content streams in page order.
func readPageFiles(dir string) ([][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type pageFile struct {
		num  int
		name string
	}
	files := make([]pageFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		num := 0
		if m := pageFilePattern.FindStringSubmatch(e.Name()); m != nil {
			num, _ = strconv.Atoi(m[1])
		}
		files = append(files, pageFile{num: num, name: e.Name()})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].num != files[j].num {
			return files[i].num < files[j].num
		}
		return files[i].name < files[j].name
	})

	pages := make([][]byte, 0, len(files))
	for _, f := range files {
		content, err := os.ReadFile(filepath.Join(dir, f.name))
		if err != nil {
			return nil, err
		}
		pages = append(pages, content)
	}
	return pages, nil
}
