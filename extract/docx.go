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


package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const docxBody = "word/document.xml"

// DOCX returns an extractor for Office Open XML word-processing documents.
// Paragraph text is read from word/document.xml, one line per paragraph.
func DOCX() Extractor {
	return ExtractorFunc(func(_ context.Context, data []byte) (string, error) {
		reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		for _, file := range reader.File {
			if file.Name != docxBody {
				continue
			}
			rc, err := file.Open()
			if err != nil {
				return "", fmt.Errorf("%w: %w", ErrMalformed, err)
			}
			content, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return "", fmt.Errorf("%w: %w", ErrMalformed, err)
			}
			return parseDocumentXML(content)
		}
		return "", fmt.Errorf("%w: missing %s", ErrMalformed, docxBody)
	})
}

type documentXML struct {
	Body struct {
		Paragraphs []paragraphXML `xml:"p"`
		Tables     []tableXML     `xml:"tbl"`
	} `xml:"body"`
}

type tableXML struct {
	Rows []struct {
		Cells []struct {
			Paragraphs []paragraphXML `xml:"p"`
		} `xml:"tc"`
	} `xml:"tr"`
}

type paragraphXML struct {
	Runs []runXML `xml:"r"`
	// Hyperlinks wrap their own runs.
	Links []struct {
		Runs []runXML `xml:"r"`
	} `xml:"hyperlink"`
}

type runXML struct {
	Text []struct {
		Content string `xml:",chardata"`
	} `xml:"t"`
	Tabs []struct{} `xml:"tab"`
}

func (p paragraphXML) text() string {
	var b strings.Builder
	write := func(runs []runXML) {
		for _, r := range runs {
			for range r.Tabs {
				b.WriteByte('\t')
			}
			for _, t := range r.Text {
				b.WriteString(t.Content)
			}
		}
	}
	write(p.Runs)
	for _, l := range p.Links {
		write(l.Runs)
	}
	return b.String()
}

func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	var lines []string
	for _, p := range doc.Body.Paragraphs {
		lines = append(lines, p.text())
	}
	for _, tbl := range doc.Body.Tables {
		for _, row := range tbl.Rows {
			var cells []string
			for _, cell := range row.Cells {
				var parts []string
				for _, p := range cell.Paragraphs {
					if t := strings.TrimSpace(p.text()); t != "" {
						parts = append(parts, t)
					}
				}
				cells = append(cells, strings.Join(parts, " "))
			}
			lines = append(lines, strings.Join(cells, "\t"))
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
