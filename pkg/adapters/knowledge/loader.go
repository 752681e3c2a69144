// Package knowledge is an in-memory vector index over local documents. It
// implements ports.Retriever for the general agent.
package knowledge

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// Document is a loaded knowledge file, normalized to markdown.
type Document struct {
	ID      string
	Title   string
	Content string
}

// LoadFS reads every .md, .markdown, .txt, .html and .htm file under fsys.
// HTML is converted to markdown. Other files are ignored.
func LoadFS(fsys fs.FS) ([]Document, error) {
	var docs []Document
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != "." && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(path.Ext(p))
		switch ext {
		case ".md", ".markdown", ".txt", ".html", ".htm":
		default:
			return nil
		}

		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		content := string(raw)
		if ext == ".html" || ext == ".htm" {
			content, err = htmltomarkdown.ConvertString(content)
			if err != nil {
				return fmt.Errorf("failed to convert %s: %w", p, err)
			}
		}

		content = strings.TrimSpace(content)
		if content == "" {
			return nil
		}
		docs = append(docs, Document{ID: p, Title: title(p, content), Content: content})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// title is the first markdown heading, or the file name.
func title(p, content string) string {
	for line := range strings.Lines(content) {
		line = strings.TrimSpace(line)
		if h, ok := strings.CutPrefix(line, "#"); ok {
			if t := strings.TrimSpace(strings.TrimLeft(h, "#")); t != "" {
				return t
			}
		}
	}
	return strings.TrimSuffix(path.Base(p), path.Ext(p))
}

// chunkText splits content on blank lines and packs paragraphs into chunks of
// at most size bytes. A paragraph longer than size becomes its own chunk.
func chunkText(content string, size int) []string {
	var chunks []string
	var cur strings.Builder
	for para := range strings.SplitSeq(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if cur.Len() > 0 && cur.Len()+len(para)+2 > size {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(para)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
