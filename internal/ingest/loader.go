package ingest

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// extractText converts an uploaded file into plain text based on its
// extension. Markdown is flattened through the AST so headings, lists and
// tables keep their line structure; PDFs go through the pdf reader; anything
// else is treated as UTF-8 text with invalid bytes dropped.
func extractText(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return markdownText(data), nil
	case ".pdf":
		return pdfText(data)
	default:
		return strings.ToValidUTF8(string(data), ""), nil
	}
}

// pdfText extracts the plain text layer of a PDF held in memory.
func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	return buf.String(), nil
}

// markdownText flattens markdown to plain text by walking the goldmark AST.
// Headings become their own paragraphs, list items their own lines, and
// table rows are joined cell-by-cell so tabular facts survive as one line.
func markdownText(content []byte) string {
	parser := goldmark.New(
		goldmark.WithExtensions(extension.Table),
	)
	doc := parser.Parser().Parse(text.NewReader(content))

	var b strings.Builder
	b.Grow(len(content))

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			breakParagraph(&b)
			b.WriteString(nodeText(node, content))
			b.WriteString("\n\n")
			return ast.WalkSkipChildren, nil

		case *ast.Text:
			b.Write(node.Segment.Value(content))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte('\n')
			}

		case *ast.String:
			b.Write(node.Value)

		case *ast.CodeSpan:
			b.WriteString(nodeText(node, content))
			return ast.WalkSkipChildren, nil

		case *ast.CodeBlock:
			breakParagraph(&b)
			writeSegmentLines(&b, node.Lines(), content)

		case *ast.FencedCodeBlock:
			breakParagraph(&b)
			writeSegmentLines(&b, node.Lines(), content)

		case *ast.Paragraph, *ast.List:
			breakParagraph(&b)

		case *ast.ListItem:
			breakLine(&b)

		default:
			// Table extension nodes are matched by kind name, same as the
			// cell extraction below.
			kind := n.Kind().String()
			if strings.Contains(kind, "TableRow") || strings.Contains(kind, "TableHeader") {
				breakLine(&b)
				b.WriteString(tableRowText(n, content))
				b.WriteByte('\n')
				return ast.WalkSkipChildren, nil
			}
			if strings.Contains(kind, "TableCell") {
				return ast.WalkSkipChildren, nil
			}
			if strings.Contains(kind, "Table") {
				breakParagraph(&b)
			}
		}

		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(b.String())
}

// nodeText collects the text content of a node and its children.
func nodeText(n ast.Node, content []byte) string {
	var b strings.Builder

	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(content))
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(b.String())
}

// tableRowText joins the cells of a table row with pipe separators.
func tableRowText(row ast.Node, content []byte) string {
	var b strings.Builder
	cells := 0

	_ = ast.Walk(row, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if strings.Contains(node.Kind().String(), "TableCell") {
			if cells > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(nodeText(node, content))
			cells++
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return b.String()
}

// writeSegmentLines appends the raw source lines of a block node.
func writeSegmentLines(b *strings.Builder, lines *text.Segments, content []byte) {
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		b.Write(line.Value(content))
	}
}

// breakLine ensures collected text ends with a newline before the next block.
func breakLine(b *strings.Builder) {
	if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteByte('\n')
	}
}

// breakParagraph ensures a blank line between blocks so the splitter sees a
// paragraph boundary.
func breakParagraph(b *strings.Builder) {
	if b.Len() == 0 {
		return
	}
	s := b.String()
	if strings.HasSuffix(s, "\n\n") {
		return
	}
	if strings.HasSuffix(s, "\n") {
		b.WriteByte('\n')
		return
	}
	b.WriteString("\n\n")
}
