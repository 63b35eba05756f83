package usecase

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// FDX (Final Draft XML) document structure, the subset screenwriting tools
// need to open an exported script.
type fdxDocument struct {
	XMLName      xml.Name   `xml:"FinalDraft"`
	DocumentType string     `xml:"DocumentType,attr"`
	Template     string     `xml:"Template,attr"`
	Version      string     `xml:"Version,attr"`
	Content      fdxContent `xml:"Content"`
}

type fdxContent struct {
	Paragraphs []fdxParagraph `xml:"Paragraph"`
}

type fdxParagraph struct {
	Type string  `xml:"Type,attr"`
	Text fdxText `xml:"Text"`
}

type fdxText struct {
	Value string `xml:",chardata"`
}

// BuildFDX converts plain script text into a Final Draft XML document.
// The title becomes the opening scene heading when the script has none.
func BuildFDX(title, script string) ([]byte, error) {
	paragraphs := splitParagraphs(script)
	if len(paragraphs) == 0 {
		paragraphs = []string{""}
	}

	doc := fdxDocument{
		DocumentType: "Script",
		Template:     "No",
		Version:      "1",
	}

	if title != "" && !isSceneHeading(paragraphs[0]) {
		doc.Content.Paragraphs = append(doc.Content.Paragraphs, fdxParagraph{
			Type: "Scene Heading",
			Text: fdxText{Value: strings.ToUpper(title)},
		})
	}

	for _, p := range paragraphs {
		doc.Content.Paragraphs = append(doc.Content.Paragraphs, fdxParagraph{
			Type: paragraphType(p),
			Text: fdxText{Value: p},
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal fdx: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// splitParagraphs breaks script text on blank lines.
func splitParagraphs(script string) []string {
	var out []string
	for _, block := range strings.Split(strings.ReplaceAll(script, "\r\n", "\n"), "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			out = append(out, block)
		}
	}
	return out
}

// isSceneHeading reports whether a paragraph looks like a scene heading.
func isSceneHeading(p string) bool {
	upper := strings.ToUpper(p)
	return strings.HasPrefix(upper, "INT.") ||
		strings.HasPrefix(upper, "EXT.") ||
		strings.HasPrefix(upper, "INT/EXT.")
}

// paragraphType classifies a paragraph for FDX. Scene headings are detected;
// everything else exports as Action, which every FDX reader accepts.
func paragraphType(p string) string {
	if isSceneHeading(p) {
		return "Scene Heading"
	}
	return "Action"
}
