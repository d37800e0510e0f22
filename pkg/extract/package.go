package extract

import (
	"archive/zip"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

const (
	ManifestName = "imsmanifest.xml"
	// MaxPackageFiles bounds how many markup files are sampled.
	MaxPackageFiles = 8
	// MaxPackageExcerpt bounds each excerpt, in characters.
	MaxPackageExcerpt = 2500
)

// tagPattern is non-validating; an unterminated "<..." tail is removed too.
var tagPattern = regexp.MustCompile(`<[^>]*>?`)

// PackageFile describes one sampled markup file.
type PackageFile struct {
	Path  string `json:"path"`
	Title string `json:"title,omitempty"`
	Chars int    `json:"chars"`
}

// PackageContent is the text sample taken from an interactive content package.
type PackageContent struct {
	Text        string
	HasManifest bool
	MarkupFiles int
	Sampled     []PackageFile
}

// ExtractPackage reads the manifest and up to eight markup files from a zip.
// Markup entries are taken in lexical path order.
func ExtractPackage(path string) (PackageContent, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return PackageContent{}, fmt.Errorf("open package: %w", err)
	}
	defer reader.Close()
	return extractPackage(&reader.Reader)
}

func extractPackage(reader *zip.Reader) (PackageContent, error) {
	var (
		out      PackageContent
		manifest *zip.File
		markup   []*zip.File
	)
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		if file.Name == ManifestName {
			manifest = file
			continue
		}
		if isMarkup(file.Name) {
			markup = append(markup, file)
		}
	}
	sort.Slice(markup, func(i, j int) bool { return markup[i].Name < markup[j].Name })
	out.MarkupFiles = len(markup)

	var text strings.Builder
	text.WriteString("STRUKTUR PAKET SCORM:\n")
	if manifest != nil {
		data, err := readEntry(manifest)
		if err != nil {
			return PackageContent{}, err
		}
		if len(data) > 0 {
			out.HasManifest = true
			text.WriteString("MANIFEST XML:\n")
			text.Write(data)
			text.WriteString("\n")
		}
	}

	if len(markup) > MaxPackageFiles {
		markup = markup[:MaxPackageFiles]
	}
	for _, file := range markup {
		data, err := readEntry(file)
		if err != nil {
			return PackageContent{}, err
		}
		if len(data) == 0 {
			continue
		}
		excerpt := StripTags(string(data), MaxPackageExcerpt)
		text.WriteString("\nISI KONTEN FILE (")
		text.WriteString(file.Name)
		text.WriteString("):\n")
		text.WriteString(excerpt)
		out.Sampled = append(out.Sampled, PackageFile{
			Path:  file.Name,
			Title: documentTitle(string(data)),
			Chars: len([]rune(excerpt)),
		})
	}
	out.Text = text.String()
	return out, nil
}

// StripTags replaces tag-shaped substrings with a space and truncates to limit characters.
func StripTags(markup string, limit int) string {
	stripped := tagPattern.ReplaceAllString(markup, " ")
	if limit <= 0 {
		return stripped
	}
	runes := []rune(stripped)
	if len(runes) > limit {
		runes = runes[:limit]
	}
	return string(runes)
}

func isMarkup(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".html") || strings.HasSuffix(lower, ".htm")
}

func readEntry(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("read package file %s: %w", file.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read package content %s: %w", file.Name, err)
	}
	return data, nil
}

// documentTitle returns the <title> text, if any.
func documentTitle(markup string) string {
	z := html.NewTokenizer(strings.NewReader(markup))
	inTitle := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := z.TagName()
			inTitle = string(name) == "title"
		case html.EndTagToken:
			if inTitle {
				return ""
			}
		case html.TextToken:
			if inTitle {
				return normalizeText(string(z.Text()))
			}
		}
	}
}
