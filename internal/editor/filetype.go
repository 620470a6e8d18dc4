package editor

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	apperrors "deal-service/pkg/errors"
)

// DocumentType is the editor surface's document category.
type DocumentType string

const (
	DocumentWord  DocumentType = "word"
	DocumentCell  DocumentType = "cell"
	DocumentSlide DocumentType = "slide"
	DocumentPDF   DocumentType = "pdf"
)

// documentTypes is the closed allow-list of editable formats. Anything not
// listed is rejected before any signed-URL mint.
var documentTypes = map[string]DocumentType{
	"doc":  DocumentWord,
	"docx": DocumentWord,
	"odt":  DocumentWord,
	"rtf":  DocumentWord,
	"txt":  DocumentWord,
	"xls":  DocumentCell,
	"xlsx": DocumentCell,
	"csv":  DocumentCell,
	"ods":  DocumentCell,
	"ppt":  DocumentSlide,
	"pptx": DocumentSlide,
	"odp":  DocumentSlide,
	"pdf":  DocumentPDF,
}

// versionPrefixPattern matches the storage-layer filename prefix, e.g.
// "v3_userABC_" in "v3_userABC_RentRoll.xlsx".
var versionPrefixPattern = regexp.MustCompile(`^v\d+_[^_]+_`)

// FileInfo describes a storage path as the editor surface needs it.
type FileInfo struct {
	// Name is the human filename with storage prefixes stripped.
	Name string
	// Extension is the lowercase extension without the dot.
	Extension string
	// DocumentType is the editor category for the extension.
	DocumentType DocumentType
}

// ResolveFileInfo derives the display filename and document category from a
// storage path like "proj1/underwriting-docs/res1/v3_userABC_RentRoll.xlsx".
// Paths with extensions outside the allow-list fail with a validation error
// naming the detected type and the permitted set.
func ResolveFileInfo(storagePath string) (*FileInfo, error) {
	base := path.Base(storagePath)
	name := versionPrefixPattern.ReplaceAllString(base, "")

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if ext == "" {
		return nil, apperrors.Validation(fmt.Sprintf("file %q has no extension", name))
	}

	docType, ok := documentTypes[ext]
	if !ok {
		return nil, apperrors.UnsupportedFile(
			fmt.Sprintf("file type %q is not editable; supported types: %s", ext, supportedExtensions()),
		)
	}

	return &FileInfo{
		Name:         name,
		Extension:    ext,
		DocumentType: docType,
	}, nil
}

func supportedExtensions() string {
	exts := make([]string, 0, len(documentTypes))
	for ext := range documentTypes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}
