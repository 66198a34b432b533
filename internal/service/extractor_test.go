package service

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/lshigami/Tamarin/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDOCX(t *testing.T, paragraphs []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	f, err := w.Create("word/document.xml")
	require.NoError(t, err)

	var doc bytes.Buffer
	doc.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	doc.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		doc.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	doc.WriteString(`</w:body></w:document>`)

	_, err = f.Write(doc.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtractTxt(t *testing.T) {
	e := NewTextExtractor()

	text, info, err := e.Extract([]byte("plain notes about cell biology"), "txt")
	require.NoError(t, err)
	assert.Equal(t, "plain notes about cell biology", text)
	require.NotNil(t, info)
	assert.Equal(t, 5, info.WordCount)
	assert.Equal(t, 1, info.PageCount)
}

func TestExtractMarkdownWithDotPrefix(t *testing.T) {
	e := NewTextExtractor()

	text, _, err := e.Extract([]byte("# Heading\nbody"), ".MD")
	require.NoError(t, err)
	assert.Equal(t, "# Heading\nbody", text)
}

func TestExtractUnsupportedFormat(t *testing.T) {
	e := NewTextExtractor()

	_, _, err := e.Extract([]byte("binary"), "xlsx")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUnsupportedFormat)
}

func TestExtractDOCX(t *testing.T) {
	e := NewTextExtractor()
	data := buildDOCX(t, []string{"First paragraph here.", "Second paragraph here."})

	text, info, err := e.Extract(data, "docx")
	require.NoError(t, err)
	assert.Equal(t, "First paragraph here.\nSecond paragraph here.", text)
	require.NotNil(t, info)
	assert.Equal(t, 6, info.WordCount)
}

func TestExtractDOCXNotAnArchive(t *testing.T) {
	e := NewTextExtractor()

	_, _, err := e.Extract([]byte("definitely not a zip"), "docx")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrExtractionFailed)
}

func TestExtractCorruptPDF(t *testing.T) {
	e := NewTextExtractor()

	_, _, err := e.Extract([]byte("%PDF-1.4 garbage"), "pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrExtractionFailed)
}

func TestSupported(t *testing.T) {
	e := NewTextExtractor()

	assert.True(t, e.Supported("pdf"))
	assert.True(t, e.Supported(".PDF"))
	assert.True(t, e.Supported("txt"))
	assert.True(t, e.Supported("md"))
	assert.True(t, e.Supported("docx"))
	assert.False(t, e.Supported("xlsx"))
	assert.False(t, e.Supported(""))
}
