package service

import (
	"strings"
	"unicode"
)

// DefaultMaxChunkSize and DefaultChunkOverlap are the chunking defaults used
// by material ingestion when the config does not override them.
const (
	DefaultMaxChunkSize = 1000
	DefaultChunkOverlap = 200
)

// Chunk is a bounded span of a material's text with its stable index within
// the material. Chunks are produced fresh on every vectorization run and are
// never persisted outside the vector index.
type Chunk struct {
	Index int
	Text  string
}

// ChunkText splits text into sentence-bounded segments no longer than
// maxChunkSize characters. Sentences are packed greedily into a buffer; when
// adding the next sentence would overflow, the buffer is flushed as one chunk.
// A single sentence longer than maxChunkSize is split on word boundaries with
// the same greedy rule, so a chunk only exceeds the limit when one word does.
//
// The overlap parameter is accepted for call-site compatibility but adjacent
// chunks currently share no trailing content.
func ChunkText(text string, maxChunkSize, overlap int) []Chunk {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	_ = overlap

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []Chunk
	flush := func(parts []string) {
		if len(parts) == 0 {
			return
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Text: strings.Join(parts, " ")})
	}

	var current []string
	currentSize := 0

	for _, sentence := range sentences {
		sentenceLen := len(sentence)

		if sentenceLen > maxChunkSize {
			flush(current)
			current = nil
			currentSize = 0

			var words []string
			wordsSize := 0
			for _, word := range strings.Fields(sentence) {
				wordLen := len(word) + 1
				if wordsSize+wordLen > maxChunkSize {
					flush(words)
					words = []string{word}
					wordsSize = wordLen
				} else {
					words = append(words, word)
					wordsSize += wordLen
				}
			}
			flush(words)
			continue
		}

		if currentSize+sentenceLen+1 <= maxChunkSize {
			current = append(current, sentence)
			currentSize += sentenceLen + 1
		} else {
			flush(current)
			current = []string{sentence}
			currentSize = sentenceLen
		}
	}
	flush(current)

	return chunks
}

// splitSentences breaks text on terminal punctuation followed by whitespace.
// It keeps every non-whitespace character, so joining the pieces loses
// nothing of the original text.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		b.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
			if s := strings.TrimSpace(b.String()); s != "" {
				sentences = append(sentences, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
