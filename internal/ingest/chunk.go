package ingest

import (
	"bufio"
	"strings"
)

// targetChunkSize and chunkOverlap are the spec's approximate chunking
// parameters (spec §4.5 step 4). No teacher chunker exists to ground this
// on; implemented fresh from the language-aware/line-fallback description.
const (
	targetChunkSize = 1500
	chunkOverlap    = 100
)

// Chunk is one piece of a file's content, ready to become a chunk document.
type Chunk struct {
	Index int
	Text  string
}

// ChunkFile splits content into overlapping chunks sized for embedding.
// language-aware splitting prefers paragraph/blank-line boundaries (close
// enough to "statement boundaries" for most languages without a per-language
// parser); unknown inputs fall back to pure line-based chunking. Empty files
// are skipped by the caller before this is ever invoked.
func ChunkFile(content, language string) []Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	if language != "" {
		return chunkByParagraph(content)
	}
	return chunkByLine(content)
}

func chunkByParagraph(content string) []Chunk {
	paragraphs := splitParagraphs(content)
	return packChunks(paragraphs)
}

func chunkByLine(content string) []Chunk {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(content))
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	units := make([]string, len(lines))
	for i, l := range lines {
		units[i] = l + "\n"
	}
	return packChunks(units)
}

// splitParagraphs breaks content on blank lines, keeping each paragraph
// (including its trailing blank-line separator) as one packable unit.
func splitParagraphs(content string) []string {
	lines := strings.Split(content, "\n")
	var units []string
	var cur strings.Builder
	for _, l := range lines {
		cur.WriteString(l)
		cur.WriteByte('\n')
		if strings.TrimSpace(l) == "" {
			units = append(units, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		units = append(units, cur.String())
	}
	return units
}

// packChunks greedily packs units into ~targetChunkSize chunks, carrying
// chunkOverlap characters of trailing context from each chunk into the next.
func packChunks(units []string) []Chunk {
	if len(units) == 0 {
		return nil
	}
	var chunks []Chunk
	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Text: cur.String()})
	}

	for _, u := range units {
		if cur.Len() > 0 && cur.Len()+len(u) > targetChunkSize {
			prev := cur.String()
			flush()
			cur.Reset()
			if len(prev) > chunkOverlap {
				cur.WriteString(prev[len(prev)-chunkOverlap:])
			}
		}
		cur.WriteString(u)
	}
	flush()
	return chunks
}
