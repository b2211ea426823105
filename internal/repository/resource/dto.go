package resource

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"
	"time"

	domres "github.com/kailas-cloud/readnext/internal/domain/resource"
)

// Hash field names. Anything else stored on the hash is ignored on read.
const (
	fieldTitle        = "title"
	fieldDescription  = "description"
	fieldURL          = "url"
	fieldTags         = "tags"
	fieldEmbedding    = "embedding"
	fieldTagEmbedding = "tag_embedding"
	fieldIngestedAt   = "ingested_at"
)

const tagSeparator = ","

// buildHashFields flattens a resource for HSET.
func buildHashFields(r *domres.Resource, now time.Time) map[string]string {
	m := map[string]string{
		fieldTitle:       r.Title,
		fieldDescription: r.Description,
		fieldTags:        strings.Join(r.Tags, tagSeparator),
		fieldIngestedAt:  strconv.FormatInt(now.Unix(), 10),
	}
	if r.URL != "" {
		m[fieldURL] = r.URL
	}
	if len(r.Embedding) > 0 {
		m[fieldEmbedding] = vectorToBytes(r.Embedding)
	}
	if len(r.TagEmbedding) > 0 {
		m[fieldTagEmbedding] = vectorToBytes(r.TagEmbedding)
	}
	return m
}

// parseHashFields rebuilds a resource from a hash. The returned bool is false
// for an empty hash, which is what HGETALL yields for a vanished key.
func parseHashFields(id string, m map[string]string) (domres.Resource, bool) {
	if len(m) == 0 {
		return domres.Resource{}, false
	}
	r := domres.Resource{
		ID:          id,
		Title:       m[fieldTitle],
		Description: m[fieldDescription],
		URL:         m[fieldURL],
		Tags:        splitTags(m[fieldTags]),
	}
	if v, ok := m[fieldEmbedding]; ok {
		r.Embedding = bytesToVector(v)
	}
	if v, ok := m[fieldTagEmbedding]; ok {
		r.TagEmbedding = bytesToVector(v)
	}
	return r, true
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, tagSeparator)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// vectorToBytes packs []float32 as little-endian 4-byte floats.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

var tagEscaper = strings.NewReplacer(
	`\`, `\\`,
	` `, `\ `,
	`,`, `\,`,
	`.`, `\.`,
	`-`, `\-`,
	`:`, `\:`,
	`{`, `\{`,
	`}`, `\}`,
	`|`, `\|`,
	`@`, `\@`,
	`*`, `\*`,
	`(`, `\(`,
	`)`, `\)`,
	`'`, `\'`,
	`"`, `\"`,
)

// tagQuery renders a disjunctive TAG query: @tags:{a|b|c}.
func tagQuery(tags []string) string {
	escaped := make([]string, len(tags))
	for i, t := range tags {
		escaped[i] = tagEscaper.Replace(t)
	}
	return "@" + fieldTags + ":{" + strings.Join(escaped, "|") + "}"
}
