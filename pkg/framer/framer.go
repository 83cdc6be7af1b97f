// Package framer splits replies into radio-sized fragments.
package framer

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	DefaultMaxFragmentBytes  = 190
	DefaultSinglePacketBytes = 200
	DefaultMergeBytes        = 10

	// MinFragmentBytes is the smallest accepted ceiling. It leaves room for a
	// full rune next to a "[i/n] " header of up to twelve digits a side, a
	// count no reply text can reach.
	MinFragmentBytes = 32
)

// Options controls a single Frame call.
type Options struct {
	MaxFragmentBytes int
	MergeBytes       int
	SuppressHeaders  bool
}

func (o Options) withDefaults() Options {
	if o.MaxFragmentBytes <= 0 {
		o.MaxFragmentBytes = DefaultMaxFragmentBytes
	}
	if o.MaxFragmentBytes < MinFragmentBytes {
		o.MaxFragmentBytes = MinFragmentBytes
	}
	if o.MergeBytes < 0 {
		o.MergeBytes = 0
	}
	return o
}

// Frame splits text on line boundaries into fragments no longer than
// MaxFragmentBytes. Multi-fragment results carry a "[i/n] " header unless
// SuppressHeaders is set; the header counts toward the ceiling. Lines longer
// than the ceiling are cut on rune boundaries. Concatenating the fragment
// bodies yields text unchanged.
func Frame(text string, opts Options) []string {
	opts = opts.withDefaults()
	if text == "" {
		return nil
	}

	bodies := split(text, opts.MaxFragmentBytes, opts.MergeBytes)
	if len(bodies) == 1 || opts.SuppressHeaders {
		return bodies
	}

	// headers widen as the count grows; re-split until the reserve holds
	reserve := headerLen(len(bodies))
	for {
		limit := opts.MaxFragmentBytes - reserve
		if limit < utf8.UTFMax {
			limit = utf8.UTFMax
		}
		bodies = split(text, limit, opts.MergeBytes)
		need := headerLen(len(bodies))
		if need <= reserve || limit == utf8.UTFMax {
			break
		}
		reserve = need
	}

	out := make([]string, len(bodies))
	for i, b := range bodies {
		out[i] = Header(i+1, len(bodies)) + b
	}
	return out
}

// Header renders the 1-based index prefix for fragment i of n.
func Header(i, n int) string {
	return fmt.Sprintf("[%d/%d] ", i, n)
}

func headerLen(n int) int {
	return len(Header(n, n))
}

func split(text string, limit, merge int) []string {
	var segs []string
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		if len(line) <= limit {
			segs = append(segs, line)
			continue
		}
		segs = append(segs, cutRunes(line, limit)...)
	}

	var frags []string
	var cur strings.Builder
	for _, seg := range segs {
		if cur.Len() > 0 && cur.Len()+len(seg) > limit {
			frags = append(frags, cur.String())
			cur.Reset()
		}
		cur.WriteString(seg)
	}
	if cur.Len() > 0 {
		frags = append(frags, cur.String())
	}

	if n := len(frags); n > 1 {
		last, prev := frags[n-1], frags[n-2]
		if len(last) <= merge && len(prev)+len(last) <= limit {
			frags[n-2] = prev + last
			frags = frags[:n-1]
		}
	}
	return frags
}

func cutRunes(s string, limit int) []string {
	var out []string
	for len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if cut == 0 {
			_, cut = utf8.DecodeRuneInString(s)
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

// Framer applies the single-packet threshold before framing: short replies
// that did not ask for chunking go out whole.
type Framer struct {
	MaxFragmentBytes  int
	SinglePacketBytes int
	MergeBytes        int
}

// New returns a Framer with the radio defaults.
func New() Framer {
	return Framer{
		MaxFragmentBytes:  DefaultMaxFragmentBytes,
		SinglePacketBytes: DefaultSinglePacketBytes,
		MergeBytes:        DefaultMergeBytes,
	}
}

// Payloads returns the ordered payloads for one reply.
func (f Framer) Payloads(text string, chunk, suppressHeaders bool) []string {
	if text == "" {
		return nil
	}
	single := f.SinglePacketBytes
	if single <= 0 {
		single = DefaultSinglePacketBytes
	}
	if !chunk && len(text) <= single {
		return []string{text}
	}
	return Frame(text, Options{
		MaxFragmentBytes: f.MaxFragmentBytes,
		MergeBytes:       f.MergeBytes,
		SuppressHeaders:  suppressHeaders,
	})
}
