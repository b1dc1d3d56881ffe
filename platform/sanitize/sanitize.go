// Package sanitize turns untrusted markup into plain text.
package sanitize

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	blankLines = regexp.MustCompile(`\n{3,}`)
	spaceRuns  = regexp.MustCompile(`[ \t\r\f\v]+`)

	// quoteHeaders mark where a mail client starts quoting the previous message.
	quoteHeaders = []*regexp.Regexp{
		regexp.MustCompile(`(?im)^\s*On .{1,200}wrote:\s*$`),
		regexp.MustCompile(`(?im)^\s*-{2,}\s*Original Message\s*-{2,}\s*$`),
		regexp.MustCompile(`(?im)^\s*From: .+\n\s*(Sent|Date): .+$`),
		regexp.MustCompile(`(?m)^\s*_{20,}\s*$`),
	}
)

// blockTags end a line of text when they open or close.
var blockTags = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "blockquote": true,
}

// StripHTML extracts the visible text of an HTML fragment. Script and style
// content is dropped, entities are decoded and block elements become newlines.
func StripHTML(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or a malformed tail; either way return what was read.
			return normalize(b.String())
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if tt == html.StartTagToken {
					skip++
				} else if tt == html.EndTagToken && skip > 0 {
					skip--
				}
				continue
			}
			if blockTags[tag] {
				b.WriteByte('\n')
			}
		}
	}
}

// StripQuotedReply drops the quoted history a mail client appends below a
// reply, keeping only what the sender wrote. Text with nothing above the
// quote is returned unchanged.
func StripQuotedReply(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	cut := len(s)
	for _, re := range quoteHeaders {
		if loc := re.FindStringIndex(s); loc != nil && loc[0] < cut {
			cut = loc[0]
		}
	}

	lines := strings.Split(s[:cut], "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), ">") {
			continue
		}
		kept = append(kept, line)
	}

	out := strings.TrimSpace(strings.Join(kept, "\n"))
	if out == "" {
		return strings.TrimSpace(s)
	}
	return out
}

// LooksLikeHTML reports whether s appears to contain markup.
func LooksLikeHTML(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "<html") || strings.Contains(lower, "<body") ||
		strings.Contains(lower, "<div") || strings.Contains(lower, "<p") || strings.Contains(lower, "<br")
}

func normalize(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRuns.ReplaceAllString(line, " "))
	}
	out := strings.Join(lines, "\n")
	out = blankLines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
