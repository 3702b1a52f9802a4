package ai

import (
	"regexp"
	"strings"

	"github.com/kasunw/whatsapp-relay/internal/domain"
)

// markdownLinkRE matches [caption](url) with an http(s) URL. The caption may
// be empty; the URL must not contain whitespace or a closing parenthesis.
var markdownLinkRE = regexp.MustCompile(`\[([^\]\n]*)\]\((https?://[^)\s]+)\)`)

// blankLineRE collapses the runs of blank lines left behind by stripped links.
var blankLineRE = regexp.MustCompile(`\n{3,}`)

// parseReply splits a raw completion into reply text and images: every
// markdown-style [caption](url) link becomes one image entry, in order of
// appearance, and is removed from the text.
func parseReply(raw string) *domain.Reply {
	reply := &domain.Reply{}

	for _, m := range markdownLinkRE.FindAllStringSubmatch(raw, -1) {
		reply.Images = append(reply.Images, domain.ReplyImage{
			Caption: strings.TrimSpace(m[1]),
			URL:     m[2],
		})
	}

	text := markdownLinkRE.ReplaceAllString(raw, "")
	text = blankLineRE.ReplaceAllString(text, "\n\n")
	reply.Text = strings.TrimSpace(text)
	return reply
}
