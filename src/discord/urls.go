package discord

import (
	"fmt"
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://[^\s\[\]()<>]+`)

// WrapURLsNoEmbed wraps URLs in angle brackets to prevent Discord embeds.
func WrapURLsNoEmbed(text string) string {
	return urlPattern.ReplaceAllStringFunc(text, func(url string) string {
		trimmed := strings.TrimRight(url, ".,;:!?)")
		return fmt.Sprintf("<%s>", trimmed) + url[len(trimmed):]
	})
}

// ChannelMention formats a channel reference.
func ChannelMention(channelID string) string {
	return fmt.Sprintf("<#%s>", channelID)
}
