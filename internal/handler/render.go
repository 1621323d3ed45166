package handler

import (
	"fmt"
	"strings"

	"vpsbot/internal/provider"
)

// escapeMarkdown neutralizes the characters Telegram's legacy Markdown
// mode treats as formatting. Server names are user- and upstream-supplied,
// so everything interpolated into a Markdown message goes through here.
func escapeMarkdown(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch r {
		case '_', '*', '`', '[':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// providerErrorMessage maps a classified provider failure to the text a
// user sees. Raw upstream detail never leaks into chat.
func providerErrorMessage(err error) string {
	switch provider.KindOf(err) {
	case provider.KindAuthFailed, provider.KindForbidden:
		return "Configuration error - contact administrator"
	case provider.KindRateLimited:
		return "Too many requests - try again later"
	default:
		return "Unable to complete request - try again later"
	}
}

// rebootErrorMessage is the reboot-specific variant: an unresolvable
// target gets its own message, everything else mirrors the generic map.
func rebootErrorMessage(serverName string, err error) string {
	switch provider.KindOf(err) {
	case provider.KindNotFound:
		return fmt.Sprintf("Server '%s' not found", serverName)
	case provider.KindAuthFailed, provider.KindForbidden:
		return "Configuration error - contact administrator"
	case provider.KindRateLimited:
		return "Too many requests - try again later"
	default:
		return "Unable to reboot server - try again later"
	}
}

// renderServerList formats one provider's servers as a Markdown block.
func renderServerList(providerName string, servers []provider.Server) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* (%d):\n", escapeMarkdown(providerName), len(servers))
	if len(servers) == 0 {
		b.WriteString("  no servers found\n")
		return b.String()
	}
	for _, s := range servers {
		fmt.Fprintf(&b, "  `%s`", escapeMarkdown(s.Name))
		if s.Status != "" {
			fmt.Fprintf(&b, " [%s]", escapeMarkdown(s.Status))
		}
		if s.IP != "" {
			fmt.Fprintf(&b, " `%s`", s.IP)
		}
		b.WriteString("\n")
	}
	return b.String()
}

const (
	helpTextBasic = "Available commands:\n" +
		"/id - Get your chat ID\n" +
		"/help - Show this help message"

	helpTextAuthorized = "Available commands:\n" +
		"/id - Get your chat ID\n" +
		"/help - Show this help message\n" +
		"/find <server_name> - Find a server\n" +
		"/reboot <server_name> - Reboot a server\n" +
		"/list [provider] - List servers"

	accessDeniedText = "Access denied. Use /id to get your chat ID and request authorization."
)
