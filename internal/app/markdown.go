package app

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	glamouransi "github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	xansi "github.com/charmbracelet/x/ansi"

	"payadmin/internal/types"
)

const (
	amountPlaces    = 2
	timestampLayout = "2006-01-02 15:04 MST"
)

var (
	rendererMu       sync.Mutex
	renderersByStyle = map[markdownRendererKey]*glamour.TermRenderer{}
	markdownDarkMode = true
)

// RenderMarkdown renders input for a terminal of the given width. Rendering
// failures fall back to the raw text.
func RenderMarkdown(input string, width int) string {
	input = strings.TrimRight(input, "\n")
	if input == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	r := getRenderer(width, markdownBackgroundDark())
	if r == nil {
		return input
	}
	out, err := r.Render(input)
	if err != nil {
		return input
	}
	out = strings.TrimRight(out, "\n")
	out = xansi.Hardwrap(out, width, true)
	return strings.TrimRight(out, "\n")
}

type markdownRendererKey struct {
	width int
	dark  bool
}

func markdownBackgroundDark() bool {
	rendererMu.Lock()
	defer rendererMu.Unlock()
	return markdownDarkMode
}

func setMarkdownBackgroundDark(dark bool) bool {
	rendererMu.Lock()
	defer rendererMu.Unlock()
	changed := markdownDarkMode != dark
	markdownDarkMode = dark
	return changed
}

func getRenderer(width int, dark bool) *glamour.TermRenderer {
	rendererMu.Lock()
	defer rendererMu.Unlock()
	key := markdownRendererKey{width: width, dark: dark}
	if renderer, ok := renderersByStyle[key]; ok && renderer != nil {
		return renderer
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(buildStyleConfig(dark)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	renderersByStyle[key] = r
	return r
}

func buildStyleConfig(dark bool) glamouransi.StyleConfig {
	var base glamouransi.StyleConfig
	if dark {
		base = styles.DarkStyleConfig
	} else {
		base = styles.LightStyleConfig
	}
	// The detail pane supplies its own spacing.
	base.Document.StylePrimitive.BlockPrefix = ""
	base.Document.StylePrimitive.BlockSuffix = ""
	zero := uint(0)
	base.Document.Margin = &zero
	faint := true
	color := "245"
	base.BlockQuote.StylePrimitive.Faint = &faint
	base.BlockQuote.StylePrimitive.Color = &color
	return base
}

// TransferMarkdown describes one transfer as a markdown document: summary
// table, chain and bank details, remarks and the status history oldest first.
// Backend text is escaped so it can never inject markup.
func TransferMarkdown(t *types.Transfer) string {
	if t == nil {
		return ""
	}
	var b strings.Builder
	ref := cleanLine(t.Reference)
	if ref == "" {
		ref = cleanLine(t.ID)
	}
	fmt.Fprintf(&b, "# %s\n\n", escapeMarkdown(ref))
	fmt.Fprintf(&b, "**%s** · %s\n\n", escapeMarkdown(t.Status.Label()), escapeMarkdown(t.Type.Label()))
	if msg := cleanText(t.StatusMessage); msg != "" {
		fmt.Fprintf(&b, "> %s\n\n", escapeMarkdown(msg))
	}

	b.WriteString("| Field | Value |\n|---|---|\n")
	row := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		fmt.Fprintf(&b, "| %s | %s |\n", label, escapeTableCell(escapeMarkdown(value)))
	}
	row("ID", cleanLine(t.ID))
	row("Amount", formatAmount(t.Amount.StringFixed(amountPlaces), t.Currency))
	row("Fee", formatAmount(t.Fee.StringFixed(amountPlaces), t.Currency))
	net := formatAmount(t.NetAmount.StringFixed(amountPlaces), t.Currency)
	if !t.NetMatches(amountPlaces) {
		net += " (does not equal amount minus fee)"
	}
	row("Net", net)
	row("Customer", customerLabel(t.User))
	row("Customer code", userField(t.User, func(u *types.UserSummary) string { return u.CustomerCode }))
	row("Created", formatTime(t.CreatedAt))
	row("Updated", formatTime(t.UpdatedAt))
	if t.CompletedAt != nil {
		row("Completed", formatTime(*t.CompletedAt))
	}
	if t.ExpiresAt != nil {
		row("Expires", formatTime(*t.ExpiresAt))
	}
	b.WriteString("\n")

	if hasChainDetails(t) {
		b.WriteString("## Chain\n\n")
		listItem(&b, "Network", cleanLine(t.Network))
		listItem(&b, "Tx hash", inlineCode(cleanLine(t.TxHash)))
		listItem(&b, "Deposit address", inlineCode(cleanLine(t.DepositAddress)))
		listItem(&b, "Admin wallet", inlineCode(cleanLine(t.AdminWalletAddress)))
		if t.RequiredConfirmations > 0 || t.Confirmations > 0 {
			listItem(&b, "Confirmations", fmt.Sprintf("%d/%d", t.Confirmations, t.RequiredConfirmations))
		}
		b.WriteString("\n")
	}

	if len(t.BankAccounts) > 0 {
		b.WriteString("## Bank accounts\n\n")
		for _, account := range t.BankAccounts {
			parts := []string{cleanLine(account.BankName), cleanLine(account.AccountNumber), cleanLine(account.AccountName)}
			if account.Currency != "" {
				parts = append(parts, cleanLine(account.Currency))
			}
			fmt.Fprintf(&b, "- %s\n", escapeMarkdown(strings.Join(nonEmpty(parts), " · ")))
		}
		b.WriteString("\n")
	}

	if remarks := cleanText(t.AdminRemarks); remarks != "" {
		fmt.Fprintf(&b, "## Admin remarks\n\n%s\n\n", escapeMarkdown(remarks))
	}
	if notes := cleanText(t.InternalNotes); notes != "" {
		fmt.Fprintf(&b, "## Internal notes\n\n%s\n\n", escapeMarkdown(notes))
	}

	history := t.OrderedHistory()
	if len(history) > 0 {
		b.WriteString("## History\n\n")
		for _, entry := range history {
			from := entry.FromStatus.Label()
			line := fmt.Sprintf("%s: %s → %s", formatTime(entry.CreatedAt), from, entry.ToStatus.Label())
			if actor := cleanLine(entry.ActorName); actor != "" {
				line += " by " + actor
			}
			if remarks := cleanLine(entry.Remarks); remarks != "" {
				line += " (" + remarks + ")"
			}
			fmt.Fprintf(&b, "- %s\n", escapeMarkdown(line))
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func hasChainDetails(t *types.Transfer) bool {
	return t.Network != "" || t.TxHash != "" || t.DepositAddress != "" ||
		t.AdminWalletAddress != "" || t.Confirmations > 0 || t.RequiredConfirmations > 0
}

func listItem(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "- **%s:** %s\n", label, value)
}

func inlineCode(value string) string {
	value = strings.ReplaceAll(value, "`", "")
	if value == "" {
		return ""
	}
	return "`" + value + "`"
}

func customerLabel(user *types.UserSummary) string {
	if user == nil {
		return ""
	}
	name := cleanLine(user.DisplayName())
	email := cleanLine(user.Email)
	if email != "" && email != name {
		return name + " <" + email + ">"
	}
	return name
}

func userField(user *types.UserSummary, get func(*types.UserSummary) string) string {
	if user == nil {
		return ""
	}
	return cleanLine(get(user))
}

func formatAmount(amount, currency string) string {
	currency = cleanLine(currency)
	if currency == "" {
		return amount
	}
	return amount + " " + currency
}

func formatTime(at time.Time) string {
	if at.IsZero() {
		return ""
	}
	return at.Local().Format(timestampLayout)
}

func nonEmpty(values []string) []string {
	out := values[:0]
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			out = append(out, value)
		}
	}
	return out
}

func escapeTableCell(text string) string {
	text = strings.ReplaceAll(text, "|", "\\|")
	return strings.ReplaceAll(text, "\n", " ")
}

func escapeMarkdown(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.ReplaceAll(line, "`", "\\`")
		line = strings.ReplaceAll(line, "*", "\\*")
		line = strings.ReplaceAll(line, "_", "\\_")
		trimmed := strings.TrimLeft(line, " \t")
		prefix := line[:len(line)-len(trimmed)]
		switch {
		case strings.HasPrefix(trimmed, "#"),
			strings.HasPrefix(trimmed, ">"),
			strings.HasPrefix(trimmed, "- "),
			strings.HasPrefix(trimmed, "+ "):
			lines[i] = prefix + "\\" + trimmed
		case isNumberedList(trimmed):
			lines[i] = prefix + "\\" + trimmed
		default:
			lines[i] = prefix + trimmed
		}
	}
	return strings.Join(lines, "\n")
}

func isNumberedList(text string) bool {
	dot := strings.IndexByte(text, '.')
	if dot <= 0 {
		return false
	}
	if dot+1 >= len(text) || text[dot+1] != ' ' {
		return false
	}
	for i := 0; i < dot; i++ {
		if text[i] < '0' || text[i] > '9' {
			return false
		}
	}
	return true
}
