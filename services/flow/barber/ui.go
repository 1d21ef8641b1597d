package barber

import (
	"regexp"
	"strings"
)

// digit keycap emoji, both directions
var emojiToDigit = map[string]string{
	"1️⃣": "1", "2️⃣": "2", "3️⃣": "3", "4️⃣": "4", "5️⃣": "5",
	"6️⃣": "6", "7️⃣": "7", "8️⃣": "8", "9️⃣": "9", "0️⃣": "0",
}

var digitToEmoji = map[string]string{
	"1": "1️⃣", "2": "2️⃣", "3": "3️⃣", "4": "4️⃣", "5": "5️⃣",
	"6": "6️⃣", "7": "7️⃣", "8": "8️⃣", "9": "9️⃣", "0": "0️⃣",
}

func chip(n, label string) string {
	if e, ok := digitToEmoji[n]; ok {
		return e + " " + label
	}
	return n + " " + label
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// normalizeText cleans one inbound message: keycap emoji become digits,
// zero-width characters are stripped and whitespace is collapsed.
func normalizeText(text string) string {
	t := strings.TrimSpace(text)
	for emoji, digit := range emojiToDigit {
		t = strings.ReplaceAll(t, emoji, digit)
	}
	t = strings.ReplaceAll(t, "\u200b", "")
	t = strings.ReplaceAll(t, "\u200c", "")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(t, " "))
}

func box(title, content string) string {
	return "╔════════════════════════╗\n" +
		"    " + title + "\n" +
		"╠════════════════════════╣\n" +
		content + "\n" +
		"╚════════════════════════╝"
}

func footerCommands() string {
	return "ℹ️ Comandos rápidos:\n   • Menu   • Voltar   • Cancelar   • Ajuda   • Atendente"
}

func footerCartTips() string {
	return "✨ Adicione mais serviços\n" +
		"📝 Digite *pronto* para finalizar\n" +
		"❌ Digite *remover* para tirar um item\n" +
		"🧹 Digite *limpar* para esvaziar tudo"
}

// universalCommand recognizes the commands that work at any stage. Returns
// the canonical command name, or "" when the text is not one of them.
func universalCommand(text string) string {
	switch strings.ToLower(normalizeText(text)) {
	case "menu", "início", "inicio":
		return "menu"
	case "voltar":
		return "voltar"
	case "cancelar":
		return "cancelar"
	case "ajuda":
		return "ajuda"
	case "atendente", "falar com atendente", "humano":
		return "atendente"
	}
	return ""
}
