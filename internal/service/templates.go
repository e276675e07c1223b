package service

import (
	"fmt"
	"strings"

	"realty_chat/internal/domain"
)

type chatTemplates struct {
	greeting      string // имя посетителя, имя ассистента
	handoff       string
	notFound      string
	propertyFound string
	apology       string
}

var templates = map[string]chatTemplates{
	domain.LocaleTR: {
		greeting:      "Merhaba %s! Ben %s. Size nasıl yardımcı olabilirim?",
		handoff:       "Sizi canlı destek ekibimize bağlıyorum. Bir temsilcimiz en kısa sürede size yanıt verecek.",
		notFound:      "Üzgünüm, aradığınız kriterlere uygun bir ilan bulamadım. Farklı bir konum veya özellik denemek ister misiniz?",
		propertyFound: "Kriterlerinize uygun bir ilan buldum:",
		apology:       "Üzgünüm, şu anda yanıt veremiyorum. Lütfen biraz sonra tekrar deneyin veya canlı destek isteyin.",
	},
	domain.LocaleEN: {
		greeting:      "Hello %s! I'm %s. How can I help you today?",
		handoff:       "I'm connecting you to our live support team. An agent will reply shortly.",
		notFound:      "Sorry, I couldn't find a listing matching your criteria. Would you like to try a different location or feature?",
		propertyFound: "I found a listing that matches your criteria:",
		apology:       "Sorry, I can't answer right now. Please try again in a moment or ask for live support.",
	},
}

// normalizeLocale сводит тег вида "en-US" к поддерживаемой локали
func normalizeLocale(locale, fallback string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		locale = locale[:i]
	}
	if _, ok := templates[locale]; ok {
		return locale
	}
	if _, ok := templates[fallback]; ok {
		return fallback
	}
	return domain.LocaleTR
}

func templatesFor(locale string) chatTemplates {
	return templates[normalizeLocale(locale, domain.LocaleTR)]
}

func greetingText(locale, visitorName, assistantName string) string {
	return fmt.Sprintf(templatesFor(locale).greeting, visitorName, assistantName)
}
