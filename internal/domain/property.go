package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Listing struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Price        string    `json:"price"`
	Location     string    `json:"location"`
	Heating      string    `json:"heating"`
	PropertyType string    `json:"property_type"`
	Category     string    `json:"category"`
	Kitchen      string    `json:"kitchen"`
	Rooms        string    `json:"rooms"`
	Bathrooms    int       `json:"bathrooms"`
	Area         int       `json:"area"`
	ImageURL     *string   `json:"image_url,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// SearchCriteria: нулевые значения означают "без ограничения"
type SearchCriteria struct {
	Query   string  `json:"query"`
	MinArea float64 `json:"minArea"`
	MaxArea float64 `json:"maxArea"`
	Rooms   *string `json:"rooms"`
}

// PropertyCard - краткая карточка объекта внутри ответа ассистента
type PropertyCard struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Price     string    `json:"price"`
	Location  string    `json:"location"`
	Rooms     string    `json:"rooms"`
	Bathrooms int       `json:"bathrooms"`
	Area      int       `json:"area"`
	Image     string    `json:"image,omitempty"`
}

func NewPropertyCard(l *Listing) *PropertyCard {
	card := &PropertyCard{
		ID:        l.ID,
		Title:     l.Title,
		Price:     l.Price,
		Location:  l.Location,
		Rooms:     l.Rooms,
		Bathrooms: l.Bathrooms,
		Area:      l.Area,
	}
	if l.ImageURL != nil {
		card.Image = *l.ImageURL
	}
	return card
}

const (
	PropertyDataOpen  = "[PROPERTY_DATA]"
	PropertyDataClose = "[/PROPERTY_DATA]"
)

// EncodeContent сериализует тело сообщения в формат хранения:
// "TEXT [PROPERTY_DATA]{json}[/PROPERTY_DATA]"
func EncodeContent(text string, card *PropertyCard) string {
	if card == nil {
		return text
	}
	data, err := json.Marshal(card)
	if err != nil {
		return text
	}
	return text + " " + PropertyDataOpen + string(data) + PropertyDataClose
}

// DecodeContent - обратная операция. Битый JSON внутри блока оставляет
// исходную строку без изменений и без карточки.
func DecodeContent(raw string) (string, *PropertyCard) {
	start := strings.Index(raw, PropertyDataOpen)
	if start < 0 {
		return raw, nil
	}
	rest := raw[start+len(PropertyDataOpen):]
	end := strings.Index(rest, PropertyDataClose)
	if end < 0 {
		return raw, nil
	}

	var card PropertyCard
	if err := json.Unmarshal([]byte(rest[:end]), &card); err != nil {
		return raw, nil
	}

	text := raw[:start] + rest[end+len(PropertyDataClose):]
	return strings.TrimSpace(text), &card
}
