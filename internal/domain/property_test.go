package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeContent(t *testing.T) {
	img := "https://cdn.example.com/p/1.jpg"
	listing := &Listing{
		ID:        uuid.New(),
		Title:     "Deniz manzaralı 3+1 daire",
		Price:     "4.250.000 TL",
		Location:  "Kuşadası, Aydın",
		Rooms:     "3+1",
		Bathrooms: 2,
		Area:      145,
		ImageURL:  &img,
	}

	raw := EncodeContent("Size uygun bir ilan buldum:", NewPropertyCard(listing))
	assert.True(t, strings.HasPrefix(raw, "Size uygun bir ilan buldum: [PROPERTY_DATA]{"))
	assert.True(t, strings.HasSuffix(raw, "[/PROPERTY_DATA]"))

	text, card := DecodeContent(raw)
	require.NotNil(t, card)
	assert.Equal(t, "Size uygun bir ilan buldum:", text)
	assert.Equal(t, listing.ID, card.ID)
	assert.Equal(t, "3+1", card.Rooms)
	assert.Equal(t, 145, card.Area)
	assert.Equal(t, img, card.Image)
}

func TestEncodeContent_PlainText(t *testing.T) {
	assert.Equal(t, "merhaba", EncodeContent("merhaba", nil))
}

func TestDecodeContent(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantText string
		wantCard bool
	}{
		{"plain text", "merhaba", "merhaba", false},
		{"malformed json", "bak [PROPERTY_DATA]{not json[/PROPERTY_DATA]", "bak [PROPERTY_DATA]{not json[/PROPERTY_DATA]", false},
		{"unterminated block", "bak [PROPERTY_DATA]{}", "bak [PROPERTY_DATA]{}", false},
		{"text after block", `a [PROPERTY_DATA]{"title":"x"}[/PROPERTY_DATA] b`, "a  b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, card := DecodeContent(tt.raw)
			assert.Equal(t, tt.wantText, text)
			assert.Equal(t, tt.wantCard, card != nil)
		})
	}
}

func TestIsLiveStatus(t *testing.T) {
	assert.False(t, IsLiveStatus(SessionStatusBot))
	assert.True(t, IsLiveStatus(SessionStatusLiveWaiting))
	assert.True(t, IsLiveStatus(SessionStatusLiveActive))
	assert.False(t, IsValidStatus("ended"))
	assert.Equal(t, TurnRoleAssistant, TurnRole(SenderOperator))
	assert.Equal(t, TurnRoleVisitor, TurnRole(SenderUser))
}
