package document

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextPlain(t *testing.T) {
	t.Parallel()

	doc := Document{
		Name: "cv.txt",
		Data: []byte("John Doe\njohn.doe@example.com\nPython, Django"),
	}

	text, err := Text(doc)
	require.NoError(t, err)
	assert.Contains(t, text, "John Doe")
	assert.Contains(t, text, "Python, Django")
}

func TestTextBlankDocument(t *testing.T) {
	t.Parallel()

	_, err := Text(Document{Name: "blank.txt", Data: []byte("   \n\t\n")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoText))
}

func TestTextCorruptPDF(t *testing.T) {
	t.Parallel()

	_, err := Text(Document{Name: "broken.pdf", Data: []byte("%PDF-1.7 not really a pdf")})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoText), "a parse failure is not the no-text outcome")
}

func TestFindEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		expect string
	}{
		{
			name:   "plain address",
			text:   "Contact: jane.roe@example.org, phone 555-0100",
			expect: "jane.roe@example.org",
		},
		{
			name:   "first of several",
			text:   "a@example.com b@example.com",
			expect: "a@example.com",
		},
		{
			name:   "plus and percent",
			text:   "reach me at dev+cv%test@mail.example.co.uk thanks",
			expect: "dev+cv%test@mail.example.co.uk",
		},
		{
			name:   "no address",
			text:   "no contact details here",
			expect: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expect, FindEmail(tt.text))
		})
	}
}
