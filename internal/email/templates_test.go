package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderConfirmationAllLanguages(t *testing.T) {
	engine := NewTemplateEngine()
	vars := map[string]interface{}{"confirm_url": "https://example.com/c/abc"}

	for _, lang := range []string{"en", "fr", "es"} {
		subject, body, err := engine.Render(templateConfirmation, lang, vars)
		require.NoError(t, err, "language %s", lang)
		assert.NotEmpty(t, subject)
		assert.Contains(t, body, "https://example.com/c/abc")
	}
}

func TestRenderFallsBackToEnglish(t *testing.T) {
	engine := NewTemplateEngine()

	subject, body, err := engine.Render(templateWelcome, "pt", map[string]interface{}{
		"unsub_url": "https://example.com/u/xyz",
	})
	require.NoError(t, err)
	assert.Equal(t, "Welcome to the newsletter", subject)
	assert.Contains(t, body, "https://example.com/u/xyz")
}

func TestRenderUnknownTemplateErrors(t *testing.T) {
	engine := NewTemplateEngine()

	_, _, err := engine.Render(templateKind("digest"), "en", nil)
	require.Error(t, err)
}

func TestRenderGoodbyeHasNoLinks(t *testing.T) {
	engine := NewTemplateEngine()

	_, body, err := engine.Render(templateGoodbye, "fr", nil)
	require.NoError(t, err)
	assert.NotContains(t, body, "{{")
}
