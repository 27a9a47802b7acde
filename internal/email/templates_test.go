package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerificationTemplate(t *testing.T) {
	tmpl, err := NewTemplates()
	require.NoError(t, err)

	verifyURL := "https://gemhog.com/api/verify?token=abc123"
	rendered, err := tmpl.Verification(verifyURL)
	require.NoError(t, err)

	assert.Equal(t, "Confirm your Gemhog subscription", rendered.Subject)
	assert.Contains(t, rendered.HTML, `href="`+verifyURL+`"`)
	assert.Contains(t, rendered.HTML, "Confirm subscription")
	assert.NotContains(t, rendered.HTML, "{{")
}

func TestUnsubscribeConfirmationTemplate(t *testing.T) {
	tmpl, err := NewTemplates()
	require.NoError(t, err)

	appURL := "https://gemhog.com"
	rendered, err := tmpl.UnsubscribeConfirmation(appURL)
	require.NoError(t, err)

	assert.Equal(t, "You've been unsubscribed from Gemhog", rendered.Subject)
	assert.Contains(t, rendered.HTML, appURL)
	assert.NotContains(t, rendered.HTML, "{{")
}
