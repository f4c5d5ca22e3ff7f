package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/boni/internal/engine"
)

func TestChatGreetsWithMenu(t *testing.T) {
	clearEnv(t)
	dbPath := filepath.Join(t.TempDir(), "chat.db")

	out, err := execute(t, "/start\n", "chat", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "< Hola Soy BONI 🤍")
	assert.Contains(t, out, "  [Cargar sobre de espiga] [🙏 Enviar petición de oración]")
	assert.NotContains(t, out, "[Consultar líderes]")
}

func TestChatAdminPassphrase(t *testing.T) {
	clearEnv(t)
	cfgPath, _ := writeConfig(t)

	out, err := execute(t, "clave-admin\n/start\n", "chat", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "[Consultar líderes]")
}

func TestChatSkipsBlankLines(t *testing.T) {
	clearEnv(t)
	dbPath := filepath.Join(t.TempDir(), "chat.db")

	out, err := execute(t, "\n   \n", "chat", "--db", dbPath)
	require.NoError(t, err)
	assert.NotContains(t, out, "< ")
}

func TestConsoleProfile(t *testing.T) {
	p := consoleProfile("  Ana María Lopez ")
	assert.Equal(t, "Ana", p.FirstName)
	assert.Equal(t, "María Lopez", p.LastName)

	assert.Equal(t, "", consoleProfile("").FirstName)
}

func TestConsoleMessage(t *testing.T) {
	p := consoleProfile("Ana Lopez")

	text := consoleMessage("7", p, "hola")
	assert.Equal(t, "7", text.UserID)
	assert.Equal(t, "7", text.ChatID)
	assert.Equal(t, "hola", text.Text)
	assert.Empty(t, text.Attachments)

	photo := consoleMessage("7", p, "/photo file-123 ")
	assert.Empty(t, photo.Text)
	require.Len(t, photo.Attachments, 1)
	assert.Equal(t, "file-123", photo.Attachments[0].FileID)
}

func TestConsoleSender(t *testing.T) {
	buf := &bytes.Buffer{}
	s := consoleSender{w: buf}

	err := s.Send(context.Background(), engine.Reply{
		ChatID:   "7",
		Text:     "Hola\n¿Cómo estás?",
		Keyboard: []string{"SI", "NO"},
	})
	require.NoError(t, err)
	assert.Equal(t, "< Hola\n< ¿Cómo estás?\n  [SI] [NO]\n", buf.String())
}
