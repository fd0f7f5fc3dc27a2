package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/alpine-guide/internal/types"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	restaurant, ok := c.Lookup("restaurant")
	require.True(t, ok)
	assert.Equal(t, []string{"type_cuisine", "date_heure", "terrasse", "budget", "localisation"}, restaurant.SlotOrder)
	assert.True(t, restaurant.Slots["type_cuisine"].Required)
	assert.False(t, restaurant.Slots["terrasse"].Required)
	assert.Contains(t, restaurant.Slots["type_cuisine"].Examples, "savoyarde")
	assert.Equal(t, "text", restaurant.Slots["terrasse"].Type)

	meteo, ok := c.Lookup("meteo")
	require.True(t, ok)
	assert.Empty(t, meteo.MissingRequired(nil))
	assert.Equal(t, "localisation", meteo.Slots["localisation"].Description)

	require.NotNil(t, c.Fallback())
	assert.Equal(t, "restaurant", c.All()[0].Name, "file order is kept")
}

func TestParse(t *testing.T) {
	t.Run("general chat added and comments skipped", func(t *testing.T) {
		c, err := Parse([]byte(`
intents:
  note: "ce n'est pas un intent"
  ski:
    description: Ski
    slots_optionnels: [station]
`))
		require.NoError(t, err)
		assert.Equal(t, 2, c.Len())
		_, ok := c.Lookup("note")
		assert.False(t, ok)
		fallback := c.Fallback()
		require.NotNil(t, fallback)
		assert.Empty(t, fallback.Slots)
	})

	t.Run("cache category and template", func(t *testing.T) {
		c, err := Parse([]byte(`
intents:
  fromagerie:
    description: Fromageries
    cache_category: restaurant
    template: shopping
`))
		require.NoError(t, err)
		in, _ := c.Lookup("fromagerie")
		assert.Equal(t, "restaurant", in.TTLCategory())
		assert.Equal(t, "shopping", in.ResponseTemplateKey)
	})

	t.Run("errors", func(t *testing.T) {
		for name, doc := range map[string]string{
			"not yaml":       "intents: [",
			"no intents":     "foo: bar",
			"duplicate slot": "intents:\n  a:\n    slots_obligatoires: [x]\n    slots_optionnels: [x]\n",
			"unnamed slot":   "intents:\n  a:\n    slots_obligatoires:\n      - description: sans nom\n",
		} {
			_, err := Parse([]byte(doc))
			assert.True(t, errors.Is(err, types.ErrConfiguration), name)
		}
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intents.yaml")
	require.NoError(t, os.WriteFile(path, []byte("intents:\n  meteo:\n    description: Météo\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, types.ErrConfiguration))

	c, err = Load("")
	require.NoError(t, err)
	assert.Greater(t, c.Len(), 10)
}
