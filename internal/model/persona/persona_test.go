package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeedIsValid(t *testing.T) {
	seeds := Seed()
	require.Len(t, seeds, 1)
	require.NoError(t, seeds[0].Validate())
	require.Len(t, seeds[0].Greetings, 4)
}

func TestValidateRejectsBrokenTemplate(t *testing.T) {
	p := Seed()[0]
	p.HobbyTemplate = "no placeholder"
	require.Error(t, p.Validate())

	p = Seed()[0]
	p.Hobbies = nil
	require.Error(t, p.Validate())
}

func TestValidateTemplateVerbs(t *testing.T) {
	cases := []struct {
		template string
		valid    bool
	}{
		{"These days I love %s!", true},
		{"100%% sure: %s", true},
		{"%s (%d)", false},
		{"%d", false},
		{"%v", false},
		{"%s and %s", false},
		{"%5s", false},
		{"trailing %s %", false},
	}
	for _, tc := range cases {
		t.Run(tc.template, func(t *testing.T) {
			p := Seed()[0]
			p.RecentTemplate = tc.template
			if tc.valid {
				require.NoError(t, p.Validate())
			} else {
				require.Error(t, p.Validate())
			}
		})
	}
}

func TestValidateAllowsMissingInstruction(t *testing.T) {
	p := Seed()[0]
	p.Instruction = ""
	require.NoError(t, p.Validate())
}

func TestMemoryStoreDefaultAndLookup(t *testing.T) {
	store := NewMemoryStore(Seed())

	require.Equal(t, "rainit", store.Default().ID)

	got, ok := store.FindByID("rainit")
	require.True(t, ok)
	require.Equal(t, "레이닛", got.Name)

	_, ok = store.FindByID("missing")
	require.False(t, ok)

	require.Empty(t, NewMemoryStore(nil).Default().ID)
}

func TestMemoryStoreListIsACopy(t *testing.T) {
	store := NewMemoryStore(Seed())
	list := store.List()
	list[0].Name = "changed"

	require.Equal(t, "레이닛", store.Default().Name)
}

const sampleCatalog = `
personas:
  - id: drizzle
    name: Drizzle
    character: a frog in rain boots
    personality: calm
    instruction: You are Drizzle, a calm frog.
    fallbackReply: Sorry, my head is foggy right now.
    greetings: ["Hi there!", "Ribbit, hello!"]
    hobbies: ["puddle jumping"]
    recentActivities: ["I found a new pond."]
    hobbyTemplate: "These days I love %s!"
    recentTemplate: "Recently? %s"
    keywords:
      greeting: ["hello", "hi there"]
      hobby: ["hobby"]
      recent: ["recently", "what's new"]
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o600))

	personas, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, personas, 1)
	require.Equal(t, "drizzle", personas[0].ID)
	require.Equal(t, []string{"hello", "hi there"}, personas[0].Keywords.Greeting)
	require.Equal(t, []string{"recently", "what's new"}, personas[0].Keywords.Recent)
}

func TestParseRejectsInvalidCatalog(t *testing.T) {
	_, err := Parse([]byte("personas: []"))
	require.Error(t, err)

	_, err = Parse([]byte("personas:\n  - id: x\n    name: X\n"))
	require.Error(t, err)

	_, err = Parse([]byte("::not yaml"))
	require.Error(t, err)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
