package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/LJTian/EditorialHub/internal/collector"
	"github.com/LJTian/EditorialHub/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWiresSectionsIntoStore(t *testing.T) {
	cfg := &config.Config{
		DBDriver:       "sqlite",
		DBDSN:          filepath.Join(t.TempDir(), "app.db"),
		Sections:       config.DefaultSections,
		RetentionDays:  3,
		CourtesyDelay:  time.Second,
		MaxPages:       1,
		RequestTimeout: time.Second,
		SourceLocale:   "en",
		TargetLocale:   "ur",
		TimeZone:       "UTC",
	}

	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Producer)
	assert.NotNil(t, a.Orchestrator)
	assert.Equal(t, []collector.Section{
		{Name: "Editorial", URL: "https://www.dawn.com/newspaper/editorial"},
		{Name: "Opinion", URL: "https://www.dawn.com/newspaper/column"},
	}, a.Sections)
	assert.Equal(t, time.UTC, a.Store.Location)

	list, err := a.Store.ListSections()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "editorial", list[0].Code)
	assert.Equal(t, "opinion", list[1].Code)
}

func TestNewFailsOnUnknownDriver(t *testing.T) {
	_, err := New(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}
