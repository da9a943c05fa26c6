package recorder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/demoreel/pkg/errors"
	"github.com/odvcencio/demoreel/pkg/page"
)

func newTestPage(t *testing.T, d *page.MemoryDriver, url string) page.Page {
	t.Helper()
	pg, err := d.NewPage(context.Background())
	require.NoError(t, err)
	if url != "" {
		require.NoError(t, pg.Navigate(context.Background(), url))
	}
	return pg
}

func TestRegistry_OpenAllocatesMonotonicIDs(t *testing.T) {
	d := page.NewMemoryDriver()
	defer d.Close()

	r := NewRegistry(newTestPage(t, d, "https://one.test"))
	id2 := r.Open(newTestPage(t, d, "https://two.test"))
	id3 := r.Open(newTestPage(t, d, "https://three.test"))
	assert.Equal(t, 2, id2)
	assert.Equal(t, 3, id3)

	// Ids are never reused after a close.
	require.NoError(t, r.Close(2))
	id4 := r.Open(newTestPage(t, d, "https://four.test"))
	assert.Equal(t, 4, id4)
}

func TestRegistry_OpenDoesNotChangeActive(t *testing.T) {
	d := page.NewMemoryDriver()
	defer d.Close()

	r := NewRegistry(newTestPage(t, d, "https://one.test"))
	r.Open(newTestPage(t, d, "https://two.test"))

	id, _, err := r.Active()
	require.NoError(t, err)
	assert.Equal(t, 1, id)
}

func TestRegistry_SwitchUnknownViewport(t *testing.T) {
	d := page.NewMemoryDriver()
	defer d.Close()

	r := NewRegistry(newTestPage(t, d, "https://one.test"))
	_, err := r.Switch(context.Background(), 9)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownViewport))
}

func TestRegistry_CloseLastViewportRefused(t *testing.T) {
	d := page.NewMemoryDriver()
	defer d.Close()

	r := NewRegistry(newTestPage(t, d, "https://one.test"))
	err := r.Close(1)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeLastViewport))

	// Registry is unchanged: viewport 1 is still live and active.
	id, _, activeErr := r.Active()
	require.NoError(t, activeErr)
	assert.Equal(t, 1, id)
	assert.Len(t, r.List(), 1)
}

func TestRegistry_CloseActiveFallsBackToLowestID(t *testing.T) {
	d := page.NewMemoryDriver()
	defer d.Close()

	r := NewRegistry(newTestPage(t, d, "https://one.test"))
	r.Open(newTestPage(t, d, "https://two.test"))
	r.Open(newTestPage(t, d, "https://three.test"))

	_, err := r.Switch(context.Background(), 3)
	require.NoError(t, err)
	require.NoError(t, r.Close(1))
	require.NoError(t, r.Close(3))

	id, _, err := r.Active()
	require.NoError(t, err)
	assert.Equal(t, 2, id)
}

func TestRegistry_ListSnapshots(t *testing.T) {
	d := page.NewMemoryDriver()
	defer d.Close()

	r := NewRegistry(newTestPage(t, d, "https://one.test"))
	r.Open(newTestPage(t, d, "https://two.test"))
	_, err := r.Switch(context.Background(), 2)
	require.NoError(t, err)

	infos := r.List()
	require.Len(t, infos, 2)
	assert.Equal(t, 1, infos[0].ID)
	assert.Equal(t, "https://one.test", infos[0].URL)
	assert.False(t, infos[0].IsActive)
	assert.Equal(t, 2, infos[1].ID)
	assert.Equal(t, "one.test", infos[0].Title)
	assert.True(t, infos[1].IsActive)
}

func TestRegistry_CloseAllReleasesEverything(t *testing.T) {
	d := page.NewMemoryDriver()
	defer d.Close()

	r := NewRegistry(newTestPage(t, d, "https://one.test"))
	r.Open(newTestPage(t, d, "https://two.test"))
	r.CloseAll()

	assert.Empty(t, r.List())
	_, _, err := r.Active()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoActiveViewport))
}
