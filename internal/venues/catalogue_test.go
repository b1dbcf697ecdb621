package venues

import (
	"os"
	"path/filepath"
	"testing"

	"roombook/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogueIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestCatalogue_Check(t *testing.T) {
	c := Default()

	tests := []struct {
		name      string
		venue     string
		room      string
		partySize int
		wantErr   error
	}{
		{name: "known room and pax", venue: "Library", room: "Room A", partySize: 2},
		{name: "unknown venue", venue: "Moon Base", room: "Room A", partySize: 2, wantErr: ErrUnknownVenue},
		{name: "unknown room", venue: "Library", room: "Room Z", partySize: 2, wantErr: ErrUnknownRoom},
		{name: "pax over capacity", venue: "Library", room: "Room A", partySize: 9, wantErr: ErrPartySize},
		{name: "pax below minimum", venue: "Faculty Block A", room: "A-101", partySize: 2, wantErr: ErrPartySize},
		{name: "missing venue is left to the validator", venue: "", room: "Room A", partySize: 2},
		{name: "missing pax is left to the validator", venue: "Library", room: "Room A", partySize: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Check(tt.venue, tt.room, tt.partySize)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "venues.json")
	require.NoError(t, os.WriteFile(valid, []byte(`{"venues":[{"name":"Annex","rooms":[{"name":"R1","capacity":[1,2]}]}]}`), 0o600))

	c, err := Load(valid, logger.Discard())
	require.NoError(t, err)
	room, err := c.Room("Annex", "R1")
	require.NoError(t, err)
	assert.Equal(t, 1, room.MinCapacity())
	assert.Equal(t, 2, room.MaxCapacity())

	noRooms := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(noRooms, []byte(`{"venues":[{"name":"Annex","rooms":[]}]}`), 0o600))
	_, err = Load(noRooms, logger.Discard())
	assert.Error(t, err)

	dupRooms := filepath.Join(dir, "dup.json")
	require.NoError(t, os.WriteFile(dupRooms, []byte(`{"venues":[{"name":"Annex","rooms":[{"name":"R1","capacity":[1]},{"name":"R1","capacity":[2]}]}]}`), 0o600))
	_, err = Load(dupRooms, logger.Discard())
	assert.Error(t, err)

	c, err = Load("", logger.Discard())
	require.NoError(t, err)
	assert.NotEmpty(t, c.Venues)
}
