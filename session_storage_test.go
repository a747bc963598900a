package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go-guest-registry/models"
	"go-guest-registry/wizard"
)

func TestInMemorySaveAndLoad(t *testing.T) {
	storage := NewInMemorySessionStorage()
	session := wizard.NewSession("abc", models.ClosureSwornStatement)
	require.NoError(t, session.SetProperty("Casa Verde Santa Marta"))

	require.NoError(t, storage.SaveSession(session))

	loaded, err := storage.LoadSession("abc")
	require.NoError(t, err)
	require.Equal(t, "abc", loaded.ID)
	require.Equal(t, "Casa Verde Santa Marta", loaded.Record.Property)
	require.Len(t, loaded.Record.Guests, 1)
}

func TestInMemoryLoadReturnsSnapshot(t *testing.T) {
	storage := NewInMemorySessionStorage()
	session := wizard.NewSession("abc", models.ClosureSwornStatement)
	require.NoError(t, storage.SaveSession(session))

	loaded, err := storage.LoadSession("abc")
	require.NoError(t, err)
	require.NoError(t, loaded.SetContactEmail("other@example.com"))

	// mutations on a loaded copy do not leak into storage until saved
	again, err := storage.LoadSession("abc")
	require.NoError(t, err)
	require.Empty(t, again.Record.ContactEmail)
}

func TestInMemorySaveOverwrites(t *testing.T) {
	storage := NewInMemorySessionStorage()
	session := wizard.NewSession("abc", models.ClosureSwornStatement)
	require.NoError(t, storage.SaveSession(session))

	require.NoError(t, session.SetContactEmail("host@example.com"))
	require.NoError(t, storage.SaveSession(session))

	loaded, err := storage.LoadSession("abc")
	require.NoError(t, err)
	require.Equal(t, "host@example.com", loaded.Record.ContactEmail)
}

func TestInMemoryLoadMissing(t *testing.T) {
	storage := NewInMemorySessionStorage()
	_, err := storage.LoadSession("nope")
	require.Error(t, err)
}

func TestInMemoryRemove(t *testing.T) {
	storage := NewInMemorySessionStorage()
	session := wizard.NewSession("abc", models.ClosureSwornStatement)
	require.NoError(t, storage.SaveSession(session))

	require.NoError(t, storage.RemoveSession("abc"))
	_, err := storage.LoadSession("abc")
	require.Error(t, err)

	require.Error(t, storage.RemoveSession("abc"), "removing an absent session is an error")
}

func TestSessionRoundTripPreservesState(t *testing.T) {
	storage := NewInMemorySessionStorage()
	session := wizard.NewSession("abc", models.ClosureSwornStatement)
	require.NoError(t, session.AddGuest())
	require.NoError(t, session.SetGuestImages(1, "data:image/jpeg;base64,Zm9v", ""))
	gen, _, _, _, err := session.BeginExtraction()
	require.NoError(t, err)

	require.NoError(t, storage.SaveSession(session))
	loaded, err := storage.LoadSession("abc")
	require.NoError(t, err)

	// the in-flight guard survives the round trip, keyed by the same generation
	require.True(t, loaded.Extracting)
	require.Equal(t, gen, loaded.Generation)
	require.Equal(t, 1, loaded.ActiveGuest)
}
