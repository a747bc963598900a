package refdata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFoldLabel(t *testing.T) {
	require.Equal(t, "PERU", FoldLabel("Perú"))
	require.Equal(t, "PERU", FoldLabel("  peru "))
	require.Equal(t, "MEXICO", FoldLabel("México"))
	require.Equal(t, "COLOMBIA", FoldLabel("Colombia"))
}

func TestIsCountryLabel(t *testing.T) {
	require.True(t, IsCountryLabel("Colombia"))
	require.True(t, IsCountryLabel("COLOMBIA"))
	require.True(t, IsCountryLabel("Peru"))
	require.True(t, IsCountryLabel("Perú"))
	require.False(t, IsCountryLabel("Atlantis"))
	require.False(t, IsCountryLabel(""))
}

func TestCountryCode(t *testing.T) {
	require.Equal(t, "CO", CountryCode("colombia"))
	require.Equal(t, "PE", CountryCode("PERÚ"))
	require.Equal(t, "", CountryCode("Atlantis"))
}

func TestIsDocumentType(t *testing.T) {
	require.True(t, IsDocumentType("Pasaporte"))
	require.True(t, IsDocumentType("CEDULA DE CIUDADANIA"))
	require.True(t, IsDocumentType("Cédula de Extranjería"))
	require.False(t, IsDocumentType("Carnet de Biblioteca"))
}

func TestIsProperty(t *testing.T) {
	require.True(t, IsProperty(Properties[0]))
	require.False(t, IsProperty("No Such Property"))
	require.False(t, IsProperty(""))
}
