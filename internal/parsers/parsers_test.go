package parsers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLicitorID(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    int
		wantErr bool
	}{
		{"detail page", "/annonce/appartement-paris/106898.html", 106898, false},
		{"bare id", "/106726.html", 106726, false},
		{"no extension", "/annonce/106898", 0, true},
		{"no digits", "/annonce/x.html", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseLicitorID(tc.path)
			if tc.wantErr {
				require.Error(t, err)
				var bad *BadInput
				assert.ErrorAs(t, err, &bad)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		text string
		want *int
	}{
		{"220 000 EUR", intp(220000)},
		{"220,000", intp(220000)},
		{"220000 €", intp(220000)},
		{"Mise à prix : 70 000 EUR", intp(70000)},
		{"", nil},
		{"€", nil},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			got := ParsePrice(tc.text)
			assertIntPtrEqual(t, tc.want, got)
		})
	}
}

func TestParsePriceInvariantUnderNonDigitInsertion(t *testing.T) {
	base := "220000"
	noisy := "2-2.0, 0 0 0 €"
	assert.Equal(t, *ParsePrice(base), *ParsePrice(noisy))
}

func TestParseSurface(t *testing.T) {
	a := ParseSurface("134,87 m²")
	b := ParseSurface("134.87 m2")
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.InDelta(t, *a, *b, 1e-6)
	assert.InDelta(t, 134.87, *a, 1e-6)
}

func TestParseSurfaceNoMatch(t *testing.T) {
	assert.Nil(t, ParseSurface("no surface mentioned here"))
}

func TestParseFrenchDate(t *testing.T) {
	assert.Equal(t, "2026-02-12", ParseFrenchDate("jeudi 12 février 2026"))
	assert.Equal(t, "", ParseFrenchDate("jeudi 12 blorpember 2026"))
}

func TestParseFrenchDateDefaultsToCurrentYear(t *testing.T) {
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-12", parseFrenchDateAt("12 mars", now))
}

func TestParseAuctionTime(t *testing.T) {
	tests := map[string]string{
		"14h00": "14:00",
		"9h30":  "09:30",
		"14:00": "14:00",
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseAuctionTime(in))
	}
}

func TestParseGPSFromMapsURL(t *testing.T) {
	lat, lng := ParseGPSFromMapsURL("https://maps.google.fr/maps?q=48.8534,2.2754&z=13")
	require.NotNil(t, lat)
	require.NotNil(t, lng)
	assert.InDelta(t, 48.8534, *lat, 1e-6)
	assert.InDelta(t, 2.2754, *lng, 1e-6)
}

func TestParseDepartmentCity(t *testing.T) {
	dept, city := ParseDepartmentCity("75 Paris 16ème")
	assert.Equal(t, "75", dept)
	assert.Equal(t, "Paris 16ème", city)
}

func TestExtractTribunalSlug(t *testing.T) {
	assert.Equal(t, "tj-aix-en-provence",
		ExtractTribunalSlug("/ventes-judiciaires-immobilieres/tj-aix-en-provence/audience.html"))
	assert.Equal(t, "", ExtractTribunalSlug("/annonce/appartement-paris/106898.html"))
}

func intp(v int) *int { return &v }

func assertIntPtrEqual(t *testing.T, want, got *int) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	assert.Equal(t, *want, *got)
}
