package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const proseChunk = "The dried leaves are brewed into a bitter tea that is sipped slowly before sleep. " +
	"Healers describe the infusion as calming and say that it sharpens the memory of dreams the next morning."

const tocChunk = "Table of Contents\n" +
	"1. Botanical description .............. 3\n" +
	"2. Habitat and distribution ........... 9\n" +
	"3. Traditional preparation ........... 17\n" +
	"4. Chemistry .......................... 25"

const catalogChunk = "Agave americana\nArtemisia ludoviciana\nCalea zacatechichi\nDatura stramonium\n" +
	"Heimia salicifolia\nPassiflora incarnata\nSalvia divinorum\nTagetes lucida\nTurnera diffusa\nValeriana procera"

const numericChunk = "2100 840 1260 77 310 95 2200 460 1890 2405 133 87 910 2210 665 1402 889 23 467 " +
	"1204 552 98 1765 430 2210 911 340 1208 63 775 2301 449 1118 902 337"

const commaListChunk = "agave leaves, maguey sap, pulque ferment, roasted hearts, fibers\n" +
	"bitter infusions, night teas, dawn washes, cold soaks, poultices\n" +
	"dried bundles, fresh cuttings, pressed cakes, ground powders, pastes\n" +
	"healing songs, whispered prayers, copal smoke, candle light, offerings\n" +
	"morning doses, evening doses, waning moon doses, waxing moon doses\n" +
	"river sand, black clay, volcanic loam, leaf litter, shaded beds"

const biblioChunk = "Diaz, J. L. (1976). Ethnopharmacology of sacred plants. " +
	"Journal of Psychedelic Drugs, vol. 8, pp. 213 to 226. University of California Press."

func TestIsNoiseChunk(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{name: "clean prose passes", content: proseChunk, want: false},
		{name: "short fragment is noise", content: "Chapter 4", want: true},
		{name: "whitespace only is noise", content: "   \n\t  ", want: true},
		{name: "table of contents prefix is noise", content: tocChunk, want: true},
		{name: "species catalog of short lines is noise", content: catalogChunk, want: true},
		{name: "digit-heavy table is noise", content: numericChunk, want: true},
		{name: "comma-separated list block is noise", content: commaListChunk, want: true},
		{name: "bibliography passes noise check but scores low", content: biblioChunk, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isNoiseChunk(tt.content))
		})
	}
}

func TestFactDensityScore(t *testing.T) {
	t.Run("short content bottoms out", func(t *testing.T) {
		assert.Equal(t, -1e9, factDensityScore("Chapter 4"))
		assert.Equal(t, -1e9, factDensityScore(""))
	})

	t.Run("prose outscores bibliography", func(t *testing.T) {
		assert.Greater(t, factDensityScore(proseChunk), factDensityScore(biblioChunk))
	})

	t.Run("prose outscores catalog", func(t *testing.T) {
		assert.Greater(t, factDensityScore(proseChunk), factDensityScore(catalogChunk))
	})
}

func TestTermExtractor(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     []string
	}{
		{
			name:     "adjacent word pairs",
			question: "where does salvia divinorum grow",
			want:     []string{"where does", "salvia divinorum"},
		},
		{
			name:     "pairs are lowercased",
			question: "SALVIA DIVINORUM",
			want:     []string{"salvia divinorum"},
		},
		{
			name:     "repeated pair collapses",
			question: "dream herb dream herb",
			want:     []string{"dream herb"},
		},
		{
			name:     "single word falls back to long words",
			question: "zacatechichi",
			want:     []string{"zacatechichi"},
		},
		{
			name:     "fallback skips interrogative words",
			question: "describe",
			want:     nil,
		},
		{
			name:     "nothing extractable",
			question: "???",
			want:     nil,
		},
	}

	extractor := termExtractor{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractor.Extract(tt.question))
		})
	}
}
