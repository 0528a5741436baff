package bezrealitky

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realitky/pipeline/internal/models"
)

const statePage = `<!DOCTYPE html>
<html><head><title>Vyhledat</title></head><body>
<div id="__next">rendered content</div>
<script id="__NEXT_DATA__" type="application/json">
{"props":{"pageProps":{"listings":[
  {"id":987654,"uri":"/nemovitosti-byty-domy/987654-nabidka-prodej-bytu",
   "title":"Prodej bytu 3+kk 72 m²","price":8900000,"surface":72,
   "disposition":"3+kk","address":"Praha 10 - Strašnice",
   "gps":{"lat":50.07,"lng":14.47},
   "mainImage":"https://img.example.com/main.jpg",
   "tags":["Balkón","Sklep"]},
  {"id":987655,"uri":"/nemovitosti-byty-domy/987655-nabidka-prodej-bytu",
   "title":"Prodej bytu 2+1 55 m²","price":6200000,"surface":55,
   "disposition":"2+1","address":"Praha 4"}
]}}}
</script></body></html>`

const cardPage = `<!DOCTYPE html>
<html><body>
<article class="propertyCard">
  <h2>Prodej bytu 2+kk 48 m²</h2>
  <a href="/nemovitosti-byty-domy/111222-nabidka-prodej-bytu">Detail</a>
  <span class="price">4 800 000 Kč</span>
  <img src="https://img.example.com/card.jpg"/>
</article>
<article class="propertyCard">
  <h2></h2>
  <span>no title, no link</span>
</article>
<article class="propertyCard">
  <a href="/nemovitosti-byty-domy/333444-nabidka">
    <img src="https://img.example.com/other.jpg"/>
  </a>
  <span>5 100 000 Kč</span>
</article>
</body></html>`

const emptyPage = `<!DOCTYPE html><html><body><div id="__next"><p>Žádné výsledky</p></div></body></html>`

func testUnit() models.ListingUnit {
	return models.ListingUnit{
		City:            "Praha",
		PropertyType:    models.PropertyTypeApartment,
		TransactionType: models.TransactionTypeSale,
	}
}

func docFrom(t *testing.T, html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtractPrefersEmbeddedState(t *testing.T) {
	adapter := NewAdapter("https://www.bezrealitky.cz", nil, logrus.New())

	extraction := adapter.Extract(docFrom(t, statePage), testUnit())
	assert.Equal(t, ExtractionStructured, extraction.Kind)
	require.Len(t, extraction.Listings, 2)

	first := extraction.Listings[0]
	assert.Equal(t, "987654", first.ExternalID)
	assert.Equal(t, SourceName, first.Source)
	assert.Equal(t, "Prodej bytu 3+kk 72 m²", first.Title)
	assert.Equal(t, float64(8900000), first.PriceRaw)
	assert.Equal(t, "3+kk", first.Layout)
	assert.Equal(t, "72 m²", first.AreaText)
	assert.Equal(t, "Praha 10 - Strašnice", first.Locality)
	require.NotNil(t, first.Latitude)
	assert.Equal(t, 50.07, *first.Latitude)
	assert.Equal(t, []string{"https://img.example.com/main.jpg"}, first.Images)
	assert.Equal(t, "https://www.bezrealitky.cz/nemovitosti-byty-domy/987654-nabidka-prodej-bytu", first.URL)

	second := extraction.Listings[1]
	assert.Nil(t, second.Latitude)
	assert.Empty(t, second.Images)
}

func TestExtractFallsBackToCards(t *testing.T) {
	adapter := NewAdapter("https://www.bezrealitky.cz", nil, logrus.New())

	extraction := adapter.Extract(docFrom(t, cardPage), testUnit())
	assert.Equal(t, ExtractionFallback, extraction.Kind)
	// The card with neither title nor link is discarded.
	require.Len(t, extraction.Listings, 2)

	first := extraction.Listings[0]
	assert.Equal(t, "Prodej bytu 2+kk 48 m²", first.Title)
	assert.Equal(t, "111222-nabidka-prodej-bytu", first.ExternalID)
	assert.Equal(t, "4 800 000 Kč", first.PriceText)
	assert.Contains(t, first.AreaText, "48 m²")
	assert.Equal(t, []string{"https://img.example.com/card.jpg"}, first.Images)

	// Link-only card survives with an id derived from the link.
	second := extraction.Listings[1]
	assert.Empty(t, second.Title)
	assert.Equal(t, "333444-nabidka", second.ExternalID)
}

func TestExtractEmptyPage(t *testing.T) {
	adapter := NewAdapter("https://www.bezrealitky.cz", nil, logrus.New())

	extraction := adapter.Extract(docFrom(t, emptyPage), testUnit())
	assert.Equal(t, ExtractionEmpty, extraction.Kind)
	assert.Empty(t, extraction.Listings)
}

func TestFetchNextPaginatesUntilEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vyhledat", r.URL.Path)
		assert.Equal(t, "PRODEJ", r.URL.Query().Get("offerType"))
		assert.Equal(t, "BYT", r.URL.Query().Get("estateType"))
		assert.Equal(t, "praha", r.URL.Query().Get("location"))

		if r.URL.Query().Get("page") == "1" {
			fmt.Fprint(w, statePage)
			return
		}
		fmt.Fprint(w, emptyPage)
	}))
	defer server.Close()

	adapter := NewAdapter(server.URL, server.Client(), logrus.New())

	listings, done, err := adapter.FetchNext(context.Background(), testUnit(), 1)
	require.NoError(t, err)
	assert.Len(t, listings, 2)
	assert.False(t, done)

	listings, done, err = adapter.FetchNext(context.Background(), testUnit(), 2)
	require.NoError(t, err)
	assert.Empty(t, listings)
	assert.True(t, done)
}

func TestFetchNextServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	adapter := NewAdapter(server.URL, server.Client(), logrus.New())

	_, _, err := adapter.FetchNext(context.Background(), testUnit(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 503")
}

func TestFetchNextUnsupportedCity(t *testing.T) {
	adapter := NewAdapter("http://unused", nil, logrus.New())

	_, done, err := adapter.FetchNext(context.Background(), models.ListingUnit{
		City:            "Gotham",
		PropertyType:    models.PropertyTypeApartment,
		TransactionType: models.TransactionTypeSale,
	}, 1)
	assert.Error(t, err)
	assert.True(t, done)
}
