package cadastre

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const identifyHit = `{
  "results": [{"attributes": {
    "PAR_CISLO": "1234/5",
    "NAZEV_KU": "Strašnice",
    "TYP_VLASTNICTVI": "osobní",
    "POCET_ZASTAV": 1,
    "OMEZENI_PRAV": "zástavní právo smluvní"
  }}],
  "priceHistory": [
    {"date": "2021-06-15", "price": 7200000, "area": 72},
    {"date": "2016-03-01", "price": 5100000}
  ]
}`

const identifyMiss = `{"results": []}`

const wfsHit = `<?xml version="1.0" encoding="UTF-8"?>
<wfs:FeatureCollection xmlns:wfs="http://www.opengis.net/wfs/2.0" xmlns:cp="http://inspire.ec.europa.eu/schemas/cp/4.0">
  <wfs:member>
    <cp:CadastralParcel>
      <cp:nationalCadastralReference>CZ.732583.1234/5</cp:nationalCadastralReference>
    </cp:CadastralParcel>
  </wfs:member>
</wfs:FeatureCollection>`

const wfsEmpty = `<?xml version="1.0" encoding="UTF-8"?>
<wfs:FeatureCollection xmlns:wfs="http://www.opengis.net/wfs/2.0"></wfs:FeatureCollection>`

func TestLookupPrimaryIdentify(t *testing.T) {
	identify := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("f"))
		assert.Equal(t, "4326", r.URL.Query().Get("sr"))
		fmt.Fprint(w, identifyHit)
	}))
	defer identify.Close()

	enricher := NewEnricher(identify.URL, "http://unused", identify.Client(), logrus.New())

	data, err := enricher.Lookup(context.Background(), 50.07, 14.47)
	require.NoError(t, err)
	require.NotNil(t, data)

	assert.Equal(t, "1234/5", data.CadastralNumber)
	assert.Equal(t, "Strašnice", data.CadastralArea)
	assert.Equal(t, "osobní", data.OwnershipType)
	assert.Equal(t, 1, data.LiensCount)
	assert.Equal(t, "zástavní právo smluvní", data.Encumbrances)

	require.Len(t, data.HistoricalPrices, 2)
	assert.Equal(t, "2021-06-15", data.HistoricalPrices[0].Date)
	require.NotNil(t, data.HistoricalPrices[0].PricePerSqm)
	assert.InDelta(t, 100000, *data.HistoricalPrices[0].PricePerSqm, 0.001)
	assert.Nil(t, data.HistoricalPrices[1].PricePerSqm)
}

func TestLookupFallsBackToFeatureQuery(t *testing.T) {
	identify := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, identifyMiss)
	}))
	defer identify.Close()

	var bbox string
	wfs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "WFS", r.URL.Query().Get("service"))
		assert.Equal(t, "2.0.0", r.URL.Query().Get("version"))
		assert.Equal(t, "GetFeature", r.URL.Query().Get("request"))
		assert.Equal(t, "1", r.URL.Query().Get("count"))
		bbox = r.URL.Query().Get("bbox")
		fmt.Fprint(w, wfsHit)
	}))
	defer wfs.Close()

	enricher := NewEnricher(identify.URL, wfs.URL, identify.Client(), logrus.New())

	data, err := enricher.Lookup(context.Background(), 50.07, 14.47)
	require.NoError(t, err)
	require.NotNil(t, data)

	// Dot-delimited national reference splits into area code and parcel.
	assert.Equal(t, "732583", data.CadastralArea)
	assert.Equal(t, "1234/5", data.CadastralNumber)

	// ~50 m buffer converted with the fixed degree-per-meter constants.
	expectedBBox := fmt.Sprintf("%f,%f,%f,%f",
		50.07-50.0/110540.0, 14.47-50.0/111320.0,
		50.07+50.0/110540.0, 14.47+50.0/111320.0)
	assert.Equal(t, expectedBBox, bbox)
}

func TestLookupNoFeatureAnywhere(t *testing.T) {
	identify := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, identifyMiss)
	}))
	defer identify.Close()

	wfs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, wfsEmpty)
	}))
	defer wfs.Close()

	enricher := NewEnricher(identify.URL, wfs.URL, identify.Client(), logrus.New())

	data, err := enricher.Lookup(context.Background(), 50.07, 14.47)
	// No feature is a normal no-data condition, not an error.
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestLookupIdentifyServerError(t *testing.T) {
	identify := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer identify.Close()

	enricher := NewEnricher(identify.URL, "http://unused", identify.Client(), logrus.New())

	_, err := enricher.Lookup(context.Background(), 50.07, 14.47)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestBoundAround(t *testing.T) {
	bound := boundAround(50.0, 14.0)

	assert.InDelta(t, 50.0-50.0/110540.0, bound.Min.Lat(), 1e-9)
	assert.InDelta(t, 50.0+50.0/110540.0, bound.Max.Lat(), 1e-9)
	assert.InDelta(t, 14.0-50.0/111320.0, bound.Min.Lon(), 1e-9)
	assert.InDelta(t, 14.0+50.0/111320.0, bound.Max.Lon(), 1e-9)
	assert.True(t, bound.Contains(boundAround(50.0, 14.0).Center()))
}
