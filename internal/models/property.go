package models

// Property type and transaction type values accepted by the persistence API.
const (
	PropertyTypeApartment = "apartment"
	PropertyTypeHouse     = "house"

	TransactionTypeSale = "sale"
	TransactionTypeRent = "rent"

	DefaultCurrency = "CZK"

	// MaxImages caps the image list carried on a canonical record.
	MaxImages = 20
)

// PropertyData is the canonical listing record every source is translated
// into. The (ExternalID, Source) pair is the sole deduplication identity
// across runs; the persistence layer decides insert-vs-update.
type PropertyData struct {
	ExternalID string `json:"external_id"`
	Source     string `json:"source"`

	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	PropertyType    string   `json:"property_type"`
	TransactionType string   `json:"transaction_type"`
	Price           float64  `json:"price"`
	PricePerSqm     *float64 `json:"price_per_sqm,omitempty"`
	Currency        string   `json:"currency"`

	AreaUsable  *float64 `json:"area_usable,omitempty"`
	AreaBuilt   *float64 `json:"area_built,omitempty"`
	AreaLand    *float64 `json:"area_land,omitempty"`
	Rooms       string   `json:"rooms,omitempty"`
	RoomsCount  *int     `json:"rooms_count,omitempty"`
	Floor       *int     `json:"floor,omitempty"`
	FloorsTotal *int     `json:"floors_total,omitempty"`

	Condition        string `json:"condition,omitempty"`
	ConstructionType string `json:"construction_type,omitempty"`
	EnergyRating     string `json:"energy_rating,omitempty"`
	HasBalcony       bool   `json:"has_balcony"`
	HasTerrace       bool   `json:"has_terrace"`
	HasParking       bool   `json:"has_parking"`
	HasGarage        bool   `json:"has_garage"`
	HasElevator      bool   `json:"has_elevator"`
	HasCellar        bool   `json:"has_cellar"`
	HasGarden        bool   `json:"has_garden"`

	AddressStreet   string   `json:"address_street,omitempty"`
	AddressCity     string   `json:"address_city,omitempty"`
	AddressDistrict string   `json:"address_district,omitempty"`
	AddressZip      string   `json:"address_zip,omitempty"`
	Latitude        *float64 `json:"lat,omitempty"`
	Longitude       *float64 `json:"lng,omitempty"`

	Images       []string `json:"images,omitempty"`
	MainImageURL string   `json:"main_image_url,omitempty"`

	URL string `json:"url"`
}

// HistoricalPrice is one entry of a property's land-registry price history.
type HistoricalPrice struct {
	Date        string   `json:"date"`
	Price       float64  `json:"price"`
	PricePerSqm *float64 `json:"price_per_sqm,omitempty"`
}

// CadastralData is the land-registry enrichment merged onto a property by
// its numeric persistence id, independent of the listing identity key.
type CadastralData struct {
	CadastralNumber  string            `json:"cadastral_number,omitempty"`
	CadastralArea    string            `json:"cadastral_area,omitempty"`
	OwnershipType    string            `json:"ownership_type,omitempty"`
	LiensCount       int               `json:"liens_count"`
	Encumbrances     string            `json:"encumbrances,omitempty"`
	HistoricalPrices []HistoricalPrice `json:"historical_prices,omitempty"`
}

// ListingUnit is one (city, property type, transaction type) combination of
// a listing job. The set of units is fixed when a run starts.
type ListingUnit struct {
	City            string
	PropertyType    string
	TransactionType string
}

// EnrichmentUnit is one property awaiting cadastral enrichment.
type EnrichmentUnit struct {
	PropertyID int64
	Latitude   float64
	Longitude  float64
}

// RawListing is the neutral shape source adapters translate their wire
// formats into before normalization. Zero values mean "absent"; PriceRaw
// takes precedence over PriceText when both are set.
type RawListing struct {
	ExternalID      string
	Source          string
	Title           string
	Description     string
	PropertyType    string
	TransactionType string
	PriceRaw        float64
	PriceText       string
	AreaText        string
	AreaBuiltText   string
	AreaLandText    string
	Layout          string
	Locality        string
	Labels          []string
	Condition       string
	Construction    string
	EnergyRating    string
	Floor           *int
	FloorsTotal     *int
	Latitude        *float64
	Longitude       *float64
	Images          []string
	URL             string
}
