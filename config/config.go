package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// Persistence API settings
	API struct {
		// Base URL of the persistence service
		BaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:8000"`

		// Page size used when listing properties that need enrichment
		EnrichmentPageSize int `env:"API_ENRICHMENT_PAGE_SIZE" envDefault:"100"`
	}

	// Scraping settings shared by all listing sources
	Scraping struct {
		// Hard cap on records delivered in one run
		MaxProperties int `env:"SCRAPER_MAX_PROPERTIES" envDefault:"500"`

		// Listing page size for the paginated REST source
		PageSize int `env:"SCRAPER_PAGE_SIZE" envDefault:"60"`

		// Cities to sweep, in order
		Cities []string `env:"SCRAPER_CITIES" envSeparator:"," envDefault:"Praha,Brno,Ostrava"`

		// Property types to sweep
		PropertyTypes []string `env:"SCRAPER_PROPERTY_TYPES" envSeparator:"," envDefault:"apartment,house"`

		// Transaction types to sweep
		TransactionTypes []string `env:"SCRAPER_TRANSACTION_TYPES" envSeparator:"," envDefault:"sale,rent"`

		// HTTP timeout for source requests (seconds)
		RequestTimeout int `env:"SCRAPER_REQUEST_TIMEOUT" envDefault:"30"`
	}

	// Sources configuration
	Sources struct {
		SrealityBaseURL    string `env:"SREALITY_BASE_URL" envDefault:"https://www.sreality.cz"`
		SrealityRPM        int    `env:"SREALITY_RPM" envDefault:"30"`
		BezrealitkyBaseURL string `env:"BEZREALITKY_BASE_URL" envDefault:"https://www.bezrealitky.cz"`
		BezrealitkyRPM     int    `env:"BEZREALITKY_RPM" envDefault:"20"`
	}

	// Cadastral enrichment configuration
	Cadastre struct {
		IdentifyURL string `env:"CADASTRE_IDENTIFY_URL" envDefault:"https://ags.cuzk.cz/arcgis/rest/services/RUIAN/MapServer/identify"`
		WFSURL      string `env:"CADASTRE_WFS_URL" envDefault:"https://services.cuzk.cz/wfs/inspire-cp-wfs.asp"`
		RPM         int    `env:"CADASTRE_RPM" envDefault:"60"`

		// Maximum lookup attempts per property
		MaxRetries int `env:"CADASTRE_MAX_RETRIES" envDefault:"3"`

		// Base backoff delay between retries (milliseconds)
		RetryBaseDelay int `env:"CADASTRE_RETRY_DELAY" envDefault:"500"`
	}

	// Dataset output channel
	Dataset struct {
		// Path of the append-only JSONL dataset file; empty disables it
		Path string `env:"DATASET_PATH" envDefault:"data/properties.jsonl"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
