package api

import (
	"github.com/FocuswithJustin/JuniperQuran/core/ingest"
	"github.com/FocuswithJustin/JuniperQuran/core/quran"
)

// Config holds server configuration.
type Config struct {
	Port              int
	RateLimitRequests int        // Requests per minute (0 = disabled)
	RateLimitBurst    int        // Burst size
	Auth              AuthConfig // Authentication configuration
	TLS               TLSConfig  // TLS configuration
	AllowedOrigins    []string   // CORS and websocket allowed origins (empty = allow all)
	ChunkLimit        int        // Character bound for surah text chunks
	PageBatch         int        // Page images per batch in surah responses
	TafseerLanguage   string     // Commentary language when ?lang= is absent
}

// TLSConfig holds TLS/HTTPS configuration.
type TLSConfig struct {
	Enabled  bool   // Enable HTTPS
	CertFile string // Path to TLS certificate file
	KeyFile  string // Path to TLS private key file
}

func (c Config) withDefaults() Config {
	if c.ChunkLimit <= 0 {
		c.ChunkLimit = quran.DefaultChunkLimit
	}
	if c.PageBatch <= 0 {
		c.PageBatch = quran.PageBatchSize
	}
	if c.TafseerLanguage == "" {
		c.TafseerLanguage = ingest.DefaultLanguage
	}
	if c.RateLimitRequests > 0 && c.RateLimitBurst == 0 {
		c.RateLimitBurst = 10
	}
	return c
}
