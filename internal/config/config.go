package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"go-qr-relay/internal/escpos"
)

type Config struct {
	Server  ServerConfig  `json:"server"`
	Printer PrinterConfig `json:"printer"`
	Ticket  TicketConfig  `json:"ticket"`
	Bot     BotConfig     `json:"bot"`
	Revel   RevelConfig   `json:"revel"`
	QR      QRConfig      `json:"qr"`
	CORS    CORSConfig    `json:"cors"`
	Logging LoggingConfig `json:"logging"`
}

type ServerConfig struct {
	Port        int    `json:"port"`
	Host        string `json:"host"`
	Mode        string `json:"mode"` // gin mode: debug, release, test
	Environment string `json:"environment"`
}

type PrinterConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	SerializeJobs  bool   `json:"serialize_jobs"`
}

type TicketConfig struct {
	VenueName       string `json:"venue_name"`
	Instruction     string `json:"instruction"`
	FooterHandle    string `json:"footer_handle"`
	ThankYou        string `json:"thank_you"`
	ModuleSize      int    `json:"module_size"`
	ErrorCorrection string `json:"error_correction"`
}

type BotConfig struct {
	Host     string `json:"host"`
	Username string `json:"username"`
}

type RevelConfig struct {
	BaseURL        string `json:"base_url"`
	APIKey         string `json:"api_key"`
	APISecret      string `json:"api_secret"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type QRConfig struct {
	ImageSize int `json:"image_size"`
}

type CORSConfig struct {
	AllowedOrigins []string `json:"allowed_origins"`
}

type LoggingConfig struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

func LoadConfig(path string) (*Config, error) {
	// Start with default config
	config := getDefaultConfig()

	// Override with environment variables if they exist
	loadFromEnvironment(config)

	// Try to load from file if it exists
	file, err := os.Open(path)
	if err == nil {
		defer file.Close()
		decoder := json.NewDecoder(file)
		if err := decoder.Decode(config); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		// Override again with environment variables to give them priority
		loadFromEnvironment(config)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to open config %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes the config as indented JSON. The file may hold POS
// credentials, so it is created owner-only.
func (c *Config) Save(path string) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(c)
}

// Validate rejects values the relay cannot run with.
func (c *Config) Validate() error {
	if c.Printer.Host == "" {
		return errors.New("printer.host is required")
	}
	if c.Printer.Port <= 0 || c.Printer.Port > 65535 {
		return fmt.Errorf("printer.port %d out of range", c.Printer.Port)
	}
	if c.Printer.TimeoutSeconds <= 0 {
		return fmt.Errorf("printer.timeout_seconds must be positive, got %d", c.Printer.TimeoutSeconds)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug, release or test, got %q", c.Server.Mode)
	}
	if c.Ticket.ModuleSize < 1 || c.Ticket.ModuleSize > 16 {
		return fmt.Errorf("ticket.module_size must be 1-16, got %d", c.Ticket.ModuleSize)
	}
	if _, err := escpos.ParseErrorCorrection(c.Ticket.ErrorCorrection); err != nil {
		return fmt.Errorf("ticket.error_correction: %w", err)
	}
	if c.Bot.Host == "" || c.Bot.Username == "" {
		return errors.New("bot.host and bot.username are required")
	}
	if c.QR.ImageSize < 64 {
		return fmt.Errorf("qr.image_size must be at least 64, got %d", c.QR.ImageSize)
	}
	return nil
}

// ListenAddress is the HTTP bind address.
func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Address is the printer's host:port.
func (p PrinterConfig) Address() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

func (p PrinterConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

func (r RevelConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// Layout converts the ticket section into an encoder layout. Validate must
// have accepted the config.
func (t TicketConfig) Layout() escpos.Layout {
	level, err := escpos.ParseErrorCorrection(t.ErrorCorrection)
	if err != nil {
		level = escpos.ErrorCorrectionL
	}
	return escpos.Layout{
		VenueName:       t.VenueName,
		Instruction:     t.Instruction,
		FooterHandle:    t.FooterHandle,
		ThankYou:        t.ThankYou,
		ModuleSize:      byte(t.ModuleSize),
		ErrorCorrection: level,
	}
}

// BotURL is the bot's bare link, printed by the self-test.
func (b BotConfig) BotURL() string {
	return "https://" + b.Host + "/" + b.Username
}

// Default returns the built-in settings, before file or environment
// overrides.
func Default() *Config {
	return getDefaultConfig()
}

func getDefaultConfig() *Config {
	layout := escpos.DefaultLayout()
	return &Config{
		Server: ServerConfig{
			Port:        3001,
			Host:        "0.0.0.0",
			Mode:        "release",
			Environment: "production",
		},
		Printer: PrinterConfig{
			Host:           "192.168.31.20",
			Port:           9100,
			TimeoutSeconds: 10,
			SerializeJobs:  true,
		},
		Ticket: TicketConfig{
			VenueName:       layout.VenueName,
			Instruction:     layout.Instruction,
			FooterHandle:    layout.FooterHandle,
			ThankYou:        layout.ThankYou,
			ModuleSize:      int(layout.ModuleSize),
			ErrorCorrection: "L",
		},
		Bot: BotConfig{
			Host:     "t.me",
			Username: "club_krush_bot",
		},
		Revel: RevelConfig{
			BaseURL:        "https://krush.revelup.com",
			TimeoutSeconds: 15,
		},
		QR: QRConfig{
			ImageSize: 300,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "stdout",
		},
	}
}

// loadFromEnvironment loads configuration from environment variables
func loadFromEnvironment(config *Config) {
	// Server configuration
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		config.Server.Mode = mode
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		config.Server.Environment = env
	}

	// Printer configuration
	if host := os.Getenv("PRINTER_HOST"); host != "" {
		config.Printer.Host = host
	}
	if port := os.Getenv("PRINTER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Printer.Port = p
		}
	}
	if timeout := os.Getenv("PRINTER_TIMEOUT_SECONDS"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil {
			config.Printer.TimeoutSeconds = t
		}
	}
	if serialize := os.Getenv("PRINTER_SERIALIZE_JOBS"); serialize != "" {
		config.Printer.SerializeJobs = serialize == "true"
	}

	// Ticket configuration
	if venue := os.Getenv("VENUE_NAME"); venue != "" {
		config.Ticket.VenueName = venue
	}

	// Bot configuration
	if host := os.Getenv("BOT_HOST"); host != "" {
		config.Bot.Host = host
	}
	if username := os.Getenv("BOT_USERNAME"); username != "" {
		config.Bot.Username = strings.TrimPrefix(username, "@")
	}

	// Revel configuration
	if baseURL := os.Getenv("REVEL_BASE_URL"); baseURL != "" {
		config.Revel.BaseURL = baseURL
	}
	if key := os.Getenv("REVEL_API_KEY"); key != "" {
		config.Revel.APIKey = key
	}
	if secret := os.Getenv("REVEL_API_SECRET"); secret != "" {
		config.Revel.APISecret = secret
	}

	// CORS configuration
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		config.CORS.AllowedOrigins = strings.Split(origins, ",")
	}

	// Logging configuration
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if file := os.Getenv("LOG_FILE"); file != "" {
		config.Logging.File = file
	}
}
