package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/menta2k/tfrecord-viewer/pkg/overlay"
	"github.com/menta2k/tfrecord-viewer/pkg/processing"
	"github.com/menta2k/tfrecord-viewer/pkg/record"
)

// Config holds the application configuration
type Config struct {
	Record  RecordConfig  `json:"record"`
	Overlay OverlayConfig `json:"overlay"`
	Server  ServerConfig  `json:"server"`
	Output  OutputConfig  `json:"output"`
}

// RecordConfig holds the record file and feature key settings
type RecordConfig struct {
	ImageKey        string `json:"image_key"`
	FilenameKey     string `json:"filename_key"`
	ClassLabelKey   string `json:"class_label_key"`
	Compression     string `json:"compression"`
	VerifyChecksums bool   `json:"verify_checksums"`
}

// OverlayConfig holds the renderer settings
type OverlayConfig struct {
	Overlay             string   `json:"overlay"`
	BBoxNameKey         string   `json:"bbox_name_key"`
	BBoxXMinKey         string   `json:"bbox_xmin_key"`
	BBoxXMaxKey         string   `json:"bbox_xmax_key"`
	BBoxYMinKey         string   `json:"bbox_ymin_key"`
	BBoxYMaxKey         string   `json:"bbox_ymax_key"`
	CoordinatesInPixels bool     `json:"coordinates_in_pixels"`
	LabelsToHighlight   Labels   `json:"labels_to_highlight"`
	SegmapKey           string   `json:"segmap_key"`
	SegmapFormatKey     string   `json:"segmap_format_key"`
	SegmapRawDivisor    int      `json:"segmap_raw_divisor_key"`
	SegmapColormapFile  string   `json:"segmap_colormap_file"`
	SegmapBlendAlpha    float64  `json:"segmap_blend_alpha"`
	FontPath            string   `json:"font_path"`
	FontSize            float64  `json:"font_size"`
	StrictFields        bool     `json:"strict_fields"`
}

// Labels is a list of label names. In JSON it is written as an array and
// also read from a semicolon separated string.
type Labels []string

// UnmarshalJSON accepts either ["car","bus"] or "car;bus"
func (l *Labels) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = overlay.ParseLabels(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("labels must be a string or a list of strings: %w", err)
	}
	*l = list
	return nil
}

// String implements flag.Value
func (l *Labels) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(*l, ";")
}

// Set implements flag.Value
func (l *Labels) Set(s string) error {
	*l = overlay.ParseLabels(s)
	return nil
}

// ServerConfig holds the gallery server settings
type ServerConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	MaxImages      int    `json:"max_images"`
	ThumbnailWidth int    `json:"thumbnail_width"`
	Dedupe         bool   `json:"dedupe"`
}

// OutputConfig holds the encoding and export settings
type OutputConfig struct {
	Format     string `json:"output_format"`
	Quality    int    `json:"output_quality"`
	OutputPath string `json:"output_path"`
}

// Default returns a configuration with default values
func Default() *Config {
	ov := overlay.DefaultConfig()
	return &Config{
		Record: RecordConfig{
			ImageKey:        "image/encoded",
			FilenameKey:     "image/filename",
			ClassLabelKey:   ov.ClassLabelKey,
			Compression:     string(record.CompressionAuto),
			VerifyChecksums: true,
		},
		Overlay: OverlayConfig{
			Overlay:            string(overlay.TypeDetection),
			BBoxNameKey:        ov.BBoxNameKey,
			BBoxXMinKey:        ov.BBoxXMinKey,
			BBoxXMaxKey:        ov.BBoxXMaxKey,
			BBoxYMinKey:        ov.BBoxYMinKey,
			BBoxYMaxKey:        ov.BBoxYMaxKey,
			LabelsToHighlight:  ov.LabelsToHighlight,
			SegmapKey:          ov.SegmapKey,
			SegmapFormatKey:    ov.SegmapFormatKey,
			SegmapRawDivisor:   ov.SegmapRawDivisor,
			SegmapBlendAlpha:   ov.SegmapBlendAlpha,
			FontPath:           ov.FontPath,
			FontSize:           ov.FontSize,
		},
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      5000,
			MaxImages: 200,
		},
		Output: OutputConfig{
			Format:     processing.FormatJPEG,
			Quality:    processing.DefaultQuality,
			OutputPath: "./images_from_tfrecord",
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Keys missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Record.ImageKey == "" {
		return fmt.Errorf("record.image_key cannot be empty")
	}

	if _, err := record.ParseCompression(c.Record.Compression); err != nil {
		return fmt.Errorf("record.compression: %w", err)
	}

	if _, err := overlay.ParseType(c.Overlay.Overlay); err != nil {
		return fmt.Errorf("overlay.overlay: %w", err)
	}

	if c.Overlay.SegmapRawDivisor < 1 {
		return fmt.Errorf("overlay.segmap_raw_divisor_key must be positive")
	}

	if c.Overlay.SegmapBlendAlpha < 0 || c.Overlay.SegmapBlendAlpha > 1 {
		return fmt.Errorf("overlay.segmap_blend_alpha must be between 0 and 1")
	}

	if c.Overlay.FontSize <= 0 {
		return fmt.Errorf("overlay.font_size must be positive")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Server.MaxImages < 1 {
		return fmt.Errorf("server.max_images must be positive")
	}

	if c.Server.ThumbnailWidth < 0 {
		return fmt.Errorf("server.thumbnail_width cannot be negative")
	}

	if _, err := processing.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.output_format: %w", err)
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.output_quality must be between 1 and 100")
	}

	return nil
}

// OverlayType returns the configured overlay as a Type
func (c *Config) OverlayType() (overlay.Type, error) {
	return overlay.ParseType(c.Overlay.Overlay)
}

// RenderConfig maps the configuration onto the renderer options
func (c *Config) RenderConfig(logger *log.Logger) overlay.Config {
	cfg := overlay.DefaultConfig()
	cfg.ClassLabelKey = c.Record.ClassLabelKey
	cfg.BBoxNameKey = c.Overlay.BBoxNameKey
	cfg.BBoxXMinKey = c.Overlay.BBoxXMinKey
	cfg.BBoxXMaxKey = c.Overlay.BBoxXMaxKey
	cfg.BBoxYMinKey = c.Overlay.BBoxYMinKey
	cfg.BBoxYMaxKey = c.Overlay.BBoxYMaxKey
	cfg.CoordinatesInPixels = c.Overlay.CoordinatesInPixels
	cfg.LabelsToHighlight = append([]string(nil), c.Overlay.LabelsToHighlight...)
	cfg.SegmapKey = c.Overlay.SegmapKey
	cfg.SegmapFormatKey = c.Overlay.SegmapFormatKey
	cfg.SegmapRawDivisor = c.Overlay.SegmapRawDivisor
	cfg.SegmapColormapFile = c.Overlay.SegmapColormapFile
	cfg.SegmapBlendAlpha = c.Overlay.SegmapBlendAlpha
	cfg.FontPath = c.Overlay.FontPath
	cfg.FontSize = c.Overlay.FontSize
	cfg.StrictFields = c.Overlay.StrictFields
	cfg.OutputFormat = c.Output.Format
	cfg.OutputQuality = c.Output.Quality
	cfg.Logger = logger
	return cfg
}

// Compression returns the configured record compression
func (c *Config) Compression() record.Compression {
	comp, err := record.ParseCompression(c.Record.Compression)
	if err != nil {
		return record.CompressionAuto
	}
	return comp
}

// Addr returns the host:port the gallery listens on
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "tfrecord-viewer", "config.json")
}
