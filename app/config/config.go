package config

import (
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log     Log     `yaml:"log"`
	Server  Server  `yaml:"server"`
	Profile Profile `yaml:"profile"`
	Gemini  Gemini  `yaml:"gemini"`
	Speech  Speech  `yaml:"speech"`
	Capture Capture `yaml:"capture"`
}

type Gemini struct {
	// API key, falls back to the GEMINI_API_KEY environment variable
	Token string `yaml:"token" example:"AIzaSyAbc123456789DEFghi012JKLmno345PQRstu"`
	// Model identifier
	Model string `yaml:"model" example:"gemini-2.0-flash"`
	// Sampling temperature
	Temperature float64 `yaml:"temperature" example:"0.7"`
}

type Profile struct {
	// Display name of the profile subject
	Name string `yaml:"name" validate:"required"`
	// Resume text inlined in the config
	Resume string `yaml:"resume"`
	// Path to a plain-text resume file, takes precedence over inline text
	ResumePath string `yaml:"resume_path"`
	// First model turn shown in a fresh transcript
	Greeting string `yaml:"greeting"`
}

type Speech struct {
	// Speak replies out loud
	Enabled bool `yaml:"enabled"`
	// Path to the Yandex service account key
	KeyFile string `yaml:"key_file" example:"service-account-key.json"`
	// Preferred voice names, tried in order
	PreferredVoices []string `yaml:"preferred_voices"`
	// Playback speed multiplier
	Rate float64 `yaml:"rate" example:"1.1"`
	// Pitch shift in Hz, negative lowers the voice
	PitchShift float64 `yaml:"pitch_shift" example:"-40"`
}

type Capture struct {
	// ffmpeg input format (pulse, alsa, avfoundation...)
	InputFormat string `yaml:"input_format" example:"pulse"`
	// ffmpeg input device
	InputDevice string `yaml:"input_device" example:"default"`
}

type Server struct {
	// Listen address of the HTTP API
	Listen string `yaml:"listen" example:":8080"`
}

type Log struct {
	// Minimum console level: debug, info, warn or error
	Level string `yaml:"level" example:"info"`
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

func Load() (*Config, error) {
	data, err := os.ReadFile("config.yaml")
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	// seeded before unmarshal so an explicit zero survives parsing
	result := Config{
		Gemini: Gemini{Temperature: 0.7},
	}

	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	if result.Gemini.Token == "" {
		result.Gemini.Token = os.Getenv("GEMINI_API_KEY")
	}
	if result.Gemini.Model == "" {
		result.Gemini.Model = "gemini-2.0-flash"
	}
	if result.Server.Listen == "" {
		result.Server.Listen = ":8080"
	}
	if result.Speech.KeyFile == "" {
		result.Speech.KeyFile = "service-account-key.json"
	}
	if result.Speech.Rate == 0 {
		result.Speech.Rate = 1.1
	}
	if result.Capture.InputFormat == "" {
		result.Capture.InputFormat = "pulse"
	}
	if result.Capture.InputDevice == "" {
		result.Capture.InputDevice = "default"
	}

	if result.Profile.ResumePath != "" {
		resume, err := os.ReadFile(result.Profile.ResumePath)
		if err != nil {
			return nil, oops.Errorf("failed to read resume file: %w", err)
		}
		result.Profile.Resume = string(resume)
	}
	result.Profile.Resume = strings.TrimSpace(result.Profile.Resume)
	if result.Profile.Resume == "" {
		return nil, oops.Errorf("profile resume is empty: set profile.resume or profile.resume_path")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}
