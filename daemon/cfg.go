package daemon

import (
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/pkg/errors"

	"github.com/ribeiro-lab/photond/emva"
)

// ROI is the centered analysis window geometry
type ROI struct {
	Width  int `koanf:"width" yaml:"width"`
	Height int `koanf:"height" yaml:"height"`
}

// StoreConfig controls the SQLite sample archive
type StoreConfig struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Path    string `koanf:"path" yaml:"path"`
}

// RecordConfig controls the FITS frame recorder
type RecordConfig struct {
	Root    string `koanf:"root" yaml:"root"`
	Prefix  string `koanf:"prefix" yaml:"prefix"`
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
}

// Config holds the initialization parameters of the daemon.  It is populated
// from defaults, then the YAML config file, then PHOTOND_* env vars.
type Config struct {
	// Addr is the address:port to listen on
	Addr string `koanf:"addr" yaml:"addr"`

	// Mock replaces the hardware camera with a simulated one
	Mock bool `koanf:"mock" yaml:"mock"`

	// CameraIndex selects which enumerated camera to open
	CameraIndex int `koanf:"cameraIndex" yaml:"cameraIndex" envconfig:"CAMERA_INDEX"`

	// ExposureUS is the exposure time in microseconds
	ExposureUS int `koanf:"exposureUS" yaml:"exposureUS" envconfig:"EXPOSURE_US"`

	// ROI is the centered analysis window
	ROI ROI `koanf:"roi" yaml:"roi"`

	// BaselineFrames is the number of dark frames averaged at startup
	BaselineFrames int `koanf:"baselineFrames" yaml:"baselineFrames" envconfig:"BASELINE_FRAMES"`

	// HistoryLength is the ring buffer capacity of the counter
	HistoryLength int `koanf:"historyLength" yaml:"historyLength" envconfig:"HISTORY_LENGTH"`

	// MaxFPS caps the acquisition rate, <= 0 for uncapped
	MaxFPS float64 `koanf:"maxFPS" yaml:"maxFPS" envconfig:"MAX_FPS"`

	// GenTLPath, when set, is exported as SPINNAKER_GENTL64_CTI so the
	// Spinnaker runtime can find its GenTL producer
	GenTLPath string `koanf:"gentlPath" yaml:"gentlPath" envconfig:"GENTL_PATH"`

	// Calibration is the ADU to photon conversion; defaults to the
	// BFS-U3-04S2M datasheet values
	Calibration emva.Calibration `koanf:"calibration" yaml:"calibration"`

	// Store controls the SQLite sample archive
	Store StoreConfig `koanf:"store" yaml:"store"`

	// Record controls the FITS frame recorder
	Record RecordConfig `koanf:"record" yaml:"record"`
}

// Defaults returns the configuration used when no file or env overrides
// are present
func Defaults() Config {
	return Config{
		Addr:           ":8000",
		Mock:           false,
		CameraIndex:    0,
		ExposureUS:     5000,
		ROI:            ROI{Width: 200, Height: 200},
		BaselineFrames: 50,
		HistoryLength:  500,
		MaxFPS:         0,
		Calibration:    emva.BFSU304S2M,
		Store:          StoreConfig{Enabled: false, Path: "photond.sqlite3"},
		Record:         RecordConfig{Root: ".", Prefix: "photond-", Enabled: false},
	}
}

// LoadConfig resolves the config from defaults, the YAML file at path (a
// missing file is not an error), and PHOTOND_* environment variables, in
// increasing order of precedence.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return Config{}, errors.Wrap(err, "daemon: error loading defaults")
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !strings.Contains(err.Error(), "no such") { // file missing, who cares
			return Config{}, errors.Wrap(err, "daemon: error loading config file")
		}
	}
	c := Config{}
	if err := k.Unmarshal("", &c); err != nil {
		return Config{}, errors.Wrap(err, "daemon: error unmarshaling config")
	}
	if err := envconfig.Process("photond", &c); err != nil {
		return Config{}, errors.Wrap(err, "daemon: error applying env overrides")
	}
	if c.GenTLPath != "" {
		os.Setenv("SPINNAKER_GENTL64_CTI", c.GenTLPath)
	}
	return c, nil
}
