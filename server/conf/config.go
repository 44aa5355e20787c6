package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zhukovaskychina/xmysql-server/logger"

	"gopkg.in/ini.v1"
)

var ConfigPath string

type CommandLineArgs struct {
	ConfigPath string
}

/*
*
[bufferpool]
pool_size        = 1024
num_instances    = 4
page_size        = 4096
flush_interval   = 1s
data_dir         = data

[hashindex]
bucket_capacity  = 0

[logs]
log_error        = /var/log/dbkernel/error.log
log_infos        = /var/log/dbkernel/kernel.log
log_level        = info
*/
type Cfg struct {
	Raw *ini.File

	// buffer pool
	PoolSize              int    `default:"1024" yaml:"pool_size" json:"pool_size,omitempty"`
	NumInstances          int    `default:"1" yaml:"num_instances" json:"num_instances,omitempty"`
	PageSize              int    `default:"4096" yaml:"page_size" json:"page_size,omitempty"`
	FlushInterval         string `default:"1s" yaml:"flush_interval" json:"flush_interval,omitempty"`
	FlushIntervalDuration time.Duration
	DataDir               string `default:"data" yaml:"data_dir" json:"data_dir,omitempty"`

	// extendible hash index
	BucketCapacity int `default:"0" yaml:"bucket_capacity" json:"bucket_capacity,omitempty"`

	// logs
	LogError string `default:"" yaml:"log_error" json:"log_error,omitempty"`
	LogInfos string `default:"" yaml:"log_infos" json:"log_infos,omitempty"`
	LogLevel string `default:"info" yaml:"log_level" json:"log_level,omitempty"`
}

func NewCfg() *Cfg {
	return &Cfg{
		Raw:                   ini.Empty(),
		PoolSize:              1024,
		NumInstances:          1,
		PageSize:              4096,
		FlushInterval:         "1s",
		FlushIntervalDuration: time.Second,
		DataDir:               "data",
		BucketCapacity:        0,
		LogLevel:              "info",
	}
}

func (cfg *Cfg) Load(args *CommandLineArgs) *Cfg {
	setHomePath(args)
	iniFile, err := cfg.loadConfiguration(args)
	if err != nil {
		logger.Debugf("failed to load config file: %v\n", err)
		os.Exit(1)
	}
	cfg.Raw = iniFile

	cfg.parseBufferPoolCfg(cfg.Raw.Section("bufferpool"))
	cfg.parseHashIndexCfg(cfg.Raw.Section("hashindex"))
	cfg.parseLogsCfg(cfg.Raw.Section("logs"))
	return cfg
}

func setHomePath(args *CommandLineArgs) {
	if args.ConfigPath != "" {
		ConfigPath = args.ConfigPath
		return
	}
	ConfigPath, _ = filepath.Abs(".")
}

func (cfg *Cfg) loadConfiguration(args *CommandLineArgs) (*ini.File, error) {
	configFile := "conf/kernel.ini"
	if args.ConfigPath != "" {
		configFile = args.ConfigPath
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		logger.Debugf("config file not found: %s, using defaults\n", configFile)
		return ini.Empty(), nil
	}

	parsedFile, err := ini.Load(configFile)
	if err != nil {
		logger.Debugf("failed to parse config file: %v, using defaults\n", err)
		return ini.Empty(), nil
	}

	logger.Debugf("loaded config file: %s\n", configFile)
	return parsedFile, nil
}

func (cfg *Cfg) parseBufferPoolCfg(section *ini.Section) *Cfg {
	if section == nil {
		return cfg
	}
	cfg.PoolSize = section.Key("pool_size").MustInt(cfg.PoolSize)
	cfg.NumInstances = section.Key("num_instances").MustInt(cfg.NumInstances)
	cfg.PageSize = section.Key("page_size").MustInt(cfg.PageSize)
	cfg.FlushInterval = section.Key("flush_interval").MustString(cfg.FlushInterval)
	cfg.DataDir = section.Key("data_dir").MustString(cfg.DataDir)

	dur, err := time.ParseDuration(cfg.FlushInterval)
	if err != nil {
		logger.Warnf("invalid flush_interval %q, falling back to 1s: %v", cfg.FlushInterval, err)
		dur = time.Second
	}
	cfg.FlushIntervalDuration = dur
	return cfg
}

func (cfg *Cfg) parseHashIndexCfg(section *ini.Section) *Cfg {
	if section == nil {
		return cfg
	}
	cfg.BucketCapacity = section.Key("bucket_capacity").MustInt(cfg.BucketCapacity)
	return cfg
}

func (cfg *Cfg) parseLogsCfg(section *ini.Section) *Cfg {
	if section == nil {
		return cfg
	}
	cfg.LogError = section.Key("log_error").MustString(cfg.LogError)
	cfg.LogInfos = section.Key("log_infos").MustString(cfg.LogInfos)

	logLevel := strings.ToLower(section.Key("log_level").MustString(cfg.LogLevel))
	validLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	isValid := false
	for _, level := range validLevels {
		if logLevel == level {
			isValid = true
			break
		}
	}
	if !isValid {
		logger.Debugf("invalid log level %q, using default 'info'\n", logLevel)
		logLevel = "info"
	}
	cfg.LogLevel = logLevel
	return cfg
}

// GetString reads a "section.key" dotted path from the raw ini file.
func (cfg *Cfg) GetString(key string) string {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) < 2 {
		return ""
	}
	section := cfg.Raw.Section(parts[0])
	if section == nil {
		return ""
	}
	return section.Key(parts[1]).MustString("")
}

// GetInt reads a "section.key" dotted path from the raw ini file.
func (cfg *Cfg) GetInt(key string) int {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) < 2 {
		return 0
	}
	section := cfg.Raw.Section(parts[0])
	if section == nil {
		return 0
	}
	return section.Key(parts[1]).MustInt(0)
}

func (cfg *Cfg) String() string {
	return fmt.Sprintf("pool_size=%d num_instances=%d page_size=%d data_dir=%s",
		cfg.PoolSize, cfg.NumInstances, cfg.PageSize, cfg.DataDir)
}
