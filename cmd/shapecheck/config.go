package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/malphas-lang/shapecheck/internal/checker"
)

const (
	configBaseName   = "shapecheck"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	envPrefix = "SHAPECHECK"

	parallelFlagName         = "parallel"
	maxDepthFlagName         = "max-depth"
	strictNullChecksFlagName = "strict-null-checks"
	timeoutFlagName          = "timeout"
	logFileFlagName          = "log-file"
	verboseFlagName          = "verbose"

	parallelConfigKey         = "check.parallel"
	maxDepthConfigKey         = "check.max_depth"
	strictNullChecksConfigKey = "check.strict_null_checks"
	timeoutConfigKey          = "check.timeout"

	defaultParallel         = 4
	defaultStrictNullChecks = true
	defaultTimeout          = time.Minute

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".shapecheck.log"
	defaultLogLevel      = "info"
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(parallelConfigKey, defaultParallel)
	viper.SetDefault(maxDepthConfigKey, checker.DefaultMaxDepth)
	viper.SetDefault(strictNullChecksConfigKey, defaultStrictNullChecks)
	viper.SetDefault(timeoutConfigKey, int64(defaultTimeout.Seconds()))

	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	configErr = readConfig(viper.GetViper())
}

// configErr is a config file that exists but could not be read. It is
// logged as a warning once the logger is configured.
var configErr error

// readConfig loads the config file into v. A missing file is not an error.
func readConfig(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("reading config %s: %w", v.ConfigFileUsed(), err)
}

func warnConfigError(logger *slog.Logger, err error) {
	if err == nil {
		return
	}
	logger.Warn("config file ignored, using defaults", "error", err)
}

// checkerOptions builds checker options from config, env and flags.
func checkerOptions() checker.Options {
	return checker.Options{
		MaxDepth:         viper.GetInt(maxDepthConfigKey),
		StrictNullChecks: viper.GetBool(strictNullChecksConfigKey),
		Logger:           globalLogger,
	}
}

// checkTimeout returns the per-suite timeout. Zero or negative disables it.
func checkTimeout() time.Duration {
	return time.Duration(viper.GetInt64(timeoutConfigKey)) * time.Second
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Numeric slog levels, e.g. -4 for debug.
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger installs a rotating file logger as the slog default.
// It logs at the configured level, or at Debug when verbose is set.
func configureLogger(logPath string, verbose bool) *slog.Logger {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}
	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	logLevel := parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	if verbose {
		logLevel = slog.LevelDebug
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
	return globalLogger
}
