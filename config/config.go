package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/DataDog/dd-trace-go/contrib/database/sql/parsedsn"

	"github.com/dselans/undbc/blast"
)

const (
	EnvVarPrefix = "UNDBC"

	CommandConvert = "convert"
	CommandServe   = "serve"

	DefaultLogLevel           = "info"
	DefaultNumWorkers         = 2
	DefaultWindowSize         = blast.DefaultWindowSize
	DefaultStreamDepth        = blast.DefaultStreamDepth
	DefaultCheckpointInterval = duration(5 * time.Second)
	DefaultCheckpointFile     = "checkpoint.json"
	DefaultCheckpointBackend  = "file"
	DefaultRedisKey           = "undbc:checkpoint"
	DefaultFileType           = "plain"
	DefaultExtension          = ".dbf"
	DefaultCatalogType        = "none"
	DefaultCatalogTable       = "dbc_conversions"
	DefaultListenAddress      = ":8080"
	DefaultMaxBodySize        = 64 << 20

	MinNumWorkers         = 1
	MaxNumWorkers         = 100
	MinWindowSize         = blast.MinWindowSize
	MaxWindowSize         = 1 << 20
	MinStreamDepth        = 1
	MaxStreamDepth        = blast.MaxStreamDepth
	MinCheckpointInterval = duration(1 * time.Millisecond)
	MaxCheckpointInterval = duration(1 * time.Hour)
)

var (
	// VERSION gets set during build
	VERSION = "0.0.0"

	validFileTypes = map[string]struct{}{
		"plain": {},
		"gzip":  {},
	}

	validCheckpointBackends = map[string]struct{}{
		"file":  {},
		"redis": {},
	}
)

type Config struct {
	CLI  *CLI
	TOML *TOML
}

type TOML struct {
	Config      *TOMLConfig      `toml:"config"`
	Source      *TOMLSource      `toml:"source"`
	Destination *TOMLDestination `toml:"destination"`
	Catalog     *TOMLCatalog     `toml:"catalog"`
	Server      *TOMLServer      `toml:"server"`
}

type TOMLConfig struct {
	LogLevel             string   `toml:"log_level"`
	NumWorkers           int      `toml:"num_workers"`
	WindowSize           int      `toml:"window_size"`
	StreamDepth          int      `toml:"stream_depth"`
	CheckpointFile       string   `toml:"checkpoint_file"`
	CheckpointInterval   duration `toml:"checkpoint_interval"`
	CheckpointBackend    string   `toml:"checkpoint_backend"`
	RedisAddr            string   `toml:"redis_addr"`
	RedisKey             string   `toml:"redis_key"`
	DisableCheckpointing bool     `toml:"disable_checkpointing"`
}

type TOMLSource struct {
	Files    []string `toml:"files"`
	FileType string   `toml:"file_type"`
}

type TOMLDestination struct {
	Dir       string `toml:"dir"`
	Extension string `toml:"extension"`
	Overwrite bool   `toml:"overwrite"`
}

type TOMLCatalog struct {
	Type  string `toml:"type"`
	DSN   string `toml:"dsn"`
	Table string `toml:"table"`
}

type TOMLServer struct {
	ListenAddress string `toml:"listen_address"`
	MaxBodySize   int64  `toml:"max_body_size"`
}

type CLI struct {
	Convert struct{} `cmd:"" default:"1" help:"Convert DBC files to DBF (default)"`
	Serve   struct{} `cmd:"" help:"Serve decompression over HTTP"`

	ConfigFile    string `kong:"help='Path to the TOML config file',type='path',default='config.toml',short='c'"`
	DryRun        bool   `kong:"help='Decode and verify without writing output',short='n'"`
	DisableResume bool   `kong:"help='Disable resuming from checkpoint',short='R'"`

	Debug   bool             `kong:"help='Enable debug output',short='d'"`
	Quiet   bool             `kong:"help='Disable showing pre/post output',short='q'"`
	Version kong.VersionFlag `help:"Show version and exit" short:"v" env:"-"`

	// Internal bits
	Ctx *kong.Context `kong:"-"`
}

// Command returns the selected command, CommandConvert when none was given.
func (c *CLI) Command() string {
	if c.Ctx == nil {
		return CommandConvert
	}

	cmd := c.Ctx.Command()
	if cmd == "" {
		return CommandConvert
	}

	return strings.Fields(cmd)[0]
}

func NewConfig() (*Config, error) {
	// Attempt to load .env
	_ = godotenv.Load(".env")

	cli, err := readCLIArgs(os.Args[1:])
	if err != nil {
		return nil, errors.Wrap(err, "error parsing CLI args")
	}

	tomlConfig, err := readTOML(cli.ConfigFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}

	cfg := &Config{
		CLI:  cli,
		TOML: tomlConfig,
	}

	if err := Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "error validating config")
	}

	return cfg, nil
}

// Defaults returns a TOML config with every default applied.
func Defaults() *TOML {
	t := &TOML{}
	_ = setTOMLDefaults(t)

	return t
}

func setTOMLDefaults(t *TOML) error {
	if t == nil {
		return errors.New("toml config cannot be nil")
	}

	if t.Config == nil {
		t.Config = &TOMLConfig{}
	}

	if t.Source == nil {
		t.Source = &TOMLSource{}
	}

	if t.Destination == nil {
		t.Destination = &TOMLDestination{}
	}

	if t.Catalog == nil {
		t.Catalog = &TOMLCatalog{}
	}

	if t.Server == nil {
		t.Server = &TOMLServer{}
	}

	// Set defaults for [config]
	if t.Config.LogLevel == "" {
		t.Config.LogLevel = DefaultLogLevel
	}

	if t.Config.NumWorkers == 0 {
		t.Config.NumWorkers = DefaultNumWorkers
	}

	if t.Config.WindowSize == 0 {
		t.Config.WindowSize = DefaultWindowSize
	}

	if t.Config.StreamDepth == 0 {
		t.Config.StreamDepth = DefaultStreamDepth
	}

	if t.Config.CheckpointInterval == 0 {
		t.Config.CheckpointInterval = DefaultCheckpointInterval
	}

	if t.Config.CheckpointFile == "" {
		t.Config.CheckpointFile = DefaultCheckpointFile
	}

	if t.Config.CheckpointBackend == "" {
		t.Config.CheckpointBackend = DefaultCheckpointBackend
	}

	if t.Config.RedisKey == "" {
		t.Config.RedisKey = DefaultRedisKey
	}

	// [source]
	if t.Source.FileType == "" {
		t.Source.FileType = DefaultFileType
	}

	// [destination]
	if t.Destination.Extension == "" {
		t.Destination.Extension = DefaultExtension
	}

	// [catalog]
	if t.Catalog.Type == "" {
		t.Catalog.Type = DefaultCatalogType
	}

	if t.Catalog.Table == "" {
		t.Catalog.Table = DefaultCatalogTable
	}

	// [server]
	if t.Server.ListenAddress == "" {
		t.Server.ListenAddress = DefaultListenAddress
	}

	if t.Server.MaxBodySize == 0 {
		t.Server.MaxBodySize = DefaultMaxBodySize
	}

	return nil
}

// Validate checks the whole config, including the settings only the
// selected command needs.
func Validate(c *Config) error {
	if c == nil {
		return errors.New("config cannot be nil")
	}

	if err := validateCLIArgs(c.CLI); err != nil {
		return errors.Wrap(err, "error validating CLI args")
	}

	if err := validateTOML(c.TOML); err != nil {
		return errors.Wrap(err, "error validating toml config")
	}

	if c.CLI.Command() == CommandConvert {
		if err := validateConvert(c.TOML); err != nil {
			return errors.Wrap(err, "error validating convert settings")
		}
	}

	return nil
}

func validateConvert(t *TOML) error {
	if len(t.Source.Files) == 0 {
		return errors.New("source.files cannot be empty")
	}

	if t.Destination.Dir == "" {
		return errors.New("destination.dir cannot be empty")
	}

	info, err := os.Stat(t.Destination.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Errorf("destination.dir %s does not exist", t.Destination.Dir)
		}

		return errors.Wrap(err, "unable to stat destination.dir")
	}

	if !info.IsDir() {
		return errors.Errorf("destination.dir %s is not a directory", t.Destination.Dir)
	}

	return nil
}

func validateTOML(t *TOML) error {
	if t == nil {
		return errors.New("toml config cannot be nil")
	}

	// Validate [config]
	if err := validateTOMLConfig(t.Config); err != nil {
		return errors.Wrap(err, "config error(s)")
	}

	// Validate [source]
	if err := validateTOMLSource(t.Source); err != nil {
		return errors.Wrap(err, "error validating toml [source]")
	}

	// Validate [destination]
	if err := validateTOMLDestination(t.Destination); err != nil {
		return errors.Wrap(err, "destination error(s)")
	}

	// Validate [catalog]
	if err := validateTOMLCatalog(t.Catalog); err != nil {
		return errors.Wrap(err, "catalog error(s)")
	}

	// Validate [server]
	if err := validateTOMLServer(t.Server); err != nil {
		return errors.Wrap(err, "server error(s)")
	}

	return nil
}

func validateTOMLConfig(c *TOMLConfig) error {
	if c == nil {
		return errors.New("config cannot be empty")
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Errorf("config.log_level %s is invalid", c.LogLevel)
	}

	if c.NumWorkers < MinNumWorkers || c.NumWorkers > MaxNumWorkers {
		return errors.Errorf("config.num_workers must be between %d and %d", MinNumWorkers, MaxNumWorkers)
	}

	if c.WindowSize < MinWindowSize || c.WindowSize > MaxWindowSize {
		return errors.Errorf("config.window_size must be between %d and %d", MinWindowSize, MaxWindowSize)
	}

	if c.StreamDepth < MinStreamDepth || c.StreamDepth > MaxStreamDepth {
		return errors.Errorf("config.stream_depth must be between %d and %d", MinStreamDepth, MaxStreamDepth)
	}

	if c.CheckpointInterval < MinCheckpointInterval || c.CheckpointInterval > MaxCheckpointInterval {
		return errors.Errorf("config.checkpoint_interval must be between %s and %s", MinCheckpointInterval, MaxCheckpointInterval)
	}

	if _, ok := validCheckpointBackends[c.CheckpointBackend]; !ok {
		return errors.Errorf("config.checkpoint_backend %s is invalid", c.CheckpointBackend)
	}

	switch c.CheckpointBackend {
	case "file":
		if c.CheckpointFile == "" {
			return errors.New("config.checkpoint_file cannot be empty")
		}
	case "redis":
		if c.RedisAddr == "" {
			return errors.New("config.redis_addr cannot be empty")
		}

		if c.RedisKey == "" {
			return errors.New("config.redis_key cannot be empty")
		}
	}

	return nil
}

func validateTOMLSource(s *TOMLSource) error {
	if s == nil {
		return errors.New("source cannot be empty")
	}

	for _, pattern := range s.Files {
		if pattern == "" {
			return errors.New("source.files cannot contain an empty pattern")
		}

		if _, err := filepath.Match(pattern, ""); err != nil {
			return errors.Wrapf(err, "source.files pattern %s is invalid", pattern)
		}
	}

	// Check if .FileType is valid
	if _, ok := validFileTypes[s.FileType]; !ok {
		return errors.Errorf("source.file_type %s is invalid", s.FileType)
	}

	return nil
}

func validateTOMLDestination(d *TOMLDestination) error {
	if d == nil {
		return errors.New("destination cannot be empty")
	}

	if !strings.HasPrefix(d.Extension, ".") {
		return errors.Errorf("destination.extension %s must start with a dot", d.Extension)
	}

	return nil
}

func validateTOMLCatalog(c *TOMLCatalog) error {
	if c == nil {
		return errors.New("catalog cannot be empty")
	}

	if c.Type == "none" {
		return nil
	}

	if c.DSN == "" {
		return errors.New("catalog.dsn cannot be empty")
	}

	if c.Table == "" {
		return errors.New("catalog.table cannot be empty")
	}

	var err error

	switch c.Type {
	case "mysql":
		_, err = parsedsn.MySQL(c.DSN)
	case "postgres":
		_, err = parsedsn.Postgres(c.DSN)
	default:
		return errors.Errorf("catalog.type %s is invalid", c.Type)
	}

	if err != nil {
		return errors.Wrap(err, "error validating catalog.dsn")
	}

	return nil
}

func validateTOMLServer(s *TOMLServer) error {
	if s == nil {
		return errors.New("server cannot be empty")
	}

	if s.ListenAddress == "" {
		return errors.New("server.listen_address cannot be empty")
	}

	if s.MaxBodySize < 0 {
		return errors.New("server.max_body_size cannot be negative")
	}

	return nil
}

func newCLIParser(cli *CLI) (*kong.Kong, error) {
	return kong.New(cli,
		kong.Name("undbc"),
		kong.Description("Converts DBC (compressed DBF) files to DBF"),
		kong.UsageOnError(),
		kong.DefaultEnvars(EnvVarPrefix),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		kong.Vars{
			"version": VERSION,
		})
}

func readCLIArgs(args []string) (*CLI, error) {
	cli := &CLI{}

	parser, err := newCLIParser(cli)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create CLI parser")
	}

	ctx, err := parser.Parse(args)
	parser.FatalIfErrorf(err)

	cli.Ctx = ctx

	if err := validateCLIArgs(cli); err != nil {
		return nil, errors.Wrap(err, "error validating args")
	}

	return cli, nil
}

func readTOML(file string) (*TOML, error) {
	// Attempt to load file
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(err, "error reading file")
	}

	tomlConfig := &TOML{}

	if err := toml.Unmarshal(data, tomlConfig); err != nil {
		return nil, errors.Wrap(err, "error parsing TOML config")
	}

	// Set defaults
	if err := setTOMLDefaults(tomlConfig); err != nil {
		return nil, errors.Wrap(err, "error setting TOML defaults")
	}

	// Validate loaded config
	if err := validateTOML(tomlConfig); err != nil {
		return nil, errors.Wrap(err, "error validating TOML config")
	}

	return tomlConfig, nil
}

func validateCLIArgs(cli *CLI) error {
	if cli == nil {
		return errors.New("config cannot be nil")
	}

	if cli.Debug && cli.Quiet {
		return errors.New("--debug and --quiet cannot be used together")
	}

	return nil
}

type duration time.Duration

func (d duration) String() string {
	return time.Duration(d).String()
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *duration) UnmarshalText(text []byte) error {
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(dur)
	return nil
}
