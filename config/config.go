// Package config loads the run configuration once at process start. The
// resulting Config is passed explicitly to every component.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/viant/multivec/backend"
	"github.com/viant/multivec/backend/milvus"
	"github.com/viant/multivec/backend/sqlite"
	"github.com/viant/multivec/container"
	"github.com/viant/multivec/errs"
	"github.com/viant/multivec/maxsim"
	"github.com/viant/multivec/vector"
)

// Default backend addresses used when Address is empty.
const (
	DefaultMilvusAddress = "localhost:19530"
	DefaultSQLiteDSN     = "multivec.sqlite"
)

// EnvPrefix prefixes environment overrides, e.g. MULTIVEC_TOP_K.
const EnvPrefix = "MULTIVEC"

// Backend kinds.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMilvus = "milvus"
)

// Config is the complete run configuration.
type Config struct {
	Backend        string        `mapstructure:"backend"`
	Address        string        `mapstructure:"address"`
	Metric         string        `mapstructure:"metric"`
	IndexType      string        `mapstructure:"index_type"`
	M              int           `mapstructure:"hnsw_m"`
	EfConstruction int           `mapstructure:"ef_construction"`
	Ef             int           `mapstructure:"ef"`
	LoadTimeout    time.Duration `mapstructure:"load_timeout"`
	Collection     string        `mapstructure:"collection"`
	IDField        string        `mapstructure:"id_field"`
	VectorField    string        `mapstructure:"vector_field"`
	DocField       string        `mapstructure:"doc_field"`
	Corpus         string        `mapstructure:"corpus"`
	Queries        string        `mapstructure:"queries"`
	Mode           string        `mapstructure:"mode"`
	TopK           int           `mapstructure:"top_k"`
	ChunkSize      int           `mapstructure:"chunk_size"`
	BatchSize      int           `mapstructure:"batch_size"`
	BestEffort     bool          `mapstructure:"best_effort"`
	GroundTruth    string        `mapstructure:"ground_truth"`
	Results        string        `mapstructure:"results"`
	Report         string        `mapstructure:"report"`
	LogLevel       string        `mapstructure:"log_level"`
	LogFormat      string        `mapstructure:"log_format"`
}

var defaults = map[string]any{
	"backend":         BackendMemory,
	"address":         "",
	"metric":          string(vector.MetricIP),
	"index_type":      milvus.IndexFlat,
	"hnsw_m":          32,
	"ef_construction": 512,
	"ef":              32,
	"load_timeout":    5 * time.Minute,
	"collection":      "multivec",
	"id_field":        backend.DefaultIDField,
	"vector_field":    backend.DefaultVectorField,
	"doc_field":       backend.DefaultDocField,
	"mode":            string(maxsim.ModeInMemory),
	"top_k":           20,
	"chunk_size":      container.DefaultChunkSize,
	"batch_size":      backend.DefaultBatchSize,
	"best_effort":     false,
	"corpus":          "",
	"queries":         "",
	"ground_truth":    "ground_truth.txt",
	"results":         "",
	"report":          "",
	"log_level":       "info",
	"log_format":      "text",
}

// Flags registers one flag per setting on fs. Flag names use dashes; the
// matching file keys and environment names use underscores.
func Flags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML configuration file")
	fs.String("backend", BackendMemory, "vector backend: memory, sqlite or milvus")
	fs.String("address", "", "milvus address or sqlite DSN")
	fs.String("metric", string(vector.MetricIP), "metric: IP, L2 or COSINE")
	fs.String("index-type", milvus.IndexFlat, "milvus index: FLAT or HNSW")
	fs.Int("hnsw-m", 32, "HNSW M")
	fs.Int("ef-construction", 512, "HNSW efConstruction")
	fs.Int("ef", 32, "HNSW search ef")
	fs.Duration("load-timeout", 5*time.Minute, "maximum wait for a collection to become searchable")
	fs.String("collection", "multivec", "collection name")
	fs.String("id-field", backend.DefaultIDField, "primary key field")
	fs.String("vector-field", backend.DefaultVectorField, "vector field")
	fs.String("doc-field", backend.DefaultDocField, "document id field")
	fs.String("corpus", "", "corpus container file")
	fs.String("queries", "", "query container file")
	fs.String("mode", string(maxsim.ModeInMemory), "ranking mode: inmemory or delegated")
	fs.Int("top-k", 20, "documents returned per query")
	fs.Int("chunk-size", container.DefaultChunkSize, "records per container read or write block")
	fs.Int("batch-size", backend.DefaultBatchSize, "records per backend insert")
	fs.Bool("best-effort", false, "return fewer than top-k ids instead of failing")
	fs.String("ground-truth", "ground_truth.txt", "ground-truth file")
	fs.String("results", "", "result file compared against the ground truth")
	fs.String("report", "", "YAML report file")
	fs.String("log-level", "info", "log level: debug, info, warn or error")
	fs.String("log-format", "text", "log format: text or json")
}

// Load resolves the configuration from defaults, the YAML file at path (or
// multivec.yaml in the working directory when path is empty), MULTIVEC_*
// environment variables and fs, in increasing precedence. fs may be nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if fs != nil {
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			if f.Name == "config" || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		})
		if bindErr != nil {
			return nil, errs.Wrap(errs.ErrInvalidArgument, "config: load", bindErr)
		}
		if path == "" {
			path, _ = fs.GetString("config")
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("multivec")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errs.WithPath(errs.Wrap(errs.ErrInvalidArgument, "config: load", err), path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.Wrap(errs.ErrInvalidArgument, "config: load", fmt.Errorf("unable to decode into struct: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no component accepts.
func (c *Config) Validate() error {
	const op = "config: validate"
	switch c.Backend {
	case BackendMemory, BackendSQLite, BackendMilvus:
	default:
		return errs.InvalidArgument(op, "unsupported backend %q", c.Backend)
	}
	metric, err := vector.ParseMetric(c.Metric)
	if err != nil {
		return errs.Wrap(errs.ErrInvalidArgument, op, err)
	}
	mode, err := maxsim.ParseMode(c.Mode)
	if err != nil {
		return err
	}
	if mode == maxsim.ModeDelegated && metric.Ascending() {
		return errs.InvalidArgument(op, "delegated mode sums similarities and cannot rank by %s", metric)
	}
	switch strings.ToUpper(c.IndexType) {
	case milvus.IndexFlat, milvus.IndexHNSW:
	default:
		return errs.InvalidArgument(op, "unsupported index type %q", c.IndexType)
	}
	if c.TopK <= 0 {
		return errs.InvalidArgument(op, "top_k must be positive, got %d", c.TopK)
	}
	if c.ChunkSize <= 0 || c.BatchSize <= 0 {
		return errs.InvalidArgument(op, "chunk_size and batch_size must be positive")
	}
	if c.LoadTimeout <= 0 {
		return errs.InvalidArgument(op, "load_timeout must be positive")
	}
	if c.Collection == "" {
		return errs.InvalidArgument(op, "collection is required")
	}
	return nil
}

// MetricValue returns the parsed metric.
func (c *Config) MetricValue() vector.Metric {
	m, _ := vector.ParseMetric(c.Metric)
	return m
}

// ModeValue returns the parsed mode.
func (c *Config) ModeValue() maxsim.Mode {
	m, _ := maxsim.ParseMode(c.Mode)
	return m
}

// Schema returns the collection field names.
func (c *Config) Schema() backend.Schema {
	return backend.Schema{IDField: c.IDField, VectorField: c.VectorField, DocField: c.DocField}.WithDefaults()
}

// Options returns the ranking options.
func (c *Config) Options() maxsim.Options { return maxsim.Options{BestEffort: c.BestEffort} }

// Milvus returns the Milvus backend configuration.
func (c *Config) Milvus() milvus.Config {
	address := c.Address
	if address == "" {
		address = DefaultMilvusAddress
	}
	return milvus.Config{
		Address:        address,
		Metric:         c.MetricValue(),
		IndexType:      c.IndexType,
		M:              c.M,
		EfConstruction: c.EfConstruction,
		Ef:             c.Ef,
		LoadTimeout:    c.LoadTimeout,
		Schema:         c.Schema(),
	}
}

// SQLiteDSN returns the SQLite data source name.
func (c *Config) SQLiteDSN() string {
	if c.Address == "" {
		return DefaultSQLiteDSN
	}
	return c.Address
}

// SQLite returns the SQLite backend configuration.
func (c *Config) SQLite() sqlite.Config {
	return sqlite.Config{Metric: c.MetricValue(), Schema: c.Schema()}
}
