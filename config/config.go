// Package config loads the storage engine's configuration via
// github.com/spf13/viper: store path, bbolt map size and reader limit,
// sync behavior, and the term-hashing seed.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/lakesuperior/lsup-store/term"
)

// Config is the fully resolved, validated engine configuration.
type Config struct {
	// StorePath is the filesystem path of the bbolt data file.
	StorePath string
	// MapSize, in bytes, is passed to bbolt as its initial memory-map
	// size. It does not cap how large the data file may grow.
	MapSize int64
	// ReadersMax is the reader-slot count, named after the LMDB/MDBX
	// config knob. Load checks that it is positive; neither bbolt nor
	// Engine limits the number of concurrent read transactions by it.
	ReadersMax int
	// NoSync disables fsync on commit, trading durability for
	// throughput. Defaults to false.
	NoSync bool
	// HashSeed is the term-hashing seed. It must not change across the
	// life of a bootstrapped store; Engine.Open enforces this by
	// comparing against the seed stamped into the store's meta bucket.
	HashSeed term.Seed
}

// Load reads configuration from v. v is typically obtained from New
// (which sets this package's defaults via viper.SetDefault) by the
// caller, after wiring config file/env/flag sources; Load itself only
// reads keys and validates them.
func Load(v *viper.Viper) (Config, error) {
	path := v.GetString("store.path")
	if path == "" {
		return Config{}, fmt.Errorf("config: store.path is required")
	}

	mapSize := v.GetInt64("store.map_size")
	if mapSize <= 0 {
		return Config{}, fmt.Errorf("config: store.map_size must be positive, got %d", mapSize)
	}

	readersMax := v.GetInt("store.readers_max")
	if readersMax <= 0 {
		return Config{}, fmt.Errorf("config: store.readers_max must be positive, got %d", readersMax)
	}

	seedHex := v.GetString("term.hash_seed_hex")
	seed, err := term.ParseSeedHex(strings.TrimSpace(seedHex))
	if err != nil {
		return Config{}, fmt.Errorf("config: term.hash_seed_hex: %w", err)
	}

	return Config{
		StorePath:  path,
		MapSize:    mapSize,
		ReadersMax: readersMax,
		NoSync:     v.GetBool("store.no_sync"),
		HashSeed:   seed,
	}, nil
}

// New builds a viper.Viper with this package's defaults already set, read
// for the caller to layer a config file, environment variables, or flags
// on top of before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("store.map_size", int64(1)<<30) // 1 GiB
	v.SetDefault("store.readers_max", 126)
	v.SetDefault("store.no_sync", false)
	v.SetEnvPrefix("LSUP")
	v.AutomaticEnv()
	return v
}
